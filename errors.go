package economy

import (
	"errors"
	"fmt"

	"github.com/xraph/economy/catalog"
)

// Catalog sentinels are defined next to the lookup code and re-exported here
// so callers can match everything through the root package.
var (
	ErrCurrencyNotFound   = catalog.ErrCurrencyNotFound
	ErrGoodNotFound       = catalog.ErrGoodNotFound
	ErrPackNotFound       = catalog.ErrPackNotFound
	ErrMarketItemNotFound = catalog.ErrMarketItemNotFound
)

// DefinitionError is re-exported from the catalog package.
type DefinitionError = catalog.DefinitionError

// ErrInsufficientBalance is an alias for ErrInsufficientFunds. A currency
// balance and a price shortfall are the same failure kind.
var ErrInsufficientBalance = ErrInsufficientFunds

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound     = errors.New("economy: not found")
	ErrInvalidInput = errors.New("economy: invalid input")

	// Ledger errors
	ErrInsufficientFunds = errors.New("economy: insufficient funds")
	ErrNotEnoughGoods    = errors.New("economy: not enough goods")
	ErrNegativeAmount    = errors.New("economy: negative amount")

	// Reconciliation errors
	ErrDuplicateOrder     = errors.New("economy: order already applied")
	ErrUnexpectedExternal = errors.New("economy: unexpected external notification")

	// Billing errors
	ErrBillingUnavailable = errors.New("economy: billing service unavailable")
	ErrPurchaseFailed     = errors.New("economy: purchase request failed")

	// Store errors
	ErrStoreNotReady     = errors.New("economy: store not ready")
	ErrTransactionFailed = errors.New("economy: transaction failed")
	ErrMigrationFailed   = errors.New("economy: migration failed")
)

// InsufficientFundsError reports the first currency that fell short during an
// affordability check. The currency is the first short one in the good's
// declared price order, not the one with the largest shortfall.
type InsufficientFundsError struct {
	CurrencyID string
	Required   int64
	Balance    int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("economy: insufficient funds: currency %q requires %d, balance is %d",
		e.CurrencyID, e.Required, e.Balance)
}

// Unwrap makes the error match ErrInsufficientFunds via errors.Is.
func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// NotEnoughGoodsError reports an equip attempt on a good the user does not own.
type NotEnoughGoodsError struct {
	GoodID string
}

func (e *NotEnoughGoodsError) Error() string {
	return fmt.Sprintf("economy: not enough goods: %q is not owned", e.GoodID)
}

// Unwrap makes the error match ErrNotEnoughGoods via errors.Is.
func (e *NotEnoughGoodsError) Unwrap() error { return ErrNotEnoughGoods }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrCurrencyNotFound) ||
		errors.Is(err, ErrGoodNotFound) ||
		errors.Is(err, ErrPackNotFound) ||
		errors.Is(err, ErrMarketItemNotFound)
}

// IsRecoverable returns true for routine business outcomes that leave the
// ledger untouched and can be surfaced to the user as-is.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrNotEnoughGoods) ||
		IsNotFound(err)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed) ||
		errors.Is(err, ErrBillingUnavailable)
}
