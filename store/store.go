// Package store defines the persistence interface for mutable economy state:
// currency balances, good ownership, managed-item ownership, the applied-order
// journal, and the one-shot restore flag. Drivers live in the memory, sqlite,
// postgres, and mongo sub-packages.
package store

import (
	"context"

	"github.com/xraph/economy/catalog"
	"github.com/xraph/economy/id"
	"github.com/xraph/economy/types"
)

// ReceiptState records which notification kind a receipt was written for.
type ReceiptState string

const (
	ReceiptPurchased ReceiptState = "purchased"
	ReceiptRefunded  ReceiptState = "refunded"
)

// Receipt is an applied-order journal entry. OrderID is the market-assigned
// order identifier and is unique per receipt; recording the same order twice
// fails with economy.ErrDuplicateOrder, which is what makes redelivered
// purchase notifications a no-op on ledger state.
type Receipt struct {
	types.Entity
	ID        id.ReceiptID `json:"id"`
	OrderID   string       `json:"order_id"`
	ProductID string       `json:"product_id"`
	State     ReceiptState `json:"state"`
}

// Store is the unified storage interface for all mutable economy state.
// Absent keys read as zero/false/not-owned. Every mutation keeps balances and
// counts non-negative: an operation that would go negative fails before any
// write. The engine is the only caller that writes through this interface.
type Store interface {
	// Currency balances
	Balance(ctx context.Context, currencyID string) (int64, error)
	AddBalance(ctx context.Context, currencyID string, amount int64) (int64, error)
	// RemoveBalance fails with *economy.InsufficientFundsError if the result
	// would be negative; the balance is untouched in that case.
	RemoveBalance(ctx context.Context, currencyID string, amount int64) (int64, error)

	// Good ownership and equipment
	GoodCount(ctx context.Context, goodID string) (int64, error)
	AddGood(ctx context.Context, goodID string, amount int64) (int64, error)
	// RemoveGood fails with economy.ErrNotEnoughGoods if the result would be
	// negative; the count is untouched in that case.
	RemoveGood(ctx context.Context, goodID string, amount int64) (int64, error)
	Equipped(ctx context.Context, goodID string) (bool, error)
	SetEquipped(ctx context.Context, goodID string, equipped bool) error

	// Managed market items. MarkManagedOwned is idempotent.
	ManagedOwned(ctx context.Context, productID string) (bool, error)
	MarkManagedOwned(ctx context.Context, productID string) error

	// One-shot restore flag. SetRestoreCompleted must persist durably before
	// returning nil; on error the flag stays false so a later session retries.
	RestoreCompleted(ctx context.Context) (bool, error)
	SetRestoreCompleted(ctx context.Context) error

	// ApplyGoodPurchase debits every entry of debits and credits the good
	// count by one as a single atomic batch: either everything is applied or
	// nothing is. A shortfall fails with *economy.InsufficientFundsError
	// naming the first short currency in debits order.
	ApplyGoodPurchase(ctx context.Context, goodID string, debits []catalog.PriceEntry) error

	// Applied-order journal. RecordReceipt fails with
	// economy.ErrDuplicateOrder when a receipt with the same OrderID exists.
	RecordReceipt(ctx context.Context, r *Receipt) error
	ReceiptByOrder(ctx context.Context, orderID string) (*Receipt, error)

	// Clear wipes all state including the restore flag. Administrative and
	// test use only; never part of the economic flow.
	Clear(ctx context.Context) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
