// Package plugin provides an extensible plugin system for the economy engine.
// Plugins can hook into store lifecycle and purchase events to extend
// functionality.
package plugin

import (
	"context"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, s interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// OnStoreOpening is called when the storefront is being opened.
type OnStoreOpening interface {
	Plugin
	OnStoreOpening(ctx context.Context) error
}

// OnStoreClosing is called when the storefront is being closed.
type OnStoreClosing interface {
	Plugin
	OnStoreClosing(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Billing availability hooks
// ──────────────────────────────────────────────────

// OnBillingSupported is called when the billing service reports support.
type OnBillingSupported interface {
	Plugin
	OnBillingSupported(ctx context.Context) error
}

// OnBillingNotSupported is called when the billing service reports no support.
type OnBillingNotSupported interface {
	Plugin
	OnBillingNotSupported(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Market purchase hooks
// ──────────────────────────────────────────────────

// OnMarketPurchaseStarted is called when a market purchase flow begins.
type OnMarketPurchaseStarted interface {
	Plugin
	OnMarketPurchaseStarted(ctx context.Context, productID string) error
}

// OnMarketPurchase is called when a market purchase has been applied to the
// ledger.
type OnMarketPurchase interface {
	Plugin
	OnMarketPurchase(ctx context.Context, productID, orderID string) error
}

// OnMarketPurchaseCancelled is called when the user cancels a market purchase.
type OnMarketPurchaseCancelled interface {
	Plugin
	OnMarketPurchaseCancelled(ctx context.Context, productID string) error
}

// OnMarketRefund is called when a market purchase is refunded.
type OnMarketRefund interface {
	Plugin
	OnMarketRefund(ctx context.Context, productID, orderID string) error
}

// ──────────────────────────────────────────────────
// Virtual goods hooks
// ──────────────────────────────────────────────────

// OnGoodsPurchaseStarted is called when a virtual good purchase flow begins.
type OnGoodsPurchaseStarted interface {
	Plugin
	OnGoodsPurchaseStarted(ctx context.Context, goodID string) error
}

// OnGoodsPurchased is called when a virtual good purchase succeeds.
type OnGoodsPurchased interface {
	Plugin
	OnGoodsPurchased(ctx context.Context, goodID string, owned int64) error
}

// OnGoodEquipped is called when a virtual good is equipped.
type OnGoodEquipped interface {
	Plugin
	OnGoodEquipped(ctx context.Context, goodID string) error
}

// OnGoodUnequipped is called when a virtual good is unequipped.
type OnGoodUnequipped interface {
	Plugin
	OnGoodUnequipped(ctx context.Context, goodID string) error
}

// ──────────────────────────────────────────────────
// Balance hooks
// ──────────────────────────────────────────────────

// OnCurrencyBalanceChanged is called after a currency balance mutation.
type OnCurrencyBalanceChanged interface {
	Plugin
	OnCurrencyBalanceChanged(ctx context.Context, currencyID string, balance, delta int64) error
}

// OnGoodBalanceChanged is called after a good ownership count mutation.
type OnGoodBalanceChanged interface {
	Plugin
	OnGoodBalanceChanged(ctx context.Context, goodID string, owned, delta int64) error
}

// OnInsufficientFunds is called when a purchase fails because a currency
// balance cannot cover the price.
type OnInsufficientFunds interface {
	Plugin
	OnInsufficientFunds(ctx context.Context, itemID, currencyID string, required, balance int64) error
}

// ──────────────────────────────────────────────────
// Restore hooks
// ──────────────────────────────────────────────────

// OnRestoreStarted is called when a transaction restore begins.
type OnRestoreStarted interface {
	Plugin
	OnRestoreStarted(ctx context.Context) error
}

// OnRestoreCompleted is called when a transaction restore finishes.
type OnRestoreCompleted interface {
	Plugin
	OnRestoreCompleted(ctx context.Context, success bool) error
}

// ──────────────────────────────────────────────────
// Error hooks
// ──────────────────────────────────────────────────

// OnUnexpectedError is called when the engine hits an unexpected failure in
// the billing or reconciliation path.
type OnUnexpectedError interface {
	Plugin
	OnUnexpectedError(ctx context.Context, err error) error
}
