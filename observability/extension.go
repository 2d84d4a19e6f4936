// Package observability provides a metrics extension for the economy engine
// that records purchase and lifecycle event counts via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/economy/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                    = (*MetricsExtension)(nil)
	_ plugin.OnInit                    = (*MetricsExtension)(nil)
	_ plugin.OnBillingSupported        = (*MetricsExtension)(nil)
	_ plugin.OnBillingNotSupported     = (*MetricsExtension)(nil)
	_ plugin.OnMarketPurchaseStarted   = (*MetricsExtension)(nil)
	_ plugin.OnMarketPurchase          = (*MetricsExtension)(nil)
	_ plugin.OnMarketPurchaseCancelled = (*MetricsExtension)(nil)
	_ plugin.OnMarketRefund            = (*MetricsExtension)(nil)
	_ plugin.OnGoodsPurchaseStarted    = (*MetricsExtension)(nil)
	_ plugin.OnGoodsPurchased          = (*MetricsExtension)(nil)
	_ plugin.OnGoodEquipped            = (*MetricsExtension)(nil)
	_ plugin.OnGoodUnequipped          = (*MetricsExtension)(nil)
	_ plugin.OnCurrencyBalanceChanged  = (*MetricsExtension)(nil)
	_ plugin.OnInsufficientFunds       = (*MetricsExtension)(nil)
	_ plugin.OnRestoreCompleted        = (*MetricsExtension)(nil)
	_ plugin.OnUnexpectedError         = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide purchase and lifecycle metrics.
// Register it as an engine plugin to automatically track economy metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Billing metrics
	BillingSupported    Counter
	BillingNotSupported Counter

	// Market purchase metrics
	MarketPurchaseStarted   Counter
	MarketPurchaseApplied   Counter
	MarketPurchaseCancelled Counter
	MarketRefunds           Counter

	// Goods metrics
	GoodsPurchaseStarted Counter
	GoodsPurchased       Counter
	GoodsEquipped        Counter
	GoodsUnequipped      Counter
	GoodsOwnedCount      Histogram

	// Balance metrics
	BalanceCredits Counter
	BalanceDebits  Counter
	BalanceLevel   Histogram

	// Failure metrics
	InsufficientFunds Counter
	UnexpectedErrors  Counter

	// Restore metrics
	RestoreSuccess Counter
	RestoreFailure Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Billing metrics
		BillingSupported:    factory.Counter("economy.billing.supported"),
		BillingNotSupported: factory.Counter("economy.billing.not_supported"),

		// Market purchase metrics
		MarketPurchaseStarted:   factory.Counter("economy.market.purchase.started"),
		MarketPurchaseApplied:   factory.Counter("economy.market.purchase.applied"),
		MarketPurchaseCancelled: factory.Counter("economy.market.purchase.cancelled"),
		MarketRefunds:           factory.Counter("economy.market.refunds"),

		// Goods metrics
		GoodsPurchaseStarted: factory.Counter("economy.goods.purchase.started"),
		GoodsPurchased:       factory.Counter("economy.goods.purchased"),
		GoodsEquipped:        factory.Counter("economy.goods.equipped"),
		GoodsUnequipped:      factory.Counter("economy.goods.unequipped"),
		GoodsOwnedCount:      factory.Histogram("economy.goods.owned"),

		// Balance metrics
		BalanceCredits: factory.Counter("economy.balance.credits"),
		BalanceDebits:  factory.Counter("economy.balance.debits"),
		BalanceLevel:   factory.Histogram("economy.balance.level"),

		// Failure metrics
		InsufficientFunds: factory.Counter("economy.purchase.insufficient_funds"),
		UnexpectedErrors:  factory.Counter("economy.errors.unexpected"),

		// Restore metrics
		RestoreSuccess: factory.Counter("economy.restore.success"),
		RestoreFailure: factory.Counter("economy.restore.failure"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Billing availability hooks
// ──────────────────────────────────────────────────

// OnBillingSupported implements plugin.OnBillingSupported.
func (m *MetricsExtension) OnBillingSupported(_ context.Context) error {
	m.BillingSupported.Inc()
	return nil
}

// OnBillingNotSupported implements plugin.OnBillingNotSupported.
func (m *MetricsExtension) OnBillingNotSupported(_ context.Context) error {
	m.BillingNotSupported.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Market purchase hooks
// ──────────────────────────────────────────────────

// OnMarketPurchaseStarted implements plugin.OnMarketPurchaseStarted.
func (m *MetricsExtension) OnMarketPurchaseStarted(_ context.Context, _ string) error {
	m.MarketPurchaseStarted.Inc()
	return nil
}

// OnMarketPurchase implements plugin.OnMarketPurchase.
func (m *MetricsExtension) OnMarketPurchase(_ context.Context, _, _ string) error {
	m.MarketPurchaseApplied.Inc()
	return nil
}

// OnMarketPurchaseCancelled implements plugin.OnMarketPurchaseCancelled.
func (m *MetricsExtension) OnMarketPurchaseCancelled(_ context.Context, _ string) error {
	m.MarketPurchaseCancelled.Inc()
	return nil
}

// OnMarketRefund implements plugin.OnMarketRefund.
func (m *MetricsExtension) OnMarketRefund(_ context.Context, _, _ string) error {
	m.MarketRefunds.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Virtual goods hooks
// ──────────────────────────────────────────────────

// OnGoodsPurchaseStarted implements plugin.OnGoodsPurchaseStarted.
func (m *MetricsExtension) OnGoodsPurchaseStarted(_ context.Context, _ string) error {
	m.GoodsPurchaseStarted.Inc()
	return nil
}

// OnGoodsPurchased implements plugin.OnGoodsPurchased.
func (m *MetricsExtension) OnGoodsPurchased(_ context.Context, _ string, owned int64) error {
	m.GoodsPurchased.Inc()
	m.GoodsOwnedCount.Observe(float64(owned))
	return nil
}

// OnGoodEquipped implements plugin.OnGoodEquipped.
func (m *MetricsExtension) OnGoodEquipped(_ context.Context, _ string) error {
	m.GoodsEquipped.Inc()
	return nil
}

// OnGoodUnequipped implements plugin.OnGoodUnequipped.
func (m *MetricsExtension) OnGoodUnequipped(_ context.Context, _ string) error {
	m.GoodsUnequipped.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Balance hooks
// ──────────────────────────────────────────────────

// OnCurrencyBalanceChanged implements plugin.OnCurrencyBalanceChanged.
func (m *MetricsExtension) OnCurrencyBalanceChanged(_ context.Context, _ string, balance, delta int64) error {
	if delta >= 0 {
		m.BalanceCredits.Inc()
	} else {
		m.BalanceDebits.Inc()
	}
	m.BalanceLevel.Observe(float64(balance))
	return nil
}

// OnInsufficientFunds implements plugin.OnInsufficientFunds.
func (m *MetricsExtension) OnInsufficientFunds(_ context.Context, _, _ string, _, _ int64) error {
	m.InsufficientFunds.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Restore hooks
// ──────────────────────────────────────────────────

// OnRestoreCompleted implements plugin.OnRestoreCompleted.
func (m *MetricsExtension) OnRestoreCompleted(_ context.Context, success bool) error {
	if success {
		m.RestoreSuccess.Inc()
	} else {
		m.RestoreFailure.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Error hooks
// ──────────────────────────────────────────────────

// OnUnexpectedError implements plugin.OnUnexpectedError.
func (m *MetricsExtension) OnUnexpectedError(_ context.Context, _ error) error {
	m.UnexpectedErrors.Inc()
	return nil
}
