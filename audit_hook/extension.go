// Package audithook bridges economy engine events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/economy/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                    = (*Extension)(nil)
	_ plugin.OnMarketPurchaseStarted   = (*Extension)(nil)
	_ plugin.OnMarketPurchase          = (*Extension)(nil)
	_ plugin.OnMarketPurchaseCancelled = (*Extension)(nil)
	_ plugin.OnMarketRefund            = (*Extension)(nil)
	_ plugin.OnGoodsPurchased          = (*Extension)(nil)
	_ plugin.OnGoodEquipped            = (*Extension)(nil)
	_ plugin.OnGoodUnequipped          = (*Extension)(nil)
	_ plugin.OnCurrencyBalanceChanged  = (*Extension)(nil)
	_ plugin.OnInsufficientFunds       = (*Extension)(nil)
	_ plugin.OnBillingSupported        = (*Extension)(nil)
	_ plugin.OnBillingNotSupported     = (*Extension)(nil)
	_ plugin.OnRestoreStarted          = (*Extension)(nil)
	_ plugin.OnRestoreCompleted        = (*Extension)(nil)
	_ plugin.OnUnexpectedError         = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly — callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges economy engine events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Market hooks
// ──────────────────────────────────────────────────

// OnMarketPurchaseStarted implements plugin.OnMarketPurchaseStarted.
func (e *Extension) OnMarketPurchaseStarted(ctx context.Context, productID string) error {
	return e.record(ctx, ActionMarketPurchaseStarted, SeverityInfo, OutcomeSuccess,
		ResourceMarketItem, productID, CategoryMarket, nil,
		"product_id", productID,
	)
}

// OnMarketPurchase implements plugin.OnMarketPurchase.
func (e *Extension) OnMarketPurchase(ctx context.Context, productID, orderID string) error {
	return e.record(ctx, ActionMarketPurchase, SeverityInfo, OutcomeSuccess,
		ResourceMarketItem, productID, CategoryMarket, nil,
		"product_id", productID,
		"order_id", orderID,
	)
}

// OnMarketPurchaseCancelled implements plugin.OnMarketPurchaseCancelled.
func (e *Extension) OnMarketPurchaseCancelled(ctx context.Context, productID string) error {
	return e.record(ctx, ActionMarketPurchaseCancelled, SeverityInfo, OutcomePartial,
		ResourceMarketItem, productID, CategoryMarket, nil,
		"product_id", productID,
	)
}

// OnMarketRefund implements plugin.OnMarketRefund.
func (e *Extension) OnMarketRefund(ctx context.Context, productID, orderID string) error {
	return e.record(ctx, ActionMarketRefund, SeverityWarning, OutcomeSuccess,
		ResourceMarketItem, productID, CategoryMarket, nil,
		"product_id", productID,
		"order_id", orderID,
	)
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnGoodsPurchased implements plugin.OnGoodsPurchased.
func (e *Extension) OnGoodsPurchased(ctx context.Context, goodID string, owned int64) error {
	return e.record(ctx, ActionGoodsPurchased, SeverityInfo, OutcomeSuccess,
		ResourceGood, goodID, CategoryLedger, nil,
		"good_id", goodID,
		"owned", owned,
	)
}

// OnGoodEquipped implements plugin.OnGoodEquipped.
func (e *Extension) OnGoodEquipped(ctx context.Context, goodID string) error {
	return e.record(ctx, ActionGoodEquipped, SeverityInfo, OutcomeSuccess,
		ResourceGood, goodID, CategoryLedger, nil,
		"good_id", goodID,
	)
}

// OnGoodUnequipped implements plugin.OnGoodUnequipped.
func (e *Extension) OnGoodUnequipped(ctx context.Context, goodID string) error {
	return e.record(ctx, ActionGoodUnequipped, SeverityInfo, OutcomeSuccess,
		ResourceGood, goodID, CategoryLedger, nil,
		"good_id", goodID,
	)
}

// OnCurrencyBalanceChanged implements plugin.OnCurrencyBalanceChanged.
func (e *Extension) OnCurrencyBalanceChanged(ctx context.Context, currencyID string, balance, delta int64) error {
	return e.record(ctx, ActionBalanceChanged, SeverityInfo, OutcomeSuccess,
		ResourceCurrency, currencyID, CategoryLedger, nil,
		"currency_id", currencyID,
		"balance", balance,
		"delta", delta,
	)
}

// OnInsufficientFunds implements plugin.OnInsufficientFunds.
func (e *Extension) OnInsufficientFunds(ctx context.Context, itemID, currencyID string, required, balance int64) error {
	return e.record(ctx, ActionInsufficientPay, SeverityWarning, OutcomeFailure,
		ResourceGood, itemID, CategoryLedger, nil,
		"item_id", itemID,
		"currency_id", currencyID,
		"required", required,
		"balance", balance,
	)
}

// ──────────────────────────────────────────────────
// Billing hooks
// ──────────────────────────────────────────────────

// OnBillingSupported implements plugin.OnBillingSupported.
func (e *Extension) OnBillingSupported(ctx context.Context) error {
	return e.record(ctx, ActionBillingSupported, SeverityInfo, OutcomeSuccess,
		ResourceBilling, "", CategoryBilling, nil,
		"event", "billing_supported",
	)
}

// OnBillingNotSupported implements plugin.OnBillingNotSupported.
func (e *Extension) OnBillingNotSupported(ctx context.Context) error {
	return e.record(ctx, ActionBillingNotSupported, SeverityWarning, OutcomeFailure,
		ResourceBilling, "", CategoryBilling, nil,
		"event", "billing_not_supported",
	)
}

// ──────────────────────────────────────────────────
// Restore hooks
// ──────────────────────────────────────────────────

// OnRestoreStarted implements plugin.OnRestoreStarted.
func (e *Extension) OnRestoreStarted(ctx context.Context) error {
	return e.record(ctx, ActionRestoreStarted, SeverityInfo, OutcomeSuccess,
		ResourceRestore, "", CategoryBilling, nil,
		"event", "restore_started",
	)
}

// OnRestoreCompleted implements plugin.OnRestoreCompleted.
func (e *Extension) OnRestoreCompleted(ctx context.Context, success bool) error {
	if !success {
		return e.record(ctx, ActionRestoreFailed, SeverityError, OutcomeFailure,
			ResourceRestore, "", CategoryBilling, nil,
			"event", "restore_failed",
		)
	}
	return e.record(ctx, ActionRestoreCompleted, SeverityInfo, OutcomeSuccess,
		ResourceRestore, "", CategoryBilling, nil,
		"event", "restore_completed",
	)
}

// ──────────────────────────────────────────────────
// Error hooks
// ──────────────────────────────────────────────────

// OnUnexpectedError implements plugin.OnUnexpectedError.
func (e *Extension) OnUnexpectedError(ctx context.Context, cause error) error {
	return e.record(ctx, ActionUnexpectedError, SeverityCritical, OutcomeFailure,
		ResourceEngine, "", CategorySystem, cause,
		"event", "unexpected_error",
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
