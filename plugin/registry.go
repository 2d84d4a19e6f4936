package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                    []OnInit
	onShutdown                []OnShutdown
	onStoreOpening            []OnStoreOpening
	onStoreClosing            []OnStoreClosing
	onBillingSupported        []OnBillingSupported
	onBillingNotSupported     []OnBillingNotSupported
	onMarketPurchaseStarted   []OnMarketPurchaseStarted
	onMarketPurchase          []OnMarketPurchase
	onMarketPurchaseCancelled []OnMarketPurchaseCancelled
	onMarketRefund            []OnMarketRefund
	onGoodsPurchaseStarted    []OnGoodsPurchaseStarted
	onGoodsPurchased          []OnGoodsPurchased
	onGoodEquipped            []OnGoodEquipped
	onGoodUnequipped          []OnGoodUnequipped
	onCurrencyBalanceChanged  []OnCurrencyBalanceChanged
	onGoodBalanceChanged      []OnGoodBalanceChanged
	onInsufficientFunds       []OnInsufficientFunds
	onRestoreStarted          []OnRestoreStarted
	onRestoreCompleted        []OnRestoreCompleted
	onUnexpectedError         []OnUnexpectedError
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnStoreOpening); ok {
		r.onStoreOpening = append(r.onStoreOpening, v)
	}
	if v, ok := p.(OnStoreClosing); ok {
		r.onStoreClosing = append(r.onStoreClosing, v)
	}
	if v, ok := p.(OnBillingSupported); ok {
		r.onBillingSupported = append(r.onBillingSupported, v)
	}
	if v, ok := p.(OnBillingNotSupported); ok {
		r.onBillingNotSupported = append(r.onBillingNotSupported, v)
	}
	if v, ok := p.(OnMarketPurchaseStarted); ok {
		r.onMarketPurchaseStarted = append(r.onMarketPurchaseStarted, v)
	}
	if v, ok := p.(OnMarketPurchase); ok {
		r.onMarketPurchase = append(r.onMarketPurchase, v)
	}
	if v, ok := p.(OnMarketPurchaseCancelled); ok {
		r.onMarketPurchaseCancelled = append(r.onMarketPurchaseCancelled, v)
	}
	if v, ok := p.(OnMarketRefund); ok {
		r.onMarketRefund = append(r.onMarketRefund, v)
	}
	if v, ok := p.(OnGoodsPurchaseStarted); ok {
		r.onGoodsPurchaseStarted = append(r.onGoodsPurchaseStarted, v)
	}
	if v, ok := p.(OnGoodsPurchased); ok {
		r.onGoodsPurchased = append(r.onGoodsPurchased, v)
	}
	if v, ok := p.(OnGoodEquipped); ok {
		r.onGoodEquipped = append(r.onGoodEquipped, v)
	}
	if v, ok := p.(OnGoodUnequipped); ok {
		r.onGoodUnequipped = append(r.onGoodUnequipped, v)
	}
	if v, ok := p.(OnCurrencyBalanceChanged); ok {
		r.onCurrencyBalanceChanged = append(r.onCurrencyBalanceChanged, v)
	}
	if v, ok := p.(OnGoodBalanceChanged); ok {
		r.onGoodBalanceChanged = append(r.onGoodBalanceChanged, v)
	}
	if v, ok := p.(OnInsufficientFunds); ok {
		r.onInsufficientFunds = append(r.onInsufficientFunds, v)
	}
	if v, ok := p.(OnRestoreStarted); ok {
		r.onRestoreStarted = append(r.onRestoreStarted, v)
	}
	if v, ok := p.(OnRestoreCompleted); ok {
		r.onRestoreCompleted = append(r.onRestoreCompleted, v)
	}
	if v, ok := p.(OnUnexpectedError); ok {
		r.onUnexpectedError = append(r.onUnexpectedError, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnStoreOpening)(nil)).Elem(), "OnStoreOpening")
	checkInterface(reflect.TypeOf((*OnMarketPurchase)(nil)).Elem(), "OnMarketPurchase")
	checkInterface(reflect.TypeOf((*OnMarketRefund)(nil)).Elem(), "OnMarketRefund")
	checkInterface(reflect.TypeOf((*OnGoodsPurchased)(nil)).Elem(), "OnGoodsPurchased")
	checkInterface(reflect.TypeOf((*OnInsufficientFunds)(nil)).Elem(), "OnInsufficientFunds")
	checkInterface(reflect.TypeOf((*OnRestoreCompleted)(nil)).Elem(), "OnRestoreCompleted")
	checkInterface(reflect.TypeOf((*OnUnexpectedError)(nil)).Elem(), "OnUnexpectedError")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, s interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, s)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitStoreOpening emits a storefront opening event.
func (r *Registry) EmitStoreOpening(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onStoreOpening
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnStoreOpening(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnStoreOpening failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitStoreClosing emits a storefront closing event.
func (r *Registry) EmitStoreClosing(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onStoreClosing
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnStoreClosing(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnStoreClosing failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitBillingSupported emits a billing supported event.
func (r *Registry) EmitBillingSupported(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onBillingSupported
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBillingSupported(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnBillingSupported failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitBillingNotSupported emits a billing not supported event.
func (r *Registry) EmitBillingNotSupported(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onBillingNotSupported
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBillingNotSupported(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnBillingNotSupported failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitMarketPurchaseStarted emits a market purchase started event.
func (r *Registry) EmitMarketPurchaseStarted(ctx context.Context, productID string) {
	r.mu.RLock()
	plugins := r.onMarketPurchaseStarted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnMarketPurchaseStarted(ctx, productID)
		}); err != nil {
			r.logger.Warn("plugin OnMarketPurchaseStarted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitMarketPurchase emits a market purchase applied event.
func (r *Registry) EmitMarketPurchase(ctx context.Context, productID, orderID string) {
	r.mu.RLock()
	plugins := r.onMarketPurchase
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnMarketPurchase(ctx, productID, orderID)
		}); err != nil {
			r.logger.Warn("plugin OnMarketPurchase failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitMarketPurchaseCancelled emits a market purchase cancelled event.
func (r *Registry) EmitMarketPurchaseCancelled(ctx context.Context, productID string) {
	r.mu.RLock()
	plugins := r.onMarketPurchaseCancelled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnMarketPurchaseCancelled(ctx, productID)
		}); err != nil {
			r.logger.Warn("plugin OnMarketPurchaseCancelled failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitMarketRefund emits a market refund event.
func (r *Registry) EmitMarketRefund(ctx context.Context, productID, orderID string) {
	r.mu.RLock()
	plugins := r.onMarketRefund
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnMarketRefund(ctx, productID, orderID)
		}); err != nil {
			r.logger.Warn("plugin OnMarketRefund failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitGoodsPurchaseStarted emits a goods purchase started event.
func (r *Registry) EmitGoodsPurchaseStarted(ctx context.Context, goodID string) {
	r.mu.RLock()
	plugins := r.onGoodsPurchaseStarted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnGoodsPurchaseStarted(ctx, goodID)
		}); err != nil {
			r.logger.Warn("plugin OnGoodsPurchaseStarted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitGoodsPurchased emits a goods purchased event.
func (r *Registry) EmitGoodsPurchased(ctx context.Context, goodID string, owned int64) {
	r.mu.RLock()
	plugins := r.onGoodsPurchased
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnGoodsPurchased(ctx, goodID, owned)
		}); err != nil {
			r.logger.Warn("plugin OnGoodsPurchased failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitGoodEquipped emits a good equipped event.
func (r *Registry) EmitGoodEquipped(ctx context.Context, goodID string) {
	r.mu.RLock()
	plugins := r.onGoodEquipped
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnGoodEquipped(ctx, goodID)
		}); err != nil {
			r.logger.Warn("plugin OnGoodEquipped failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitGoodUnequipped emits a good unequipped event.
func (r *Registry) EmitGoodUnequipped(ctx context.Context, goodID string) {
	r.mu.RLock()
	plugins := r.onGoodUnequipped
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnGoodUnequipped(ctx, goodID)
		}); err != nil {
			r.logger.Warn("plugin OnGoodUnequipped failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCurrencyBalanceChanged emits a currency balance changed event.
func (r *Registry) EmitCurrencyBalanceChanged(ctx context.Context, currencyID string, balance, delta int64) {
	r.mu.RLock()
	plugins := r.onCurrencyBalanceChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCurrencyBalanceChanged(ctx, currencyID, balance, delta)
		}); err != nil {
			r.logger.Warn("plugin OnCurrencyBalanceChanged failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitGoodBalanceChanged emits a good balance changed event.
func (r *Registry) EmitGoodBalanceChanged(ctx context.Context, goodID string, owned, delta int64) {
	r.mu.RLock()
	plugins := r.onGoodBalanceChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnGoodBalanceChanged(ctx, goodID, owned, delta)
		}); err != nil {
			r.logger.Warn("plugin OnGoodBalanceChanged failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInsufficientFunds emits an insufficient funds event.
func (r *Registry) EmitInsufficientFunds(ctx context.Context, itemID, currencyID string, required, balance int64) {
	r.mu.RLock()
	plugins := r.onInsufficientFunds
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInsufficientFunds(ctx, itemID, currencyID, required, balance)
		}); err != nil {
			r.logger.Warn("plugin OnInsufficientFunds failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRestoreStarted emits a restore started event.
func (r *Registry) EmitRestoreStarted(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onRestoreStarted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRestoreStarted(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnRestoreStarted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRestoreCompleted emits a restore completed event.
func (r *Registry) EmitRestoreCompleted(ctx context.Context, success bool) {
	r.mu.RLock()
	plugins := r.onRestoreCompleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRestoreCompleted(ctx, success)
		}); err != nil {
			r.logger.Warn("plugin OnRestoreCompleted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitUnexpectedError emits an unexpected error event.
func (r *Registry) EmitUnexpectedError(ctx context.Context, cause error) {
	r.mu.RLock()
	plugins := r.onUnexpectedError
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnUnexpectedError(ctx, cause)
		}); err != nil {
			r.logger.Warn("plugin OnUnexpectedError failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the purchase pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
