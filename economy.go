package economy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/xraph/economy/billing"
	"github.com/xraph/economy/catalog"
	"github.com/xraph/economy/plugin"
	"github.com/xraph/economy/store"
)

// Store is the reconciliation engine: the sole writer of ledger state. It
// combines catalog lookups with ledger mutations under a single mutex and
// emits outcome events through the plugin registry. Billing transport calls
// happen outside the critical section; transport callbacks re-enter through
// the billing.Observer methods.
type Store struct {
	catalog *catalog.Catalog
	ledger  store.Store
	billing billing.Service
	plugins *plugin.Registry
	logger  *slog.Logger

	// mu serializes every read-then-write ledger operation. Catalog reads
	// and transport calls stay outside it.
	mu     sync.Mutex
	opened bool

	// dupMarketNotifications controls whether a purchase notification for an
	// already-owned managed item still emits the market-purchase event.
	dupMarketNotifications bool
}

var _ billing.Observer = (*Store)(nil)

// New creates a new economy engine over the given catalog and ledger store.
func New(c *catalog.Catalog, ledger store.Store, opts ...Option) *Store {
	s := &Store{
		catalog: c,
		ledger:  ledger,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Option configures a Store instance.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
		s.plugins.WithLogger(logger)
	}
}

// WithBilling sets the market billing transport.
func WithBilling(svc billing.Service) Option {
	return func(s *Store) {
		s.billing = svc
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(s *Store) {
		_ = s.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithDuplicateMarketNotifications controls whether a purchase notification
// for an already-owned managed item re-emits the market-purchase event.
// State is never mutated twice either way. Default is suppression.
func WithDuplicateMarketNotifications(enabled bool) Option {
	return func(s *Store) {
		s.dupMarketNotifications = enabled
	}
}

// Catalog returns the read-only item catalog.
func (s *Store) Catalog() *catalog.Catalog { return s.catalog }

// Plugins returns the plugin registry.
func (s *Store) Plugins() *plugin.Registry { return s.plugins }

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Open migrates the ledger store, starts the billing transport, and kicks off
// a transaction restore when one has not completed before. Idempotent.
func (s *Store) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.opened {
		s.mu.Unlock()
		return nil
	}
	s.opened = true
	s.mu.Unlock()

	if err := s.ledger.Migrate(ctx); err != nil {
		s.setClosed()
		return fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}

	s.plugins.EmitInit(ctx, s)
	s.plugins.EmitStoreOpening(ctx)

	if s.billing == nil {
		s.logger.Info("store opened", "billing", false)
		return nil
	}

	if err := s.billing.Start(ctx, s); err != nil {
		s.setClosed()
		return fmt.Errorf("%w: %v", ErrBillingUnavailable, err)
	}

	if err := s.billing.CheckSupported(ctx); err != nil {
		s.logger.Warn("billing support check failed", "error", err)
	}

	restore, err := s.ShouldRestoreTransactions(ctx)
	if err != nil {
		return err
	}
	if restore {
		s.plugins.EmitRestoreStarted(ctx)
		if err := s.billing.RestoreTransactions(ctx); err != nil {
			s.logger.Warn("restore request failed", "error", err)
			s.plugins.EmitUnexpectedError(ctx, err)
		}
	}

	s.logger.Info("store opened", "billing", true, "restore_requested", restore)
	return nil
}

// Close stops the billing transport and shuts plugins down. The ledger store
// itself stays open; the caller owns its lifecycle. Idempotent.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.opened {
		s.mu.Unlock()
		return nil
	}
	s.opened = false
	s.mu.Unlock()

	s.plugins.EmitStoreClosing(ctx)

	if s.billing != nil {
		if err := s.billing.Stop(ctx); err != nil {
			return err
		}
	}

	s.plugins.EmitShutdown(ctx)
	s.logger.Info("store closed")
	return nil
}

func (s *Store) setClosed() {
	s.mu.Lock()
	s.opened = false
	s.mu.Unlock()
}

func (s *Store) isOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

// ──────────────────────────────────────────────────
// Virtual goods
// ──────────────────────────────────────────────────

// BuyGood spends virtual currency on a good. The affordability check and the
// debit-plus-credit batch run as one atomic operation: on any shortfall the
// typed InsufficientFundsError names the first short currency in the good's
// declared price order and nothing is written.
func (s *Store) BuyGood(ctx context.Context, goodID string) error {
	good, err := s.catalog.Good(goodID)
	if err != nil {
		return err
	}

	s.plugins.EmitGoodsPurchaseStarted(ctx, goodID)

	s.mu.Lock()
	err = s.ledger.ApplyGoodPurchase(ctx, goodID, good.Price)
	var owned int64
	if err == nil {
		owned, err = s.ledger.GoodCount(ctx, goodID)
	}
	s.mu.Unlock()

	if err != nil {
		var ife *InsufficientFundsError
		if errors.As(err, &ife) {
			s.logger.Debug("good purchase short",
				"good", goodID,
				"currency", ife.CurrencyID,
				"required", ife.Required,
				"balance", ife.Balance,
			)
			return err
		}
		return err
	}

	s.plugins.EmitGoodsPurchased(ctx, goodID, owned)
	s.plugins.EmitGoodBalanceChanged(ctx, goodID, owned, 1)
	s.logger.Debug("good purchased", "good", goodID, "owned", owned)
	return nil
}

// EquipGood marks an owned good as equipped. Equipping an unowned good fails
// with NotEnoughGoodsError.
func (s *Store) EquipGood(ctx context.Context, goodID string) error {
	if _, err := s.catalog.Good(goodID); err != nil {
		return err
	}

	s.mu.Lock()
	count, err := s.ledger.GoodCount(ctx, goodID)
	if err == nil {
		if count <= 0 {
			err = &NotEnoughGoodsError{GoodID: goodID}
		} else {
			err = s.ledger.SetEquipped(ctx, goodID, true)
		}
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}

	s.plugins.EmitGoodEquipped(ctx, goodID)
	return nil
}

// UnequipGood clears the equipped flag. There is no ownership precondition;
// unequipping an unowned good is a state no-op but still emits the event.
func (s *Store) UnequipGood(ctx context.Context, goodID string) error {
	if _, err := s.catalog.Good(goodID); err != nil {
		return err
	}

	s.mu.Lock()
	err := s.ledger.SetEquipped(ctx, goodID, false)
	s.mu.Unlock()

	if err != nil {
		return err
	}

	s.plugins.EmitGoodUnequipped(ctx, goodID)
	return nil
}

// GiveGood credits good ownership without payment (promotions, rewards).
func (s *Store) GiveGood(ctx context.Context, goodID string, amount int64) (int64, error) {
	if _, err := s.catalog.Good(goodID); err != nil {
		return 0, err
	}

	s.mu.Lock()
	owned, err := s.ledger.AddGood(ctx, goodID, amount)
	s.mu.Unlock()

	if err != nil {
		return 0, err
	}

	s.plugins.EmitGoodBalanceChanged(ctx, goodID, owned, amount)
	return owned, nil
}

// TakeGood removes owned goods. Fails with NotEnoughGoodsError when fewer
// than amount are owned; nothing is written in that case.
func (s *Store) TakeGood(ctx context.Context, goodID string, amount int64) (int64, error) {
	if _, err := s.catalog.Good(goodID); err != nil {
		return 0, err
	}

	s.mu.Lock()
	owned, err := s.ledger.RemoveGood(ctx, goodID, amount)
	s.mu.Unlock()

	if err != nil {
		return owned, err
	}

	s.plugins.EmitGoodBalanceChanged(ctx, goodID, owned, -amount)
	return owned, nil
}

// GoodCount returns the owned count for a catalog good.
func (s *Store) GoodCount(ctx context.Context, goodID string) (int64, error) {
	if _, err := s.catalog.Good(goodID); err != nil {
		return 0, err
	}
	return s.ledger.GoodCount(ctx, goodID)
}

// GoodEquipped reports whether a catalog good is equipped.
func (s *Store) GoodEquipped(ctx context.Context, goodID string) (bool, error) {
	if _, err := s.catalog.Good(goodID); err != nil {
		return false, err
	}
	return s.ledger.Equipped(ctx, goodID)
}

// ──────────────────────────────────────────────────
// Virtual currency
// ──────────────────────────────────────────────────

// CurrencyBalance returns the balance of a catalog currency.
func (s *Store) CurrencyBalance(ctx context.Context, currencyID string) (int64, error) {
	if _, err := s.catalog.Currency(currencyID); err != nil {
		return 0, err
	}
	return s.ledger.Balance(ctx, currencyID)
}

// GiveCurrency credits a currency balance without a market purchase.
func (s *Store) GiveCurrency(ctx context.Context, currencyID string, amount int64) (int64, error) {
	if _, err := s.catalog.Currency(currencyID); err != nil {
		return 0, err
	}

	s.mu.Lock()
	balance, err := s.ledger.AddBalance(ctx, currencyID, amount)
	s.mu.Unlock()

	if err != nil {
		return 0, err
	}

	s.plugins.EmitCurrencyBalanceChanged(ctx, currencyID, balance, amount)
	return balance, nil
}

// TakeCurrency debits a currency balance. Fails with InsufficientFundsError
// when the balance cannot cover amount; nothing is written in that case.
func (s *Store) TakeCurrency(ctx context.Context, currencyID string, amount int64) (int64, error) {
	if _, err := s.catalog.Currency(currencyID); err != nil {
		return 0, err
	}

	s.mu.Lock()
	balance, err := s.ledger.RemoveBalance(ctx, currencyID, amount)
	s.mu.Unlock()

	if err != nil {
		return balance, err
	}

	s.plugins.EmitCurrencyBalanceChanged(ctx, currencyID, balance, -amount)
	return balance, nil
}

// ──────────────────────────────────────────────────
// Market purchases
// ──────────────────────────────────────────────────

// BuyPack starts a market purchase for a currency pack product. The result
// arrives asynchronously through the billing observer surface.
func (s *Store) BuyPack(ctx context.Context, productID string) error {
	if _, err := s.catalog.PackByProduct(productID); err != nil {
		return err
	}
	return s.requestPurchase(ctx, productID)
}

// BuyManagedItem starts a market purchase for a managed item product.
func (s *Store) BuyManagedItem(ctx context.Context, productID string) error {
	if _, err := s.catalog.ManagedItemByProduct(productID); err != nil {
		return err
	}
	return s.requestPurchase(ctx, productID)
}

func (s *Store) requestPurchase(ctx context.Context, productID string) error {
	if !s.isOpen() {
		return ErrStoreNotReady
	}
	if s.billing == nil {
		return ErrBillingUnavailable
	}

	s.plugins.EmitMarketPurchaseStarted(ctx, productID)

	if err := s.billing.RequestPurchase(ctx, productID); err != nil {
		s.plugins.EmitUnexpectedError(ctx, err)
		return fmt.Errorf("%w: %v", ErrPurchaseFailed, err)
	}
	return nil
}

// ManagedItemOwned reports whether a managed item product is owned.
func (s *Store) ManagedItemOwned(ctx context.Context, productID string) (bool, error) {
	if _, err := s.catalog.ManagedItemByProduct(productID); err != nil {
		return false, err
	}
	return s.ledger.ManagedOwned(ctx, productID)
}

// ──────────────────────────────────────────────────
// Reconciliation
// ──────────────────────────────────────────────────

// ApplyPurchase maps a market purchase notification onto the ledger exactly
// once. The product resolves as a currency pack first, then as a managed
// item; an unknown product mutates nothing and is surfaced as an unexpected
// error. Redelivery of an already-applied order is a state no-op regardless
// of delivery count.
func (s *Store) ApplyPurchase(ctx context.Context, n billing.Notification) error {
	if n.ProductID == "" || n.OrderID == "" {
		return fmt.Errorf("%w: purchase notification needs product and order ids", ErrInvalidInput)
	}

	if pack, err := s.catalog.PackByProduct(n.ProductID); err == nil {
		return s.applyPackPurchase(ctx, pack, n)
	}
	if item, err := s.catalog.ManagedItemByProduct(n.ProductID); err == nil {
		return s.applyManagedPurchase(ctx, item, n)
	}

	err := fmt.Errorf("%w: unknown product %q", ErrUnexpectedExternal, n.ProductID)
	s.logger.Warn("purchase notification for unknown product",
		"product", n.ProductID,
		"order", n.OrderID,
	)
	s.plugins.EmitUnexpectedError(ctx, err)
	return err
}

func (s *Store) applyPackPurchase(ctx context.Context, pack *catalog.CurrencyPack, n billing.Notification) error {
	s.mu.Lock()
	err := s.ledger.RecordReceipt(ctx, &store.Receipt{
		OrderID:   n.OrderID,
		ProductID: n.ProductID,
		State:     store.ReceiptPurchased,
	})
	var balance int64
	if err == nil {
		balance, err = s.ledger.AddBalance(ctx, pack.CurrencyID, pack.Amount)
	}
	s.mu.Unlock()

	if errors.Is(err, ErrDuplicateOrder) {
		s.logger.Debug("duplicate purchase notification ignored",
			"product", n.ProductID,
			"order", n.OrderID,
		)
		return nil
	}
	if err != nil {
		s.plugins.EmitUnexpectedError(ctx, err)
		return err
	}

	s.plugins.EmitMarketPurchase(ctx, n.ProductID, n.OrderID)
	s.plugins.EmitCurrencyBalanceChanged(ctx, pack.CurrencyID, balance, pack.Amount)
	s.logger.Debug("pack purchase applied",
		"product", n.ProductID,
		"order", n.OrderID,
		"currency", pack.CurrencyID,
		"balance", balance,
	)
	return nil
}

func (s *Store) applyManagedPurchase(ctx context.Context, item *catalog.MarketItem, n billing.Notification) error {
	s.mu.Lock()
	err := s.ledger.RecordReceipt(ctx, &store.Receipt{
		OrderID:   n.OrderID,
		ProductID: n.ProductID,
		State:     store.ReceiptPurchased,
	})
	var alreadyOwned bool
	if err == nil {
		alreadyOwned, err = s.ledger.ManagedOwned(ctx, n.ProductID)
		if err == nil && !alreadyOwned {
			err = s.ledger.MarkManagedOwned(ctx, n.ProductID)
		}
	}
	s.mu.Unlock()

	if errors.Is(err, ErrDuplicateOrder) {
		s.logger.Debug("duplicate purchase notification ignored",
			"product", n.ProductID,
			"order", n.OrderID,
		)
		return nil
	}
	if err != nil {
		s.plugins.EmitUnexpectedError(ctx, err)
		return err
	}

	if alreadyOwned && !s.dupMarketNotifications {
		s.logger.Debug("managed item already owned, event suppressed",
			"product", n.ProductID,
			"order", n.OrderID,
		)
		return nil
	}

	s.plugins.EmitMarketPurchase(ctx, n.ProductID, n.OrderID)
	s.logger.Debug("managed purchase applied",
		"product", item.ProductID,
		"order", n.OrderID,
		"duplicate", alreadyOwned,
	)
	return nil
}

// ApplyRefund maps a market refund notification onto the event surface. The
// ledger is not mutated: refunds never claw balances or ownership back. A
// refund for an order the journal has never seen is still recorded so the
// journal stays complete.
func (s *Store) ApplyRefund(ctx context.Context, n billing.Notification) error {
	if n.ProductID == "" {
		return fmt.Errorf("%w: refund notification needs a product id", ErrInvalidInput)
	}

	_, packErr := s.catalog.PackByProduct(n.ProductID)
	if packErr != nil {
		if _, itemErr := s.catalog.ManagedItemByProduct(n.ProductID); itemErr != nil {
			err := fmt.Errorf("%w: unknown product %q", ErrUnexpectedExternal, n.ProductID)
			s.plugins.EmitUnexpectedError(ctx, err)
			return err
		}
	}

	if n.OrderID != "" {
		s.mu.Lock()
		err := s.ledger.RecordReceipt(ctx, &store.Receipt{
			OrderID:   n.OrderID,
			ProductID: n.ProductID,
			State:     store.ReceiptRefunded,
		})
		s.mu.Unlock()
		if err != nil && !errors.Is(err, ErrDuplicateOrder) {
			s.plugins.EmitUnexpectedError(ctx, err)
			return err
		}
	}

	s.plugins.EmitMarketRefund(ctx, n.ProductID, n.OrderID)
	s.logger.Info("refund recorded, ledger untouched",
		"product", n.ProductID,
		"order", n.OrderID,
	)
	return nil
}

// ──────────────────────────────────────────────────
// Restore
// ──────────────────────────────────────────────────

// ShouldRestoreTransactions reports whether a transaction restore has never
// completed for this ledger.
func (s *Store) ShouldRestoreTransactions(ctx context.Context) (bool, error) {
	done, err := s.ledger.RestoreCompleted(ctx)
	if err != nil {
		return false, err
	}
	return !done, nil
}

// MarkRestoreCompleted durably records that a restore finished. Future
// restores are suppressed only after the flag persists; a persistence
// failure leaves it unset.
func (s *Store) MarkRestoreCompleted(ctx context.Context) error {
	s.mu.Lock()
	err := s.ledger.SetRestoreCompleted(ctx)
	s.mu.Unlock()
	return err
}

// ──────────────────────────────────────────────────
// billing.Observer
// ──────────────────────────────────────────────────

// BillingSupported handles the transport's billing-support report.
func (s *Store) BillingSupported(ctx context.Context, supported bool) {
	s.logger.Info("billing support reported", "supported", supported)
	if supported {
		s.plugins.EmitBillingSupported(ctx)
	} else {
		s.plugins.EmitBillingNotSupported(ctx)
	}
}

// PurchaseStateChanged routes a terminal purchase state into reconciliation.
func (s *Store) PurchaseStateChanged(ctx context.Context, state billing.PurchaseState, n billing.Notification) {
	switch state {
	case billing.StatePurchased:
		_ = s.ApplyPurchase(ctx, n) //nolint:errcheck // failures surface via the unexpected-error hook
	case billing.StateRefunded:
		_ = s.ApplyRefund(ctx, n) //nolint:errcheck // failures surface via the unexpected-error hook
	case billing.StateCanceled:
		s.plugins.EmitMarketPurchaseCancelled(ctx, n.ProductID)
	}
}

// PurchaseResponse handles the transport-level outcome of a purchase request.
func (s *Store) PurchaseResponse(ctx context.Context, productID string, code billing.ResponseCode) {
	switch code {
	case billing.ResponseOK:
		s.logger.Debug("purchase request completed", "product", productID)
	case billing.ResponseUserCanceled:
		s.plugins.EmitMarketPurchaseCancelled(ctx, productID)
	case billing.ResponseError:
		err := fmt.Errorf("%w: purchase request for %q", ErrPurchaseFailed, productID)
		s.logger.Warn("purchase request failed", "product", productID)
		s.plugins.EmitUnexpectedError(ctx, err)
	}
}

// RestoreResponse handles the outcome of a restore request. Only a
// successful restore sets the one-shot suppression flag.
func (s *Store) RestoreResponse(ctx context.Context, code billing.ResponseCode) {
	if code != billing.ResponseOK {
		s.logger.Warn("restore failed", "code", code.String())
		s.plugins.EmitRestoreCompleted(ctx, false)
		return
	}

	if err := s.MarkRestoreCompleted(ctx); err != nil {
		s.logger.Warn("restore flag not persisted", "error", err)
		s.plugins.EmitUnexpectedError(ctx, err)
		s.plugins.EmitRestoreCompleted(ctx, false)
		return
	}

	s.plugins.EmitRestoreCompleted(ctx, true)
	s.logger.Info("restore completed")
}
