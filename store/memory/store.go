// Package memory provides an in-process Store implementation. It is the
// default driver for tests and single-session use; state does not survive a
// restart, including the restore flag.
package memory

import (
	"context"
	"sync"

	economy "github.com/xraph/economy"
	"github.com/xraph/economy/catalog"
	"github.com/xraph/economy/id"
	ledgerstore "github.com/xraph/economy/store"
	"github.com/xraph/economy/types"
)

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	balances   map[string]int64
	goodCounts map[string]int64
	equipped   map[string]bool
	managed    map[string]bool
	receipts   map[string]*ledgerstore.Receipt // keyed by OrderID
	restored   bool
}

func New() *Store {
	return &Store{
		balances:   make(map[string]int64),
		goodCounts: make(map[string]int64),
		equipped:   make(map[string]bool),
		managed:    make(map[string]bool),
		receipts:   make(map[string]*ledgerstore.Receipt),
	}
}

// Currency balances

func (s *Store) Balance(_ context.Context, currencyID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.balances[currencyID], nil
}

func (s *Store) AddBalance(_ context.Context, currencyID string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, economy.ErrNegativeAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.balances[currencyID] += amount
	return s.balances[currencyID], nil
}

func (s *Store) RemoveBalance(_ context.Context, currencyID string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, economy.ErrNegativeAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.balances[currencyID]
	if current < amount {
		return current, &economy.InsufficientFundsError{
			CurrencyID: currencyID,
			Required:   amount,
			Balance:    current,
		}
	}

	s.balances[currencyID] = current - amount
	return s.balances[currencyID], nil
}

// Good ownership and equipment

func (s *Store) GoodCount(_ context.Context, goodID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.goodCounts[goodID], nil
}

func (s *Store) AddGood(_ context.Context, goodID string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, economy.ErrNegativeAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.goodCounts[goodID] += amount
	return s.goodCounts[goodID], nil
}

func (s *Store) RemoveGood(_ context.Context, goodID string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, economy.ErrNegativeAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.goodCounts[goodID]
	if current < amount {
		return current, &economy.NotEnoughGoodsError{GoodID: goodID}
	}

	s.goodCounts[goodID] = current - amount
	return s.goodCounts[goodID], nil
}

func (s *Store) Equipped(_ context.Context, goodID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.equipped[goodID], nil
}

func (s *Store) SetEquipped(_ context.Context, goodID string, equipped bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.equipped[goodID] = equipped
	return nil
}

// Managed market items

func (s *Store) ManagedOwned(_ context.Context, productID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.managed[productID], nil
}

func (s *Store) MarkManagedOwned(_ context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.managed[productID] = true
	return nil
}

// Restore flag

func (s *Store) RestoreCompleted(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.restored, nil
}

func (s *Store) SetRestoreCompleted(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.restored = true
	return nil
}

// ApplyGoodPurchase applies all debits and the good credit under one lock
// acquisition, checking every balance before writing anything.
func (s *Store) ApplyGoodPurchase(_ context.Context, goodID string, debits []catalog.PriceEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range debits {
		if d.Amount < 0 {
			return economy.ErrNegativeAmount
		}
		if current := s.balances[d.CurrencyID]; current < d.Amount {
			return &economy.InsufficientFundsError{
				CurrencyID: d.CurrencyID,
				Required:   d.Amount,
				Balance:    current,
			}
		}
	}

	for _, d := range debits {
		s.balances[d.CurrencyID] -= d.Amount
	}
	s.goodCounts[goodID]++

	return nil
}

// Applied-order journal

func (s *Store) RecordReceipt(_ context.Context, r *ledgerstore.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.receipts[r.OrderID]; exists {
		return economy.ErrDuplicateOrder
	}

	if r.ID.IsNil() {
		r.ID = id.NewReceiptID()
	}
	if r.CreatedAt.IsZero() {
		r.Entity = types.NewEntity()
	}

	s.receipts[r.OrderID] = r
	return nil
}

func (s *Store) ReceiptByOrder(_ context.Context, orderID string) (*ledgerstore.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.receipts[orderID]; ok {
		return r, nil
	}
	return nil, economy.ErrNotFound
}

// Clear wipes everything, restore flag included.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.balances = make(map[string]int64)
	s.goodCounts = make(map[string]int64)
	s.equipped = make(map[string]bool)
	s.managed = make(map[string]bool)
	s.receipts = make(map[string]*ledgerstore.Receipt)
	s.restored = false

	return nil
}

// Store management

func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}
