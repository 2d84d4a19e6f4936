// Package postgres provides a Store implementation backed by PostgreSQL via
// the Grove ORM. Use it when ledger state is hosted server-side rather than
// on the device.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	economy "github.com/xraph/economy"
	"github.com/xraph/economy/catalog"
	"github.com/xraph/economy/id"
	ledgerstore "github.com/xraph/economy/store"
	"github.com/xraph/economy/types"
)

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
//
// The engine serializes every mutation, so the guarded updates below are a
// backstop against writers outside the engine, not the primary concurrency
// control.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("economy/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("economy/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Currency balances ====================

func (s *Store) Balance(ctx context.Context, currencyID string) (int64, error) {
	m := new(balanceModel)
	err := s.pg.NewSelect(m).
		Where("currency_id = ?", currencyID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("economy/postgres: get balance: %w", err)
	}
	return m.Balance, nil
}

func (s *Store) AddBalance(ctx context.Context, currencyID string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, economy.ErrNegativeAmount
	}

	res, err := s.pg.NewUpdate((*balanceModel)(nil)).
		Set("balance = balance + ?", amount).
		Set("updated_at = ?", now()).
		Where("currency_id = ?", currencyID).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("economy/postgres: add balance: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		m := &balanceModel{CurrencyID: currencyID, Balance: amount, UpdatedAt: now()}
		if _, err := s.pg.NewInsert(m).Exec(ctx); err != nil {
			return 0, fmt.Errorf("economy/postgres: add balance: %w", err)
		}
		return amount, nil
	}

	return s.Balance(ctx, currencyID)
}

func (s *Store) RemoveBalance(ctx context.Context, currencyID string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, economy.ErrNegativeAmount
	}

	res, err := s.pg.NewUpdate((*balanceModel)(nil)).
		Set("balance = balance - ?", amount).
		Set("updated_at = ?", now()).
		Where("currency_id = ?", currencyID).
		Where("balance >= ?", amount).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("economy/postgres: remove balance: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		current, err := s.Balance(ctx, currencyID)
		if err != nil {
			return 0, err
		}
		return current, &economy.InsufficientFundsError{
			CurrencyID: currencyID,
			Required:   amount,
			Balance:    current,
		}
	}

	return s.Balance(ctx, currencyID)
}

// ==================== Good ownership ====================

func (s *Store) GoodCount(ctx context.Context, goodID string) (int64, error) {
	m := new(goodModel)
	err := s.pg.NewSelect(m).
		Where("good_id = ?", goodID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("economy/postgres: get good count: %w", err)
	}
	return m.OwnedCount, nil
}

func (s *Store) AddGood(ctx context.Context, goodID string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, economy.ErrNegativeAmount
	}

	res, err := s.pg.NewUpdate((*goodModel)(nil)).
		Set("owned_count = owned_count + ?", amount).
		Set("updated_at = ?", now()).
		Where("good_id = ?", goodID).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("economy/postgres: add good: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		m := &goodModel{GoodID: goodID, OwnedCount: amount, UpdatedAt: now()}
		if _, err := s.pg.NewInsert(m).Exec(ctx); err != nil {
			return 0, fmt.Errorf("economy/postgres: add good: %w", err)
		}
		return amount, nil
	}

	return s.GoodCount(ctx, goodID)
}

func (s *Store) RemoveGood(ctx context.Context, goodID string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, economy.ErrNegativeAmount
	}

	res, err := s.pg.NewUpdate((*goodModel)(nil)).
		Set("owned_count = owned_count - ?", amount).
		Set("updated_at = ?", now()).
		Where("good_id = ?", goodID).
		Where("owned_count >= ?", amount).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("economy/postgres: remove good: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		current, err := s.GoodCount(ctx, goodID)
		if err != nil {
			return 0, err
		}
		return current, &economy.NotEnoughGoodsError{GoodID: goodID}
	}

	return s.GoodCount(ctx, goodID)
}

func (s *Store) Equipped(ctx context.Context, goodID string) (bool, error) {
	m := new(goodModel)
	err := s.pg.NewSelect(m).
		Where("good_id = ?", goodID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("economy/postgres: get equipped: %w", err)
	}
	return m.Equipped, nil
}

func (s *Store) SetEquipped(ctx context.Context, goodID string, equipped bool) error {
	res, err := s.pg.NewUpdate((*goodModel)(nil)).
		Set("equipped = ?", equipped).
		Set("updated_at = ?", now()).
		Where("good_id = ?", goodID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("economy/postgres: set equipped: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		m := &goodModel{GoodID: goodID, Equipped: equipped, UpdatedAt: now()}
		if _, err := s.pg.NewInsert(m).Exec(ctx); err != nil {
			return fmt.Errorf("economy/postgres: set equipped: %w", err)
		}
	}
	return nil
}

// ==================== Managed market items ====================

func (s *Store) ManagedOwned(ctx context.Context, productID string) (bool, error) {
	m := new(managedItemModel)
	err := s.pg.NewSelect(m).
		Where("product_id = ?", productID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("economy/postgres: get managed owned: %w", err)
	}
	return true, nil
}

func (s *Store) MarkManagedOwned(ctx context.Context, productID string) error {
	owned, err := s.ManagedOwned(ctx, productID)
	if err != nil {
		return err
	}
	if owned {
		return nil
	}

	m := &managedItemModel{ProductID: productID, OwnedAt: now()}
	if _, err := s.pg.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("economy/postgres: mark managed owned: %w", err)
	}
	return nil
}

// ==================== Restore flag ====================

func (s *Store) RestoreCompleted(ctx context.Context) (bool, error) {
	m := new(flagModel)
	err := s.pg.NewSelect(m).
		Where("name = ?", flagRestoreCompleted).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("economy/postgres: get restore flag: %w", err)
	}
	return m.Value, nil
}

func (s *Store) SetRestoreCompleted(ctx context.Context) error {
	res, err := s.pg.NewUpdate((*flagModel)(nil)).
		Set("value = ?", true).
		Set("updated_at = ?", now()).
		Where("name = ?", flagRestoreCompleted).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("economy/postgres: set restore flag: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		m := &flagModel{Name: flagRestoreCompleted, Value: true, UpdatedAt: now()}
		if _, err := s.pg.NewInsert(m).Exec(ctx); err != nil {
			return fmt.Errorf("economy/postgres: set restore flag: %w", err)
		}
	}
	return nil
}

// ==================== Purchase batch ====================

// ApplyGoodPurchase checks every balance first and only then applies the
// debits and the good credit. The guarded decrements re-verify the balance;
// a miss there means a writer bypassed the engine, and already-applied debits
// are compensated before reporting the failure.
func (s *Store) ApplyGoodPurchase(ctx context.Context, goodID string, debits []catalog.PriceEntry) error {
	for _, d := range debits {
		if d.Amount < 0 {
			return economy.ErrNegativeAmount
		}
		current, err := s.Balance(ctx, d.CurrencyID)
		if err != nil {
			return err
		}
		if current < d.Amount {
			return &economy.InsufficientFundsError{
				CurrencyID: d.CurrencyID,
				Required:   d.Amount,
				Balance:    current,
			}
		}
	}

	applied := make([]catalog.PriceEntry, 0, len(debits))
	for _, d := range debits {
		if _, err := s.RemoveBalance(ctx, d.CurrencyID, d.Amount); err != nil {
			s.compensate(ctx, applied)
			return fmt.Errorf("%w: debit %s: %v", economy.ErrTransactionFailed, d.CurrencyID, err)
		}
		applied = append(applied, d)
	}

	if _, err := s.AddGood(ctx, goodID, 1); err != nil {
		s.compensate(ctx, applied)
		return fmt.Errorf("%w: credit good %s: %v", economy.ErrTransactionFailed, goodID, err)
	}

	return nil
}

// compensate re-credits debits that were applied before a batch failed.
func (s *Store) compensate(ctx context.Context, applied []catalog.PriceEntry) {
	for _, d := range applied {
		_, _ = s.AddBalance(ctx, d.CurrencyID, d.Amount) //nolint:errcheck // best-effort rollback
	}
}

// ==================== Applied-order journal ====================

func (s *Store) RecordReceipt(ctx context.Context, r *ledgerstore.Receipt) error {
	existing := new(receiptModel)
	err := s.pg.NewSelect(existing).
		Where("order_id = ?", r.OrderID).
		Scan(ctx)
	if err == nil {
		return economy.ErrDuplicateOrder
	}
	if !isNoRows(err) {
		return fmt.Errorf("economy/postgres: record receipt: %w", err)
	}

	if r.ID.IsNil() {
		r.ID = id.NewReceiptID()
	}
	if r.CreatedAt.IsZero() {
		r.Entity = types.NewEntity()
	}

	if _, err := s.pg.NewInsert(toReceiptModel(r)).Exec(ctx); err != nil {
		return fmt.Errorf("economy/postgres: record receipt: %w", err)
	}
	return nil
}

func (s *Store) ReceiptByOrder(ctx context.Context, orderID string) (*ledgerstore.Receipt, error) {
	m := new(receiptModel)
	err := s.pg.NewSelect(m).
		Where("order_id = ?", orderID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, economy.ErrNotFound
		}
		return nil, fmt.Errorf("economy/postgres: get receipt: %w", err)
	}
	return fromReceiptModel(m)
}

// ==================== Administration ====================

func (s *Store) Clear(ctx context.Context) error {
	deletes := []func() error{
		func() error {
			_, err := s.pg.NewDelete((*balanceModel)(nil)).Where("1 = 1").Exec(ctx)
			return err
		},
		func() error {
			_, err := s.pg.NewDelete((*goodModel)(nil)).Where("1 = 1").Exec(ctx)
			return err
		},
		func() error {
			_, err := s.pg.NewDelete((*managedItemModel)(nil)).Where("1 = 1").Exec(ctx)
			return err
		},
		func() error {
			_, err := s.pg.NewDelete((*flagModel)(nil)).Where("1 = 1").Exec(ctx)
			return err
		},
		func() error {
			_, err := s.pg.NewDelete((*receiptModel)(nil)).Where("1 = 1").Exec(ctx)
			return err
		},
	}

	for _, del := range deletes {
		if err := del(); err != nil {
			return fmt.Errorf("economy/postgres: clear: %w", err)
		}
	}
	return nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
