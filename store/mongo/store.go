// Package mongo provides a Store implementation backed by MongoDB via the
// Grove ORM. Counters are read-modify-write documents; the package relies on
// the engine being the single writer, which is the module-wide contract.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	economy "github.com/xraph/economy"
	"github.com/xraph/economy/catalog"
	"github.com/xraph/economy/id"
	ledgerstore "github.com/xraph/economy/store"
	"github.com/xraph/economy/types"
)

// Collection name constants.
const (
	colBalances     = "economy_balances"
	colGoods        = "economy_goods"
	colManagedItems = "economy_managed_items"
	colFlags        = "economy_flags"
	colReceipts     = "economy_receipts"
)

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all economy collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("economy/mongo: migrate %s indexes: %w", col, err)
		}
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
	var m balanceModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": currencyID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("economy/mongo: get balance: %w", err)
	}
	return m.Balance, nil
}

func (s *Store) AddBalance(ctx context.Context, currencyID string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, economy.ErrNegativeAmount
	}

	current, err := s.Balance(ctx, currencyID)
	if err != nil {
		return 0, err
	}
	next := current + amount

	if err := s.writeBalance(ctx, currencyID, next); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Store) RemoveBalance(ctx context.Context, currencyID string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, economy.ErrNegativeAmount
	}

	current, err := s.Balance(ctx, currencyID)
	if err != nil {
		return 0, err
	}
	if current < amount {
		return current, &economy.InsufficientFundsError{
			CurrencyID: currencyID,
			Required:   amount,
			Balance:    current,
		}
	}
	next := current - amount

	if err := s.writeBalance(ctx, currencyID, next); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Store) writeBalance(ctx context.Context, currencyID string, value int64) error {
	res, err := s.mdb.NewUpdate((*balanceModel)(nil)).
		Filter(bson.M{"_id": currencyID}).
		Set("balance", value).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("economy/mongo: write balance: %w", err)
	}
	if res.MatchedCount() == 0 {
		m := &balanceModel{CurrencyID: currencyID, Balance: value, UpdatedAt: now()}
		if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
			return fmt.Errorf("economy/mongo: write balance: %w", err)
		}
	}
	return nil
}

// ==================== Good ownership ====================

func (s *Store) GoodCount(ctx context.Context, goodID string) (int64, error) {
	m, err := s.findGood(ctx, goodID)
	if err != nil {
		return 0, err
	}
	if m == nil {
		return 0, nil
	}
	return m.OwnedCount, nil
}

func (s *Store) AddGood(ctx context.Context, goodID string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, economy.ErrNegativeAmount
	}

	m, err := s.findGood(ctx, goodID)
	if err != nil {
		return 0, err
	}

	var next int64
	var equipped bool
	if m != nil {
		next = m.OwnedCount + amount
		equipped = m.Equipped
	} else {
		next = amount
	}

	if err := s.writeGood(ctx, goodID, next, equipped, m != nil); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Store) RemoveGood(ctx context.Context, goodID string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, economy.ErrNegativeAmount
	}

	m, err := s.findGood(ctx, goodID)
	if err != nil {
		return 0, err
	}

	var current int64
	var equipped bool
	if m != nil {
		current = m.OwnedCount
		equipped = m.Equipped
	}
	if current < amount {
		return current, &economy.NotEnoughGoodsError{GoodID: goodID}
	}
	next := current - amount

	if err := s.writeGood(ctx, goodID, next, equipped, m != nil); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Store) Equipped(ctx context.Context, goodID string) (bool, error) {
	m, err := s.findGood(ctx, goodID)
	if err != nil {
		return false, err
	}
	if m == nil {
		return false, nil
	}
	return m.Equipped, nil
}

func (s *Store) SetEquipped(ctx context.Context, goodID string, equipped bool) error {
	m, err := s.findGood(ctx, goodID)
	if err != nil {
		return err
	}

	var count int64
	if m != nil {
		count = m.OwnedCount
	}
	return s.writeGood(ctx, goodID, count, equipped, m != nil)
}

// findGood returns nil without error when the good has no document yet.
func (s *Store) findGood(ctx context.Context, goodID string) (*goodModel, error) {
	var m goodModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": goodID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil //nolint:nilnil // absence is a valid, non-error state
		}
		return nil, fmt.Errorf("economy/mongo: get good: %w", err)
	}
	return &m, nil
}

func (s *Store) writeGood(ctx context.Context, goodID string, count int64, equipped, exists bool) error {
	if exists {
		_, err := s.mdb.NewUpdate((*goodModel)(nil)).
			Filter(bson.M{"_id": goodID}).
			Set("owned_count", count).
			Set("equipped", equipped).
			Set("updated_at", now()).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("economy/mongo: write good: %w", err)
		}
		return nil
	}

	m := &goodModel{GoodID: goodID, OwnedCount: count, Equipped: equipped, UpdatedAt: now()}
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("economy/mongo: write good: %w", err)
	}
	return nil
}

// ==================== Managed market items ====================

func (s *Store) ManagedOwned(ctx context.Context, productID string) (bool, error) {
	var m managedItemModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": productID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return false, nil
		}
		return false, fmt.Errorf("economy/mongo: get managed owned: %w", err)
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
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("economy/mongo: mark managed owned: %w", err)
	}
	return nil
}

// ==================== Restore flag ====================

func (s *Store) RestoreCompleted(ctx context.Context) (bool, error) {
	var m flagModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": flagRestoreCompleted}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return false, nil
		}
		return false, fmt.Errorf("economy/mongo: get restore flag: %w", err)
	}
	return m.Value, nil
}

func (s *Store) SetRestoreCompleted(ctx context.Context) error {
	res, err := s.mdb.NewUpdate((*flagModel)(nil)).
		Filter(bson.M{"_id": flagRestoreCompleted}).
		Set("value", true).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("economy/mongo: set restore flag: %w", err)
	}
	if res.MatchedCount() == 0 {
		m := &flagModel{Name: flagRestoreCompleted, Value: true, UpdatedAt: now()}
		if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
			return fmt.Errorf("economy/mongo: set restore flag: %w", err)
		}
	}
	return nil
}

// ==================== Purchase batch ====================

// ApplyGoodPurchase checks every balance before writing, then applies debits
// and the good credit. A mid-batch failure compensates the debits already
// written before reporting.
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

func (s *Store) compensate(ctx context.Context, applied []catalog.PriceEntry) {
	for _, d := range applied {
		_, _ = s.AddBalance(ctx, d.CurrencyID, d.Amount) //nolint:errcheck // best-effort rollback
	}
}

// ==================== Applied-order journal ====================

func (s *Store) RecordReceipt(ctx context.Context, r *ledgerstore.Receipt) error {
	var existing receiptModel
	err := s.mdb.NewFind(&existing).
		Filter(bson.M{"order_id": r.OrderID}).
		Scan(ctx)
	if err == nil {
		return economy.ErrDuplicateOrder
	}
	if !isNoDocuments(err) {
		return fmt.Errorf("economy/mongo: record receipt: %w", err)
	}

	if r.ID.IsNil() {
		r.ID = id.NewReceiptID()
	}
	if r.CreatedAt.IsZero() {
		r.Entity = types.NewEntity()
	}

	if _, err := s.mdb.NewInsert(toReceiptModel(r)).Exec(ctx); err != nil {
		return fmt.Errorf("economy/mongo: record receipt: %w", err)
	}
	return nil
}

func (s *Store) ReceiptByOrder(ctx context.Context, orderID string) (*ledgerstore.Receipt, error) {
	var m receiptModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"order_id": orderID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, economy.ErrNotFound
		}
		return nil, fmt.Errorf("economy/mongo: get receipt: %w", err)
	}
	return fromReceiptModel(&m)
}

// ==================== Administration ====================

func (s *Store) Clear(ctx context.Context) error {
	targets := []any{
		(*balanceModel)(nil),
		(*goodModel)(nil),
		(*managedItemModel)(nil),
		(*flagModel)(nil),
		(*receiptModel)(nil),
	}

	for _, target := range targets {
		if _, err := s.mdb.NewDelete(target).Filter(bson.M{}).Exec(ctx); err != nil {
			return fmt.Errorf("economy/mongo: clear: %w", err)
		}
	}
	return nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks for the mongo no-documents sentinel.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all economy collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colBalances:     {},
		colGoods:        {},
		colManagedItems: {},
		colFlags:        {},
		colReceipts: {
			{
				Keys:    bson.D{{Key: "order_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{{Key: "product_id", Value: 1}},
			},
		},
	}
}
