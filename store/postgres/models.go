package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/economy/id"
	ledgerstore "github.com/xraph/economy/store"
	"github.com/xraph/economy/types"
)

// ==================== Balance models ====================

type balanceModel struct {
	grove.BaseModel `grove:"table:economy_balances"`

	CurrencyID string    `grove:"currency_id,pk"`
	Balance    int64     `grove:"balance"`
	UpdatedAt  time.Time `grove:"updated_at"`
}

// ==================== Good models ====================

type goodModel struct {
	grove.BaseModel `grove:"table:economy_goods"`

	GoodID     string    `grove:"good_id,pk"`
	OwnedCount int64     `grove:"owned_count"`
	Equipped   bool      `grove:"equipped"`
	UpdatedAt  time.Time `grove:"updated_at"`
}

// ==================== Managed item models ====================

type managedItemModel struct {
	grove.BaseModel `grove:"table:economy_managed_items"`

	ProductID string    `grove:"product_id,pk"`
	OwnedAt   time.Time `grove:"owned_at"`
}

// ==================== Flag models ====================

// flagModel backs one-shot named flags; currently only the restore flag.
type flagModel struct {
	grove.BaseModel `grove:"table:economy_flags"`

	Name      string    `grove:"name,pk"`
	Value     bool      `grove:"value"`
	UpdatedAt time.Time `grove:"updated_at"`
}

const flagRestoreCompleted = "restore_completed"

// ==================== Receipt models ====================

type receiptModel struct {
	grove.BaseModel `grove:"table:economy_receipts"`

	ID        string    `grove:"id,pk"`
	OrderID   string    `grove:"order_id"`
	ProductID string    `grove:"product_id"`
	State     string    `grove:"state"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toReceiptModel(r *ledgerstore.Receipt) *receiptModel {
	return &receiptModel{
		ID:        r.ID.String(),
		OrderID:   r.OrderID,
		ProductID: r.ProductID,
		State:     string(r.State),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func fromReceiptModel(m *receiptModel) (*ledgerstore.Receipt, error) {
	receiptID, err := id.ParseReceiptID(m.ID)
	if err != nil {
		return nil, err
	}

	return &ledgerstore.Receipt{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:        receiptID,
		OrderID:   m.OrderID,
		ProductID: m.ProductID,
		State:     ledgerstore.ReceiptState(m.State),
	}, nil
}
