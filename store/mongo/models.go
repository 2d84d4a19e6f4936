package mongo

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

	CurrencyID string    `grove:"currency_id,pk" bson:"_id"`
	Balance    int64     `grove:"balance"        bson:"balance"`
	UpdatedAt  time.Time `grove:"updated_at"     bson:"updated_at"`
}

// ==================== Good models ====================

type goodModel struct {
	grove.BaseModel `grove:"table:economy_goods"`

	GoodID     string    `grove:"good_id,pk"  bson:"_id"`
	OwnedCount int64     `grove:"owned_count" bson:"owned_count"`
	Equipped   bool      `grove:"equipped"    bson:"equipped"`
	UpdatedAt  time.Time `grove:"updated_at"  bson:"updated_at"`
}

// ==================== Managed item models ====================

type managedItemModel struct {
	grove.BaseModel `grove:"table:economy_managed_items"`

	ProductID string    `grove:"product_id,pk" bson:"_id"`
	OwnedAt   time.Time `grove:"owned_at"      bson:"owned_at"`
}

// ==================== Flag models ====================

type flagModel struct {
	grove.BaseModel `grove:"table:economy_flags"`

	Name      string    `grove:"name,pk"    bson:"_id"`
	Value     bool      `grove:"value"      bson:"value"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

const flagRestoreCompleted = "restore_completed"

// ==================== Receipt models ====================

type receiptModel struct {
	grove.BaseModel `grove:"table:economy_receipts"`

	ID        string    `grove:"id,pk"      bson:"_id"`
	OrderID   string    `grove:"order_id"   bson:"order_id"`
	ProductID string    `grove:"product_id" bson:"product_id"`
	State     string    `grove:"state"      bson:"state"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
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
