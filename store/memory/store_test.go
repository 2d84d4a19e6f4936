package memory_test

import (
	"context"
	"errors"
	"testing"

	economy "github.com/xraph/economy"
	"github.com/xraph/economy/catalog"
	"github.com/xraph/economy/store"
	"github.com/xraph/economy/store/memory"
)

func TestBalances(t *testing.T) {
	ctx := context.Background()

	t.Run("absent key reads zero", func(t *testing.T) {
		s := memory.New()
		balance, err := s.Balance(ctx, "coins")
		if err != nil {
			t.Fatal(err)
		}
		if balance != 0 {
			t.Errorf("balance = %d, want 0", balance)
		}
	})

	t.Run("add and remove", func(t *testing.T) {
		s := memory.New()

		balance, err := s.AddBalance(ctx, "coins", 100)
		if err != nil || balance != 100 {
			t.Fatalf("AddBalance = %d, %v; want 100, nil", balance, err)
		}

		balance, err = s.RemoveBalance(ctx, "coins", 30)
		if err != nil || balance != 70 {
			t.Fatalf("RemoveBalance = %d, %v; want 70, nil", balance, err)
		}
	})

	t.Run("remove below zero fails without write", func(t *testing.T) {
		s := memory.New()
		if _, err := s.AddBalance(ctx, "coins", 10); err != nil {
			t.Fatal(err)
		}

		_, err := s.RemoveBalance(ctx, "coins", 11)
		var short *economy.InsufficientFundsError
		if !errors.As(err, &short) {
			t.Fatalf("expected InsufficientFundsError, got %v", err)
		}
		if short.CurrencyID != "coins" || short.Required != 11 || short.Balance != 10 {
			t.Errorf("error fields = %+v", short)
		}

		balance, _ := s.Balance(ctx, "coins")
		if balance != 10 {
			t.Errorf("balance = %d, want 10 (no write on failure)", balance)
		}
	})

	t.Run("negative amount rejected", func(t *testing.T) {
		s := memory.New()
		if _, err := s.AddBalance(ctx, "coins", -1); !errors.Is(err, economy.ErrNegativeAmount) {
			t.Errorf("AddBalance(-1) = %v, want ErrNegativeAmount", err)
		}
		if _, err := s.RemoveBalance(ctx, "coins", -1); !errors.Is(err, economy.ErrNegativeAmount) {
			t.Errorf("RemoveBalance(-1) = %v, want ErrNegativeAmount", err)
		}
	})
}

func TestGoods(t *testing.T) {
	ctx := context.Background()

	t.Run("count add remove", func(t *testing.T) {
		s := memory.New()

		count, err := s.AddGood(ctx, "sword", 3)
		if err != nil || count != 3 {
			t.Fatalf("AddGood = %d, %v; want 3, nil", count, err)
		}

		count, err = s.RemoveGood(ctx, "sword", 2)
		if err != nil || count != 1 {
			t.Fatalf("RemoveGood = %d, %v; want 1, nil", count, err)
		}
	})

	t.Run("remove more than owned fails", func(t *testing.T) {
		s := memory.New()

		_, err := s.RemoveGood(ctx, "sword", 1)
		var neg *economy.NotEnoughGoodsError
		if !errors.As(err, &neg) {
			t.Fatalf("expected NotEnoughGoodsError, got %v", err)
		}
	})

	t.Run("equip flag independent of count", func(t *testing.T) {
		s := memory.New()

		if err := s.SetEquipped(ctx, "sword", true); err != nil {
			t.Fatal(err)
		}
		equipped, err := s.Equipped(ctx, "sword")
		if err != nil || !equipped {
			t.Fatalf("Equipped = %v, %v; want true, nil", equipped, err)
		}

		if err := s.SetEquipped(ctx, "sword", false); err != nil {
			t.Fatal(err)
		}
		equipped, _ = s.Equipped(ctx, "sword")
		if equipped {
			t.Error("still equipped")
		}
	})
}

func TestManagedItems(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	owned, err := s.ManagedOwned(ctx, "no_ads")
	if err != nil || owned {
		t.Fatalf("ManagedOwned = %v, %v; want false, nil", owned, err)
	}

	// Marking twice is idempotent.
	if err := s.MarkManagedOwned(ctx, "no_ads"); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkManagedOwned(ctx, "no_ads"); err != nil {
		t.Fatal(err)
	}

	owned, _ = s.ManagedOwned(ctx, "no_ads")
	if !owned {
		t.Error("not owned after mark")
	}
}

func TestApplyGoodPurchase(t *testing.T) {
	ctx := context.Background()

	debits := []catalog.PriceEntry{
		{CurrencyID: "coins", Amount: 50},
		{CurrencyID: "gems", Amount: 10},
	}

	t.Run("all or nothing on success", func(t *testing.T) {
		s := memory.New()
		if _, err := s.AddBalance(ctx, "coins", 60); err != nil {
			t.Fatal(err)
		}
		if _, err := s.AddBalance(ctx, "gems", 10); err != nil {
			t.Fatal(err)
		}

		if err := s.ApplyGoodPurchase(ctx, "armor", debits); err != nil {
			t.Fatalf("ApplyGoodPurchase: %v", err)
		}

		coins, _ := s.Balance(ctx, "coins")
		gems, _ := s.Balance(ctx, "gems")
		count, _ := s.GoodCount(ctx, "armor")
		if coins != 10 || gems != 0 || count != 1 {
			t.Errorf("state = coins %d, gems %d, armor %d; want 10, 0, 1", coins, gems, count)
		}
	})

	t.Run("shortfall writes nothing", func(t *testing.T) {
		s := memory.New()
		if _, err := s.AddBalance(ctx, "coins", 60); err != nil {
			t.Fatal(err)
		}
		// gems stays 0

		err := s.ApplyGoodPurchase(ctx, "armor", debits)
		var short *economy.InsufficientFundsError
		if !errors.As(err, &short) {
			t.Fatalf("expected InsufficientFundsError, got %v", err)
		}
		if short.CurrencyID != "gems" {
			t.Errorf("short currency = %q, want gems", short.CurrencyID)
		}

		coins, _ := s.Balance(ctx, "coins")
		count, _ := s.GoodCount(ctx, "armor")
		if coins != 60 || count != 0 {
			t.Errorf("state = coins %d, armor %d; want 60, 0", coins, count)
		}
	})

	t.Run("first short currency in debit order", func(t *testing.T) {
		s := memory.New()

		err := s.ApplyGoodPurchase(ctx, "armor", debits)
		var short *economy.InsufficientFundsError
		if !errors.As(err, &short) {
			t.Fatalf("expected InsufficientFundsError, got %v", err)
		}
		if short.CurrencyID != "coins" {
			t.Errorf("short currency = %q, want coins (first in debit order)", short.CurrencyID)
		}
	})
}

func TestReceipts(t *testing.T) {
	ctx := context.Background()

	t.Run("record and fetch", func(t *testing.T) {
		s := memory.New()

		r := &store.Receipt{OrderID: "order-1", ProductID: "coins_1000", State: store.ReceiptPurchased}
		if err := s.RecordReceipt(ctx, r); err != nil {
			t.Fatal(err)
		}
		if r.ID.IsNil() {
			t.Error("receipt id not assigned")
		}

		got, err := s.ReceiptByOrder(ctx, "order-1")
		if err != nil {
			t.Fatal(err)
		}
		if got.ProductID != "coins_1000" || got.State != store.ReceiptPurchased {
			t.Errorf("receipt = %+v", got)
		}
	})

	t.Run("duplicate order rejected", func(t *testing.T) {
		s := memory.New()

		if err := s.RecordReceipt(ctx, &store.Receipt{OrderID: "order-1", ProductID: "a"}); err != nil {
			t.Fatal(err)
		}
		err := s.RecordReceipt(ctx, &store.Receipt{OrderID: "order-1", ProductID: "b"})
		if !errors.Is(err, economy.ErrDuplicateOrder) {
			t.Fatalf("expected ErrDuplicateOrder, got %v", err)
		}
	})

	t.Run("missing order is not found", func(t *testing.T) {
		s := memory.New()

		_, err := s.ReceiptByOrder(ctx, "ghost")
		if !errors.Is(err, economy.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestRestoreFlagAndClear(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	done, err := s.RestoreCompleted(ctx)
	if err != nil || done {
		t.Fatalf("RestoreCompleted = %v, %v; want false, nil", done, err)
	}

	if err := s.SetRestoreCompleted(ctx); err != nil {
		t.Fatal(err)
	}
	done, _ = s.RestoreCompleted(ctx)
	if !done {
		t.Error("flag not set")
	}

	if _, err := s.AddBalance(ctx, "coins", 5); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}

	balance, _ := s.Balance(ctx, "coins")
	if balance != 0 {
		t.Errorf("balance after clear = %d, want 0", balance)
	}
	done, _ = s.RestoreCompleted(ctx)
	if done {
		t.Error("restore flag survived clear")
	}
}
