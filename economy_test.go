package economy_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	economy "github.com/xraph/economy"
	"github.com/xraph/economy/billing"
	"github.com/xraph/economy/billing/sandbox"
	"github.com/xraph/economy/catalog"
	"github.com/xraph/economy/store/memory"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	cat, err := catalog.New(catalog.Assets{
		Currencies: []catalog.Currency{
			{ItemID: "coins", Name: "Coins"},
			{ItemID: "gems", Name: "Gems"},
		},
		Goods: []catalog.Good{
			{
				ItemID: "sword",
				Price:  []catalog.PriceEntry{{CurrencyID: "coins", Amount: 100}},
			},
			{
				ItemID: "armor",
				Price: []catalog.PriceEntry{
					{CurrencyID: "coins", Amount: 50},
					{CurrencyID: "gems", Amount: 10},
				},
			},
		},
		Packs: []catalog.CurrencyPack{
			{ItemID: "coins_1000", ProductID: "com.example.coins1000", CurrencyID: "coins", Amount: 1000},
		},
		ManagedItems: []catalog.MarketItem{
			{ProductID: "com.example.no_ads", Name: "Remove Ads"},
		},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return cat
}

// recorder captures emitted events for assertions.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) record(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

func (r *recorder) OnMarketPurchase(ctx context.Context, productID, orderID string) error {
	r.record("market_purchase:" + productID)
	return nil
}

func (r *recorder) OnMarketRefund(ctx context.Context, productID, orderID string) error {
	r.record("market_refund:" + productID)
	return nil
}

func (r *recorder) OnMarketPurchaseCancelled(ctx context.Context, productID string) error {
	r.record("market_cancelled:" + productID)
	return nil
}

func (r *recorder) OnGoodsPurchased(ctx context.Context, goodID string, owned int64) error {
	r.record("goods_purchased:" + goodID)
	return nil
}

func (r *recorder) OnGoodEquipped(ctx context.Context, goodID string) error {
	r.record("equipped:" + goodID)
	return nil
}

func (r *recorder) OnGoodUnequipped(ctx context.Context, goodID string) error {
	r.record("unequipped:" + goodID)
	return nil
}

func (r *recorder) OnUnexpectedError(ctx context.Context, err error) error {
	r.record("unexpected_error")
	return nil
}

func (r *recorder) OnRestoreCompleted(ctx context.Context, success bool) error {
	if success {
		r.record("restore_completed")
	} else {
		r.record("restore_failed")
	}
	return nil
}

func TestBuyGood(t *testing.T) {
	ctx := context.Background()

	t.Run("success debits and credits atomically", func(t *testing.T) {
		mem := memory.New()
		s := economy.New(testCatalog(t), mem)

		if _, err := s.GiveCurrency(ctx, "coins", 150); err != nil {
			t.Fatal(err)
		}
		if err := s.BuyGood(ctx, "sword"); err != nil {
			t.Fatalf("BuyGood: %v", err)
		}

		balance, _ := s.CurrencyBalance(ctx, "coins")
		if balance != 50 {
			t.Errorf("balance = %d, want 50", balance)
		}
		count, _ := s.GoodCount(ctx, "sword")
		if count != 1 {
			t.Errorf("count = %d, want 1", count)
		}
	})

	t.Run("shortfall leaves state untouched", func(t *testing.T) {
		s := economy.New(testCatalog(t), memory.New())

		if _, err := s.GiveCurrency(ctx, "coins", 200); err != nil {
			t.Fatal(err)
		}
		// Only 5 gems: armor needs 50 coins + 10 gems.
		if _, err := s.GiveCurrency(ctx, "gems", 5); err != nil {
			t.Fatal(err)
		}

		err := s.BuyGood(ctx, "armor")
		var short *economy.InsufficientFundsError
		if !errors.As(err, &short) {
			t.Fatalf("expected InsufficientFundsError, got %v", err)
		}

		// No partial debits.
		coins, _ := s.CurrencyBalance(ctx, "coins")
		if coins != 200 {
			t.Errorf("coins = %d, want 200 (no partial debit)", coins)
		}
		gems, _ := s.CurrencyBalance(ctx, "gems")
		if gems != 5 {
			t.Errorf("gems = %d, want 5", gems)
		}
		count, _ := s.GoodCount(ctx, "armor")
		if count != 0 {
			t.Errorf("count = %d, want 0", count)
		}
	})

	t.Run("shortfall names first short currency in declared order", func(t *testing.T) {
		s := economy.New(testCatalog(t), memory.New())

		// Both currencies short; coins is declared first in armor's price.
		err := s.BuyGood(ctx, "armor")
		var short *economy.InsufficientFundsError
		if !errors.As(err, &short) {
			t.Fatalf("expected InsufficientFundsError, got %v", err)
		}
		if short.CurrencyID != "coins" {
			t.Errorf("short currency = %q, want %q (declared order, not magnitude)", short.CurrencyID, "coins")
		}
	})

	t.Run("unknown good propagates not found", func(t *testing.T) {
		s := economy.New(testCatalog(t), memory.New())

		err := s.BuyGood(ctx, "ghost")
		if !economy.IsNotFound(err) {
			t.Fatalf("expected not-found, got %v", err)
		}
	})
}

func TestEquipGood(t *testing.T) {
	ctx := context.Background()

	t.Run("equip requires ownership", func(t *testing.T) {
		s := economy.New(testCatalog(t), memory.New())

		err := s.EquipGood(ctx, "sword")
		var neg *economy.NotEnoughGoodsError
		if !errors.As(err, &neg) {
			t.Fatalf("expected NotEnoughGoodsError, got %v", err)
		}
		if neg.GoodID != "sword" {
			t.Errorf("good = %q, want %q", neg.GoodID, "sword")
		}
	})

	t.Run("equip then unequip", func(t *testing.T) {
		rec := &recorder{}
		s := economy.New(testCatalog(t), memory.New(), economy.WithPlugin(rec))

		if _, err := s.GiveGood(ctx, "sword", 1); err != nil {
			t.Fatal(err)
		}
		if err := s.EquipGood(ctx, "sword"); err != nil {
			t.Fatalf("EquipGood: %v", err)
		}
		equipped, _ := s.GoodEquipped(ctx, "sword")
		if !equipped {
			t.Error("sword not equipped")
		}

		if err := s.UnequipGood(ctx, "sword"); err != nil {
			t.Fatalf("UnequipGood: %v", err)
		}
		equipped, _ = s.GoodEquipped(ctx, "sword")
		if equipped {
			t.Error("sword still equipped")
		}
	})

	t.Run("unequip unowned good is a state no-op but emits", func(t *testing.T) {
		rec := &recorder{}
		s := economy.New(testCatalog(t), memory.New(), economy.WithPlugin(rec))

		if err := s.UnequipGood(ctx, "armor"); err != nil {
			t.Fatalf("UnequipGood: %v", err)
		}
		if rec.count("unequipped:armor") != 1 {
			t.Error("unequipped event not emitted")
		}
	})
}

func TestApplyPurchase(t *testing.T) {
	ctx := context.Background()

	t.Run("pack credits its currency", func(t *testing.T) {
		s := economy.New(testCatalog(t), memory.New())

		err := s.ApplyPurchase(ctx, billing.Notification{
			ProductID: "com.example.coins1000",
			OrderID:   "order-1",
		})
		if err != nil {
			t.Fatalf("ApplyPurchase: %v", err)
		}

		balance, _ := s.CurrencyBalance(ctx, "coins")
		if balance != 1000 {
			t.Errorf("balance = %d, want 1000", balance)
		}
	})

	t.Run("redelivered order is a state no-op", func(t *testing.T) {
		rec := &recorder{}
		s := economy.New(testCatalog(t), memory.New(), economy.WithPlugin(rec))

		n := billing.Notification{ProductID: "com.example.coins1000", OrderID: "order-1"}
		for i := 0; i < 3; i++ {
			if err := s.ApplyPurchase(ctx, n); err != nil {
				t.Fatalf("ApplyPurchase #%d: %v", i, err)
			}
		}

		balance, _ := s.CurrencyBalance(ctx, "coins")
		if balance != 1000 {
			t.Errorf("balance = %d, want 1000 (exactly-once)", balance)
		}
		if got := rec.count("market_purchase:com.example.coins1000"); got != 1 {
			t.Errorf("market_purchase emitted %d times, want 1", got)
		}
	})

	t.Run("managed item marked owned once", func(t *testing.T) {
		rec := &recorder{}
		s := economy.New(testCatalog(t), memory.New(), economy.WithPlugin(rec))

		first := billing.Notification{ProductID: "com.example.no_ads", OrderID: "order-a"}
		second := billing.Notification{ProductID: "com.example.no_ads", OrderID: "order-b"}

		if err := s.ApplyPurchase(ctx, first); err != nil {
			t.Fatal(err)
		}
		if err := s.ApplyPurchase(ctx, second); err != nil {
			t.Fatal(err)
		}

		owned, _ := s.ManagedItemOwned(ctx, "com.example.no_ads")
		if !owned {
			t.Error("managed item not owned")
		}
		// Default policy suppresses the duplicate event.
		if got := rec.count("market_purchase:com.example.no_ads"); got != 1 {
			t.Errorf("market_purchase emitted %d times, want 1", got)
		}
	})

	t.Run("duplicate managed event configurable", func(t *testing.T) {
		rec := &recorder{}
		s := economy.New(testCatalog(t), memory.New(),
			economy.WithPlugin(rec),
			economy.WithDuplicateMarketNotifications(true),
		)

		if err := s.ApplyPurchase(ctx, billing.Notification{ProductID: "com.example.no_ads", OrderID: "order-a"}); err != nil {
			t.Fatal(err)
		}
		if err := s.ApplyPurchase(ctx, billing.Notification{ProductID: "com.example.no_ads", OrderID: "order-b"}); err != nil {
			t.Fatal(err)
		}

		if got := rec.count("market_purchase:com.example.no_ads"); got != 2 {
			t.Errorf("market_purchase emitted %d times, want 2", got)
		}
	})

	t.Run("unknown product emits unexpected error", func(t *testing.T) {
		rec := &recorder{}
		s := economy.New(testCatalog(t), memory.New(), economy.WithPlugin(rec))

		err := s.ApplyPurchase(ctx, billing.Notification{ProductID: "com.example.ghost", OrderID: "order-x"})
		if !errors.Is(err, economy.ErrUnexpectedExternal) {
			t.Fatalf("expected ErrUnexpectedExternal, got %v", err)
		}
		if rec.count("unexpected_error") != 1 {
			t.Error("unexpected_error not emitted")
		}
	})
}

func TestApplyRefund(t *testing.T) {
	ctx := context.Background()

	t.Run("refund never claws back", func(t *testing.T) {
		rec := &recorder{}
		s := economy.New(testCatalog(t), memory.New(), economy.WithPlugin(rec))

		n := billing.Notification{ProductID: "com.example.coins1000", OrderID: "order-1"}
		if err := s.ApplyPurchase(ctx, n); err != nil {
			t.Fatal(err)
		}
		if err := s.ApplyRefund(ctx, n); err != nil {
			t.Fatalf("ApplyRefund: %v", err)
		}

		balance, _ := s.CurrencyBalance(ctx, "coins")
		if balance != 1000 {
			t.Errorf("balance = %d after refund, want 1000 (no clawback)", balance)
		}
		if rec.count("market_refund:com.example.coins1000") != 1 {
			t.Error("market_refund not emitted")
		}
	})

	t.Run("refund for unknown product emits unexpected error", func(t *testing.T) {
		s := economy.New(testCatalog(t), memory.New())

		err := s.ApplyRefund(ctx, billing.Notification{ProductID: "com.example.ghost", OrderID: "order-x"})
		if !errors.Is(err, economy.ErrUnexpectedExternal) {
			t.Fatalf("expected ErrUnexpectedExternal, got %v", err)
		}
	})
}

func TestRestoreFlag(t *testing.T) {
	ctx := context.Background()

	t.Run("suppressed only after durable persist", func(t *testing.T) {
		mem := memory.New()
		s := economy.New(testCatalog(t), mem)

		should, err := s.ShouldRestoreTransactions(ctx)
		if err != nil || !should {
			t.Fatalf("ShouldRestoreTransactions = %v, %v; want true, nil", should, err)
		}

		if err := s.MarkRestoreCompleted(ctx); err != nil {
			t.Fatal(err)
		}

		// A fresh engine over the same store sees the flag.
		s2 := economy.New(testCatalog(t), mem)
		should, err = s2.ShouldRestoreTransactions(ctx)
		if err != nil || should {
			t.Fatalf("ShouldRestoreTransactions = %v, %v; want false, nil", should, err)
		}
	})
}

func TestConcurrentBuyGood(t *testing.T) {
	ctx := context.Background()

	// Enough coins for exactly one sword: concurrent buyers race on the
	// same balance and exactly one must win.
	s := economy.New(testCatalog(t), memory.New())
	if _, err := s.GiveCurrency(ctx, "coins", 100); err != nil {
		t.Fatal(err)
	}

	const buyers = 8
	var wg sync.WaitGroup
	results := make([]error, buyers)

	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.BuyGood(ctx, "sword")
		}(i)
	}
	wg.Wait()

	var wins, shorts int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, economy.ErrInsufficientFunds):
			shorts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("wins = %d, want exactly 1", wins)
	}
	if shorts != buyers-1 {
		t.Errorf("shortfalls = %d, want %d", shorts, buyers-1)
	}

	balance, _ := s.CurrencyBalance(ctx, "coins")
	if balance != 0 {
		t.Errorf("balance = %d, want 0", balance)
	}
	count, _ := s.GoodCount(ctx, "sword")
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestSandboxFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("pack purchase end to end", func(t *testing.T) {
		rec := &recorder{}
		svc := sandbox.New()
		s := economy.New(testCatalog(t), memory.New(),
			economy.WithBilling(svc),
			economy.WithPlugin(rec),
		)

		if err := s.Open(ctx); err != nil {
			t.Fatal(err)
		}
		defer s.Close(ctx)

		if err := s.BuyPack(ctx, "com.example.coins1000"); err != nil {
			t.Fatalf("BuyPack: %v", err)
		}

		balance, _ := s.CurrencyBalance(ctx, "coins")
		if balance != 1000 {
			t.Errorf("balance = %d, want 1000", balance)
		}
		if rec.count("market_purchase:com.example.coins1000") != 1 {
			t.Error("market_purchase not emitted")
		}
	})

	t.Run("canceled purchase mutates nothing", func(t *testing.T) {
		rec := &recorder{}
		svc := sandbox.New()
		s := economy.New(testCatalog(t), memory.New(),
			economy.WithBilling(svc),
			economy.WithPlugin(rec),
		)

		if err := s.Open(ctx); err != nil {
			t.Fatal(err)
		}
		defer s.Close(ctx)

		svc.Cancel("com.example.coins1000")
		if err := s.BuyPack(ctx, "com.example.coins1000"); err != nil {
			t.Fatalf("BuyPack: %v", err)
		}

		balance, _ := s.CurrencyBalance(ctx, "coins")
		if balance != 0 {
			t.Errorf("balance = %d, want 0", balance)
		}
		if rec.count("market_cancelled:com.example.coins1000") != 1 {
			t.Error("market_cancelled not emitted")
		}
	})

	t.Run("open restores only once", func(t *testing.T) {
		rec := &recorder{}
		mem := memory.New()
		svc := sandbox.New()
		s := economy.New(testCatalog(t), mem,
			economy.WithBilling(svc),
			economy.WithPlugin(rec),
		)

		if err := s.Open(ctx); err != nil {
			t.Fatal(err)
		}
		if rec.count("restore_completed") != 1 {
			t.Fatal("restore did not complete on first open")
		}
		if err := s.Close(ctx); err != nil {
			t.Fatal(err)
		}

		// Second lifecycle over the same store: flag suppresses restore.
		s2 := economy.New(testCatalog(t), mem,
			economy.WithBilling(svc),
			economy.WithPlugin(rec),
		)
		if err := s2.Open(ctx); err != nil {
			t.Fatal(err)
		}
		defer s2.Close(ctx)

		if got := rec.count("restore_completed"); got != 1 {
			t.Errorf("restore completed %d times, want 1", got)
		}
	})

	t.Run("buy requires open store", func(t *testing.T) {
		s := economy.New(testCatalog(t), memory.New(), economy.WithBilling(sandbox.New()))

		err := s.BuyPack(ctx, "com.example.coins1000")
		if !errors.Is(err, economy.ErrStoreNotReady) {
			t.Fatalf("expected ErrStoreNotReady, got %v", err)
		}
	})
}
