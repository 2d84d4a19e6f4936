package catalog_test

import (
	"errors"
	"testing"

	"github.com/xraph/economy/catalog"
)

func validAssets() catalog.Assets {
	return catalog.Assets{
		Currencies: []catalog.Currency{
			{ItemID: "coins", Name: "Coins"},
			{ItemID: "gems", Name: "Gems"},
		},
		Goods: []catalog.Good{
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
	}
}

func TestLookups(t *testing.T) {
	cat, err := catalog.New(validAssets())
	if err != nil {
		t.Fatal(err)
	}

	t.Run("currency", func(t *testing.T) {
		cur, err := cat.Currency("coins")
		if err != nil {
			t.Fatal(err)
		}
		if cur.Name != "Coins" {
			t.Errorf("name = %q", cur.Name)
		}

		if _, err := cat.Currency("ghost"); !errors.Is(err, catalog.ErrCurrencyNotFound) {
			t.Errorf("miss = %v, want ErrCurrencyNotFound", err)
		}
	})

	t.Run("good", func(t *testing.T) {
		g, err := cat.Good("armor")
		if err != nil {
			t.Fatal(err)
		}
		if len(g.Price) != 2 {
			t.Fatalf("price entries = %d", len(g.Price))
		}
		// Declared order is preserved.
		if g.Price[0].CurrencyID != "coins" || g.Price[1].CurrencyID != "gems" {
			t.Errorf("price order = %v", g.Price)
		}

		amount, ok := g.PriceIn("gems")
		if !ok || amount != 10 {
			t.Errorf("PriceIn(gems) = %d, %v", amount, ok)
		}
		if _, ok := g.PriceIn("ghost"); ok {
			t.Error("PriceIn(ghost) = true")
		}

		if _, err := cat.Good("ghost"); !errors.Is(err, catalog.ErrGoodNotFound) {
			t.Errorf("miss = %v, want ErrGoodNotFound", err)
		}
	})

	t.Run("pack by product", func(t *testing.T) {
		p, err := cat.PackByProduct("com.example.coins1000")
		if err != nil {
			t.Fatal(err)
		}
		if p.CurrencyID != "coins" || p.Amount != 1000 {
			t.Errorf("pack = %+v", p)
		}

		if _, err := cat.PackByProduct("ghost"); !errors.Is(err, catalog.ErrPackNotFound) {
			t.Errorf("miss = %v, want ErrPackNotFound", err)
		}
	})

	t.Run("managed item by product", func(t *testing.T) {
		if _, err := cat.ManagedItemByProduct("com.example.no_ads"); err != nil {
			t.Fatal(err)
		}
		if _, err := cat.ManagedItemByProduct("ghost"); !errors.Is(err, catalog.ErrMarketItemNotFound) {
			t.Errorf("miss = %v, want ErrMarketItemNotFound", err)
		}
	})
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*catalog.Assets)
	}{
		{
			name:   "empty currency id",
			mutate: func(a *catalog.Assets) { a.Currencies[0].ItemID = "" },
		},
		{
			name: "duplicate currency",
			mutate: func(a *catalog.Assets) {
				a.Currencies = append(a.Currencies, catalog.Currency{ItemID: "coins"})
			},
		},
		{
			name:   "negative price",
			mutate: func(a *catalog.Assets) { a.Goods[0].Price[0].Amount = -1 },
		},
		{
			name:   "price references unknown currency",
			mutate: func(a *catalog.Assets) { a.Goods[0].Price[0].CurrencyID = "ghost" },
		},
		{
			name: "currency priced twice",
			mutate: func(a *catalog.Assets) {
				a.Goods[0].Price = append(a.Goods[0].Price, catalog.PriceEntry{CurrencyID: "coins", Amount: 1})
			},
		},
		{
			name:   "pack amount not positive",
			mutate: func(a *catalog.Assets) { a.Packs[0].Amount = 0 },
		},
		{
			name:   "pack references unknown currency",
			mutate: func(a *catalog.Assets) { a.Packs[0].CurrencyID = "ghost" },
		},
		{
			name: "product id shared by pack and managed item",
			mutate: func(a *catalog.Assets) {
				a.ManagedItems[0].ProductID = a.Packs[0].ProductID
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assets := validAssets()
			tt.mutate(&assets)

			_, err := catalog.New(assets)
			var def *catalog.DefinitionError
			if !errors.As(err, &def) {
				t.Fatalf("expected DefinitionError, got %v", err)
			}
		})
	}
}

func TestLoadJSON(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		doc := []byte(`{
			"currencies": [{"item_id": "coins", "name": "Coins"}],
			"goods": [{"item_id": "sword", "price": [{"currency_id": "coins", "amount": 100}]}],
			"currency_packs": [{"item_id": "coins_500", "product_id": "com.example.coins500", "currency_id": "coins", "amount": 500}],
			"managed_items": [{"product_id": "com.example.no_ads"}]
		}`)

		cat, err := catalog.LoadJSON(doc)
		if err != nil {
			t.Fatal(err)
		}
		if cat.Currencies() != 1 || cat.Goods() != 1 {
			t.Errorf("counts = %d currencies, %d goods", cat.Currencies(), cat.Goods())
		}
		if _, err := cat.PackByProduct("com.example.coins500"); err != nil {
			t.Error(err)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		if _, err := catalog.LoadJSON([]byte(`{`)); err == nil {
			t.Fatal("expected error")
		}
	})
}
