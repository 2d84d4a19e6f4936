package catalog

// Currency is a virtual currency definition. It carries no mutable state;
// balances live in the ledger store, keyed by ItemID.
type Currency struct {
	ItemID string `json:"item_id"`
	Name   string `json:"name,omitempty"`
}

// PriceEntry is one component of a good's price. A good may cost amounts in
// several currencies at once; the slice order of entries is the declared
// order and is significant for shortfall reporting.
type PriceEntry struct {
	CurrencyID string `json:"currency_id"`
	Amount     int64  `json:"amount"`
}

// Good is a virtual good definition. Ownership count and the equipped flag
// live in the ledger store, keyed by ItemID.
type Good struct {
	ItemID      string       `json:"item_id"`
	Name        string       `json:"name,omitempty"`
	Description string       `json:"description,omitempty"`
	Price       []PriceEntry `json:"price"`
}

// PriceIn returns the amount of the given currency in the good's price,
// and whether the currency is referenced at all.
func (g *Good) PriceIn(currencyID string) (int64, bool) {
	for i := range g.Price {
		if g.Price[i].CurrencyID == currencyID {
			return g.Price[i].Amount, true
		}
	}
	return 0, false
}

// CurrencyPack is a bundle of virtual currency sold through the external
// market. ProductID is the market product the user actually buys; a
// successful purchase credits Amount units of CurrencyID.
type CurrencyPack struct {
	ItemID     string `json:"item_id"`
	ProductID  string `json:"product_id"`
	CurrencyID string `json:"currency_id"`
	Amount     int64  `json:"amount"`
	Name       string `json:"name,omitempty"`
}

// MarketItem is a managed (non-consumable) market product. Ownership is a
// boolean: the item is owned or it is not.
type MarketItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name,omitempty"`
}

// Assets is the full definition set supplied by the application at
// initialization. The catalog built from it is immutable; replacing
// definitions means building a new catalog and swapping it wholesale.
type Assets struct {
	Currencies   []Currency     `json:"currencies"`
	Goods        []Good         `json:"goods"`
	Packs        []CurrencyPack `json:"currency_packs"`
	ManagedItems []MarketItem   `json:"managed_items"`
}
