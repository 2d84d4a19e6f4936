// Package catalog holds the immutable definition set of a virtual economy:
// currencies, goods priced in those currencies, market currency packs, and
// managed market items. The catalog is read-only after construction; the
// engine consults it but never mutates it.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors for catalog lookups. A miss is a distinct failure kind from
// a definition that exists but is malformed (see DefinitionError).
var (
	ErrCurrencyNotFound   = errors.New("economy: virtual currency not found")
	ErrGoodNotFound       = errors.New("economy: virtual good not found")
	ErrPackNotFound       = errors.New("economy: currency pack not found")
	ErrMarketItemNotFound = errors.New("economy: market item not found")
)

// DefinitionError reports a definition that is present but malformed.
type DefinitionError struct {
	ItemID  string
	Message string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("economy: bad definition %q: %s", e.ItemID, e.Message)
}

// Catalog indexes the definition set for O(1) lookups. All lookups are pure
// and side-effect free. Construct with New or LoadJSON.
type Catalog struct {
	currencies     map[string]*Currency
	goods          map[string]*Good
	packsByProduct map[string]*CurrencyPack
	managedItems   map[string]*MarketItem
}

// New validates the assets and builds an indexed catalog.
func New(assets Assets) (*Catalog, error) {
	c := &Catalog{
		currencies:     make(map[string]*Currency, len(assets.Currencies)),
		goods:          make(map[string]*Good, len(assets.Goods)),
		packsByProduct: make(map[string]*CurrencyPack, len(assets.Packs)),
		managedItems:   make(map[string]*MarketItem, len(assets.ManagedItems)),
	}

	for i := range assets.Currencies {
		cur := assets.Currencies[i]
		if cur.ItemID == "" {
			return nil, &DefinitionError{ItemID: cur.ItemID, Message: "currency item id is empty"}
		}
		if _, dup := c.currencies[cur.ItemID]; dup {
			return nil, &DefinitionError{ItemID: cur.ItemID, Message: "duplicate currency"}
		}
		c.currencies[cur.ItemID] = &cur
	}

	for i := range assets.Goods {
		g := assets.Goods[i]
		if g.ItemID == "" {
			return nil, &DefinitionError{ItemID: g.ItemID, Message: "good item id is empty"}
		}
		if _, dup := c.goods[g.ItemID]; dup {
			return nil, &DefinitionError{ItemID: g.ItemID, Message: "duplicate good"}
		}
		seen := make(map[string]bool, len(g.Price))
		for _, p := range g.Price {
			if p.Amount < 0 {
				return nil, &DefinitionError{ItemID: g.ItemID, Message: fmt.Sprintf("negative price in %q", p.CurrencyID)}
			}
			if _, ok := c.currencies[p.CurrencyID]; !ok {
				return nil, &DefinitionError{ItemID: g.ItemID, Message: fmt.Sprintf("price references unknown currency %q", p.CurrencyID)}
			}
			if seen[p.CurrencyID] {
				return nil, &DefinitionError{ItemID: g.ItemID, Message: fmt.Sprintf("currency %q priced twice", p.CurrencyID)}
			}
			seen[p.CurrencyID] = true
		}
		c.goods[g.ItemID] = &g
	}

	for i := range assets.Packs {
		p := assets.Packs[i]
		if p.ItemID == "" || p.ProductID == "" {
			return nil, &DefinitionError{ItemID: p.ItemID, Message: "pack item id or product id is empty"}
		}
		if p.Amount <= 0 {
			return nil, &DefinitionError{ItemID: p.ItemID, Message: "pack amount must be positive"}
		}
		if _, ok := c.currencies[p.CurrencyID]; !ok {
			return nil, &DefinitionError{ItemID: p.ItemID, Message: fmt.Sprintf("pack references unknown currency %q", p.CurrencyID)}
		}
		if _, dup := c.packsByProduct[p.ProductID]; dup {
			return nil, &DefinitionError{ItemID: p.ItemID, Message: fmt.Sprintf("duplicate pack for product %q", p.ProductID)}
		}
		c.packsByProduct[p.ProductID] = &p
	}

	for i := range assets.ManagedItems {
		m := assets.ManagedItems[i]
		if m.ProductID == "" {
			return nil, &DefinitionError{ItemID: m.ProductID, Message: "managed item product id is empty"}
		}
		if _, dup := c.managedItems[m.ProductID]; dup {
			return nil, &DefinitionError{ItemID: m.ProductID, Message: "duplicate managed item"}
		}
		if _, clash := c.packsByProduct[m.ProductID]; clash {
			return nil, &DefinitionError{ItemID: m.ProductID, Message: "product id already used by a currency pack"}
		}
		c.managedItems[m.ProductID] = &m
	}

	return c, nil
}

// LoadJSON builds a catalog from a JSON-encoded Assets document.
func LoadJSON(data []byte) (*Catalog, error) {
	var assets Assets
	if err := json.Unmarshal(data, &assets); err != nil {
		return nil, fmt.Errorf("economy: parse catalog: %w", err)
	}
	return New(assets)
}

// Currency looks up a virtual currency by item id.
func (c *Catalog) Currency(itemID string) (*Currency, error) {
	if cur, ok := c.currencies[itemID]; ok {
		return cur, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrCurrencyNotFound, itemID)
}

// Good looks up a virtual good by item id.
func (c *Catalog) Good(itemID string) (*Good, error) {
	if g, ok := c.goods[itemID]; ok {
		return g, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrGoodNotFound, itemID)
}

// PackByProduct looks up a currency pack by its market product id.
func (c *Catalog) PackByProduct(productID string) (*CurrencyPack, error) {
	if p, ok := c.packsByProduct[productID]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: product %q", ErrPackNotFound, productID)
}

// ManagedItemByProduct looks up a managed market item by its product id.
func (c *Catalog) ManagedItemByProduct(productID string) (*MarketItem, error) {
	if m, ok := c.managedItems[productID]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("%w: product %q", ErrMarketItemNotFound, productID)
}

// Currencies returns the number of defined currencies.
func (c *Catalog) Currencies() int { return len(c.currencies) }

// Goods returns the number of defined goods.
func (c *Catalog) Goods() int { return len(c.goods) }
