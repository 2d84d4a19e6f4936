package extension

import (
	economy "github.com/xraph/economy"
	"github.com/xraph/economy/billing"
	"github.com/xraph/economy/catalog"
	"github.com/xraph/economy/plugin"
	"github.com/xraph/economy/store"
)

// Option configures the economy Forge extension.
type Option func(*Extension)

// WithCatalog sets the item catalog for the engine.
func WithCatalog(c *catalog.Catalog) Option {
	return func(e *Extension) {
		e.catalog = c
	}
}

// WithStore sets the ledger store for the engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithBilling sets the market billing transport.
func WithBilling(svc billing.Service) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, economy.WithBilling(svc))
	}
}

// WithEngineOption passes an economy.Option through to the underlying engine.
func WithEngineOption(opt economy.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers an engine plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, economy.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithCatalogPath sets the path of a JSON catalog document to load.
func WithCatalogPath(path string) Option {
	return func(e *Extension) { e.config.CatalogPath = path }
}

// WithDisableOpen prevents the automatic engine Open on start.
func WithDisableOpen() Option {
	return func(e *Extension) { e.config.DisableOpen = true }
}

// WithDuplicateMarketNotifications re-emits the market-purchase event for
// already-owned managed items.
func WithDuplicateMarketNotifications() Option {
	return func(e *Extension) { e.config.DuplicateMarketNotifications = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
