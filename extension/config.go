package extension

// Config holds the economy extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.economy" or "economy" keys).
type Config struct {
	// CatalogPath is a path to a JSON catalog document. When set and no
	// catalog was provided programmatically, the extension loads the
	// catalog from this file at Register time.
	CatalogPath string `json:"catalog_path" mapstructure:"catalog_path" yaml:"catalog_path"`

	// DisableOpen prevents the automatic engine Open on start (Open runs
	// store migration, starts the billing transport, and fires the restore
	// flow). The caller opens the engine manually.
	DisableOpen bool `json:"disable_open" mapstructure:"disable_open" yaml:"disable_open"`

	// DuplicateMarketNotifications re-emits the market-purchase event when
	// a purchase notification resolves to an already-owned managed item.
	// Ledger state is never mutated twice either way.
	DuplicateMarketNotifications bool `json:"duplicate_market_notifications" mapstructure:"duplicate_market_notifications" yaml:"duplicate_market_notifications"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{}
}
