// Package extension provides the Forge extension adapter for the economy
// engine.
//
// It implements the forge.Extension interface to integrate the engine
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.economy" or "economy" keys.
package extension

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	economy "github.com/xraph/economy"
	"github.com/xraph/economy/catalog"
	"github.com/xraph/economy/store"
	"github.com/xraph/economy/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "economy"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Virtual-economy ledger and purchase reconciliation engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the economy engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *economy.Store
	catalog    *catalog.Catalog
	store      store.Store
	engineOpts []economy.Option
}

// New creates a new economy Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying economy engine.
// This is nil until Register is called.
func (e *Extension) Engine() *economy.Store { return e.engine }

// Register implements [forge.Extension]. It loads configuration, resolves
// the catalog, initializes the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if err := e.resolveCatalog(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	opts := e.buildEngineOpts()

	eng := economy.New(e.catalog, e.store, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*economy.Store, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("economy: extension not initialized")
	}

	if !e.config.DisableOpen {
		if err := e.engine.Open(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(ctx context.Context) error {
	if e.engine != nil {
		if err := e.engine.Close(ctx); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("economy: store not initialized")
	}
	return e.store.Ping(ctx)
}

// resolveCatalog loads the catalog from the configured path when none was
// provided programmatically. The engine cannot run without one.
func (e *Extension) resolveCatalog() error {
	if e.catalog != nil {
		return nil
	}
	if e.config.CatalogPath == "" {
		return errors.New("economy: no catalog provided; use WithCatalog or set catalog_path")
	}

	data, err := os.ReadFile(e.config.CatalogPath)
	if err != nil {
		return fmt.Errorf("economy: read catalog %q: %w", e.config.CatalogPath, err)
	}
	cat, err := catalog.LoadJSON(data)
	if err != nil {
		return err
	}
	e.catalog = cat

	e.Logger().Debug("economy: catalog loaded",
		forge.F("path", e.config.CatalogPath),
		forge.F("currencies", cat.Currencies()),
		forge.F("goods", cat.Goods()),
	)
	return nil
}

// buildEngineOpts constructs economy.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []economy.Option {
	opts := make([]economy.Option, 0, len(e.engineOpts)+1)

	if e.config.DuplicateMarketNotifications {
		opts = append(opts, economy.WithDuplicateMarketNotifications(true))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("economy: configuration is required but not found in config files; " +
				"ensure 'extensions.economy' or 'economy' key exists in your config")
		}

		e.config = programmaticConfig
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("economy: configuration loaded",
		forge.F("catalog_path", e.config.CatalogPath),
		forge.F("disable_open", e.config.DisableOpen),
		forge.F("duplicate_market_notifications", e.config.DuplicateMarketNotifications),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.economy" first (namespaced pattern).
	if cm.IsSet("extensions.economy") {
		if err := cm.Bind("extensions.economy", &cfg); err == nil {
			e.Logger().Debug("economy: loaded config from file",
				forge.F("key", "extensions.economy"),
			)
			return cfg, true
		}
		e.Logger().Warn("economy: failed to bind extensions.economy config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "economy" key.
	if cm.IsSet("economy") {
		if err := cm.Bind("economy", &cfg); err == nil {
			e.Logger().Debug("economy: loaded config from file",
				forge.F("key", "economy"),
			)
			return cfg, true
		}
		e.Logger().Warn("economy: failed to bind economy config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableOpen {
		yamlConfig.DisableOpen = true
	}
	if programmaticConfig.DuplicateMarketNotifications {
		yamlConfig.DuplicateMarketNotifications = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.CatalogPath == "" && programmaticConfig.CatalogPath != "" {
		yamlConfig.CatalogPath = programmaticConfig.CatalogPath
	}

	return yamlConfig
}
