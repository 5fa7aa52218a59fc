// Package config reads the server configuration from the environment.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"

	"idle-lite/apps/server/internal/ledger"
	"idle-lite/apps/server/internal/store"
)

const defaultLocalDBName = "idle_local.db"

type Config struct {
	Addr string `env:"ADDR" envDefault:":8080"`
	// Port overrides Addr when set.
	Port string `env:"PORT"`

	StoreMode         string `env:"STORE_MODE" envDefault:"file"`
	DataDir           string `env:"DATA_DIR" envDefault:"data"`
	LocalDatabasePath string `env:"LOCAL_DATABASE_PATH"`
	DatabaseURL       string `env:"DATABASE_URL"`

	TemplatePath     string `env:"TEMPLATE_PATH" envDefault:"data/template.json"`
	InitProfilesPath string `env:"INIT_PROFILES_PATH" envDefault:"data/init_profiles.json"`
	ContentDir       string `env:"CONTENT_DIR" envDefault:"content"`
	StaticDir        string `env:"STATIC_DIR" envDefault:"web"`

	// LegacyDatabasePath is the single-file database imported by
	// /api/profile/migrate.
	LegacyDatabasePath string `env:"LEGACY_DATABASE_PATH" envDefault:"data/database.json"`

	// LedgerMode follows StoreMode when empty.
	LedgerMode   string `env:"LEDGER_MODE"`
	HistoryLimit int    `env:"HISTORY_LIMIT" envDefault:"200"`
}

// Load parses the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.HistoryLimit < 0 {
		return Config{}, fmt.Errorf("HISTORY_LIMIT must not be negative, got %d", cfg.HistoryLimit)
	}
	return cfg, nil
}

func (c Config) ListenAddr() string {
	if port := strings.TrimSpace(c.Port); port != "" {
		return ":" + strings.TrimPrefix(port, ":")
	}
	return c.Addr
}

func (c Config) SQLitePath() string {
	if p := strings.TrimSpace(c.LocalDatabasePath); p != "" {
		return p
	}
	return filepath.Join(c.DataDir, defaultLocalDBName)
}

func (c Config) StoreOptions() store.Options {
	return store.Options{
		Mode:        c.StoreMode,
		DataDir:     c.DataDir,
		SQLitePath:  c.SQLitePath(),
		DatabaseURL: c.DatabaseURL,
	}
}

// LedgerOptions picks the ledger backend. Without LEDGER_MODE the ledger
// shares the profile store's database; a file store gets no ledger.
func (c Config) LedgerOptions() ledger.Options {
	mode := c.LedgerMode
	if strings.TrimSpace(mode) == "" {
		mode = store.NormalizeMode(c.StoreMode)
	}
	return ledger.Options{
		Mode:        mode,
		SQLitePath:  c.SQLitePath(),
		DatabaseURL: c.DatabaseURL,
		Retention:   c.HistoryLimit,
	}
}
