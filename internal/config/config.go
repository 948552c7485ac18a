// Package config loads easel's runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Document store profiles.
const (
	StoreFile  = "file"
	StoreSQL   = "sql"
	StoreMongo = "mongo"
)

// Config holds the settings shared by the desktop app, the MCP server and
// the CLI. Empty DataDir and DBDSN are filled in by Resolve.
type Config struct {
	DataDir           string `env:"EASEL_DATA_DIR"`
	DocumentStore     string `env:"EASEL_DOCUMENT_STORE" envDefault:"file" validate:"oneof=file sql mongo"`
	DBDriver          string `env:"EASEL_DB_DRIVER" envDefault:"sqlite" validate:"oneof=sqlite postgres mysql"`
	DBDSN             string `env:"EASEL_DB_DSN"`
	MongoURI          string `env:"EASEL_MONGO_URI" validate:"required_if=DocumentStore mongo"`
	MongoDatabase     string `env:"EASEL_MONGO_DATABASE" envDefault:"easel" validate:"required"`
	ReconcileSchedule string `env:"EASEL_RECONCILE_SCHEDULE" envDefault:"@every 1m"`
	WatchFiles        bool   `env:"EASEL_WATCH_FILES" envDefault:"true"`
}

var validate = validator.New()

// Parse reads the environment without resolving defaults, so callers can
// apply overrides before Resolve.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Load parses the environment and resolves defaults.
func Load() (Config, error) {
	cfg, err := Parse()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Resolve(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Resolve fills in the data directory and the sqlite DSN when they are
// unset, then validates the result.
func (c *Config) Resolve() error {
	if c.DataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve data dir: %w", err)
		}
		c.DataDir = filepath.Join(homeDir, ".local", "share", "easel")
	}
	if c.DBDSN == "" {
		if c.DBDriver != "" && c.DBDriver != "sqlite" {
			return fmt.Errorf("invalid config: EASEL_DB_DSN is required for driver %s", c.DBDriver)
		}
		c.DBDSN = filepath.Join(c.DataDir, "easel.db")
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// CanvasDir is where the desktop library keeps its documents.
func (c Config) CanvasDir() string {
	return filepath.Join(c.DataDir, "canvases")
}
