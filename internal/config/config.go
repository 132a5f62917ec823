package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"perturbscope/domain/mixscape"
	"perturbscope/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server ServerConfig
	Ledger LedgerConfig
	Paths  PathConfig
}

// ServerConfig holds results-API server settings
type ServerConfig struct {
	Port string
	Mode string // gin mode: debug or release
	// Workers bounds how many classification jobs run concurrently.
	Workers int
}

// LedgerConfig holds run-ledger storage settings
type LedgerConfig struct {
	// Driver is "postgres", "sqlite", or "memory".
	Driver string
	// DSN is the connection string for postgres, or the file path for sqlite.
	DSN string
}

// PathConfig holds file system paths
type PathConfig struct {
	DatasetDir string
	OutputDir  string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			Mode:    getEnvOrDefault("GIN_MODE", "release"),
			Workers: getEnvIntOrDefault("API_WORKERS", 2),
		},
		Ledger: LedgerConfig{
			Driver: getEnvOrDefault("LEDGER_DRIVER", "sqlite"),
			DSN:    getEnvOrDefault("LEDGER_DSN", "perturbscope.db"),
		},
		Paths: PathConfig{
			DatasetDir: getEnvOrDefault("DATASET_DIR", "."),
			OutputDir:  getEnvOrDefault("OUTPUT_DIR", "."),
		},
	}
	if err := validate(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.Ledger.Driver {
	case "postgres", "sqlite", "memory":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unknown ledger driver %q", cfg.Ledger.Driver))
	}
	if cfg.Ledger.Driver != "memory" && cfg.Ledger.DSN == "" {
		return errors.ConfigInvalid("LEDGER_DSN is required for " + cfg.Ledger.Driver)
	}
	if cfg.Server.Workers < 1 {
		return errors.ConfigInvalid("API_WORKERS must be at least 1")
	}
	return nil
}

// LoadParams reads pipeline parameters from a YAML file, starting from
// DefaultParams so a partial file only overrides what it names.
func LoadParams(path string) (mixscape.Params, error) {
	params := mixscape.DefaultParams()
	if path == "" {
		return params, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return params, errors.Wrapf(err, "reading params file %s", path)
	}
	if err := yaml.Unmarshal(data, &params); err != nil {
		return params, errors.Wrapf(err, "parsing params file %s", path)
	}
	if err := params.Validate(); err != nil {
		return params, errors.Wrap(err, "invalid pipeline parameters")
	}
	return params, nil
}

// Helper functions for environment variable parsing

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
