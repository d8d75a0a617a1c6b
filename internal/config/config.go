// Package config loads and finalizes the Custodian service
// configuration from TOML files and CUSTODIAN_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/custodian/pkg/database"
	"github.com/JaimeStill/custodian/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvCustodianEnv             = "CUSTODIAN_ENV"
	EnvCustodianShutdownTimeout = "CUSTODIAN_SHUTDOWN_TIMEOUT"
	EnvCustodianVersion         = "CUSTODIAN_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "CUSTODIAN_DB_HOST",
	Port:            "CUSTODIAN_DB_PORT",
	Name:            "CUSTODIAN_DB_NAME",
	User:            "CUSTODIAN_DB_USER",
	Password:        "CUSTODIAN_DB_PASSWORD",
	SSLMode:         "CUSTODIAN_DB_SSL_MODE",
	MaxOpenConns:    "CUSTODIAN_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "CUSTODIAN_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "CUSTODIAN_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "CUSTODIAN_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "CUSTODIAN_STORAGE_CONTAINER_NAME",
	ConnectionString: "CUSTODIAN_STORAGE_CONNECTION_STRING",
}

// Config is the root configuration for the Custodian service.
type Config struct {
	Server          ServerConfig     `toml:"server"`
	Database        database.Config  `toml:"database"`
	Storage         storage.Config   `toml:"storage"`
	API             APIConfig        `toml:"api"`
	Queue           QueueConfig      `toml:"queue"`
	Extraction      ExtractionConfig `toml:"extraction"`
	ShutdownTimeout string           `toml:"shutdown_timeout"`
	Version         string           `toml:"version"`
}

// Env returns the CUSTODIAN_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvCustodianEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Queue.Merge(&overlay.Queue)
	c.Extraction.Merge(&overlay.Extraction)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Queue.Finalize(); err != nil {
		return fmt.Errorf("queue: %w", err)
	}
	if err := c.Extraction.Finalize(); err != nil {
		return fmt.Errorf("extraction: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	envString(EnvCustodianShutdownTimeout, &c.ShutdownTimeout)
	envString(EnvCustodianVersion, &c.Version)
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvCustodianEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envString replaces *dst with the named environment variable when set.
func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

// envInt replaces *dst with the named environment variable when it is
// set and parses as an integer.
func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
