// Package config loads layered TOML configuration for the glimpse server and
// device app: a base file, an optional GLIMPSE_ENV overlay, then environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/glimpse/pkg/auth"
	"github.com/JaimeStill/glimpse/pkg/database"
	"github.com/JaimeStill/glimpse/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvGlimpseEnv             = "GLIMPSE_ENV"
	EnvGlimpseShutdownTimeout = "GLIMPSE_SHUTDOWN_TIMEOUT"
	EnvGlimpseVersion         = "GLIMPSE_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "GLIMPSE_DB_HOST",
	Port:            "GLIMPSE_DB_PORT",
	Name:            "GLIMPSE_DB_NAME",
	User:            "GLIMPSE_DB_USER",
	Password:        "GLIMPSE_DB_PASSWORD",
	SSLMode:         "GLIMPSE_DB_SSL_MODE",
	MaxOpenConns:    "GLIMPSE_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "GLIMPSE_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "GLIMPSE_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "GLIMPSE_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "GLIMPSE_STORAGE_CONTAINER_NAME",
	ConnectionString: "GLIMPSE_STORAGE_CONNECTION_STRING",
	AccountURL:       "GLIMPSE_STORAGE_ACCOUNT_URL",
}

var authEnv = &auth.Env{
	Issuer:        "GLIMPSE_AUTH_ISSUER",
	JWKSURL:       "GLIMPSE_AUTH_JWKS_URL",
	ClientID:      "GLIMPSE_AUTH_CLIENT_ID",
	SessionSecret: "GLIMPSE_AUTH_SESSION_SECRET",
	SessionTTL:    "GLIMPSE_AUTH_SESSION_TTL",
	SessionIssuer: "GLIMPSE_AUTH_SESSION_ISSUER",
}

// Config is the root configuration for the glimpse server.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	Database        database.Config `toml:"database"`
	Storage         storage.Config  `toml:"storage"`
	API             APIConfig       `toml:"api"`
	Auth            auth.Config     `toml:"auth"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	Version         string          `toml:"version"`
}

// Env returns the GLIMPSE_ENV value, defaulting to "local".
func (c *Config) Env() string {
	return currentEnv()
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
	cfg, err := loadLayered[Config](BaseConfigFile, OverlayConfigPattern)
	if err != nil {
		return nil, err
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// LoadDatabase loads only the database section, for tools such as the
// migrator that do not need the rest of the server configuration.
func LoadDatabase() (*database.Config, error) {
	cfg, err := loadLayered[Config](BaseConfigFile, OverlayConfigPattern)
	if err != nil {
		return nil, err
	}

	if err := cfg.Database.Finalize(databaseEnv); err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	return &cfg.Database, nil
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
	c.Auth.Merge(&overlay.Auth)
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
	if err := c.Auth.Finalize(authEnv); err != nil {
		return fmt.Errorf("auth: %w", err)
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
	if v := os.Getenv(EnvGlimpseShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvGlimpseVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

type mergeable[T any] interface {
	*T
	Merge(overlay *T)
}

// loadLayered decodes base (when present) and merges the GLIMPSE_ENV overlay.
func loadLayered[T any, P mergeable[T]](base, overlayPattern string) (*T, error) {
	cfg := new(T)

	if _, err := os.Stat(base); err == nil {
		loaded, err := load[T](base)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(overlayPattern); path != "" {
		overlay, err := load[T](path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		P(cfg).Merge(overlay)
	}

	return cfg, nil
}

func load[T any](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg T
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func currentEnv() string {
	if env := os.Getenv(EnvGlimpseEnv); env != "" {
		return env
	}
	return "local"
}

func overlayPath(pattern string) string {
	if env := os.Getenv(EnvGlimpseEnv); env != "" {
		path := fmt.Sprintf(pattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
