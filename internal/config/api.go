package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/glimpse/pkg/formatting"
	"github.com/JaimeStill/glimpse/pkg/middleware"
	"github.com/JaimeStill/glimpse/pkg/openapi"
	"github.com/JaimeStill/glimpse/pkg/pagination"
)

const defaultMaxSnapshotSize = 4 << 20

var corsEnv = &middleware.CORSEnv{
	Enabled:          "GLIMPSE_CORS_ENABLED",
	Origins:          "GLIMPSE_CORS_ORIGINS",
	AllowedMethods:   "GLIMPSE_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "GLIMPSE_CORS_ALLOWED_HEADERS",
	AllowCredentials: "GLIMPSE_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "GLIMPSE_CORS_MAX_AGE",
}

var openAPIEnv = &openapi.ConfigEnv{
	Title:       "GLIMPSE_OPENAPI_TITLE",
	Description: "GLIMPSE_OPENAPI_DESCRIPTION",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "GLIMPSE_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "GLIMPSE_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig holds API routing, CORS, pagination, OpenAPI metadata and
// snapshot upload settings.
type APIConfig struct {
	BasePath        string                `toml:"base_path"`
	MaxSnapshotSize string                `toml:"max_snapshot_size"`
	CORS            middleware.CORSConfig `toml:"cors"`
	Pagination      pagination.Config     `toml:"pagination"`
	OpenAPI         openapi.Config        `toml:"openapi"`
}

// MaxSnapshotSizeBytes returns the snapshot upload limit in bytes.
func (c *APIConfig) MaxSnapshotSizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxSnapshotSize)
	if err != nil {
		return defaultMaxSnapshotSize
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.OpenAPI.Finalize(openAPIEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxSnapshotSize != "" {
		c.MaxSnapshotSize = overlay.MaxSnapshotSize
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
	c.OpenAPI.Merge(&overlay.OpenAPI)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxSnapshotSize == "" {
		c.MaxSnapshotSize = "4MB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("GLIMPSE_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("GLIMPSE_API_MAX_SNAPSHOT_SIZE"); v != "" {
		c.MaxSnapshotSize = v
	}
}

func (c *APIConfig) validate() error {
	if _, err := formatting.ParseBytes(c.MaxSnapshotSize); err != nil {
		return fmt.Errorf("invalid max_snapshot_size: %w", err)
	}
	return nil
}
