package auth

import (
	"fmt"
	"os"
	"time"
)

const (
	defaultIssuer  = "https://accounts.google.com"
	defaultJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
)

// Config holds identity provider and session token parameters.
type Config struct {
	Issuer        string `toml:"issuer"`
	JWKSURL       string `toml:"jwks_url"`
	ClientID      string `toml:"client_id"`
	SessionSecret string `toml:"session_secret"`
	SessionTTL    string `toml:"session_ttl"`
	SessionIssuer string `toml:"session_issuer"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Issuer        string
	JWKSURL       string
	ClientID      string
	SessionSecret string
	SessionTTL    string
	SessionIssuer string
}

// SessionTTLDuration returns SessionTTL as a time.Duration.
func (c *Config) SessionTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.SessionTTL)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Issuer != "" {
		c.Issuer = overlay.Issuer
	}
	if overlay.JWKSURL != "" {
		c.JWKSURL = overlay.JWKSURL
	}
	if overlay.ClientID != "" {
		c.ClientID = overlay.ClientID
	}
	if overlay.SessionSecret != "" {
		c.SessionSecret = overlay.SessionSecret
	}
	if overlay.SessionTTL != "" {
		c.SessionTTL = overlay.SessionTTL
	}
	if overlay.SessionIssuer != "" {
		c.SessionIssuer = overlay.SessionIssuer
	}
}

func (c *Config) loadDefaults() {
	if c.Issuer == "" {
		c.Issuer = defaultIssuer
	}
	if c.JWKSURL == "" {
		c.JWKSURL = defaultJWKSURL
	}
	if c.SessionTTL == "" {
		c.SessionTTL = "24h"
	}
	if c.SessionIssuer == "" {
		c.SessionIssuer = "glimpse"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Issuer != "" {
		if v := os.Getenv(env.Issuer); v != "" {
			c.Issuer = v
		}
	}
	if env.JWKSURL != "" {
		if v := os.Getenv(env.JWKSURL); v != "" {
			c.JWKSURL = v
		}
	}
	if env.ClientID != "" {
		if v := os.Getenv(env.ClientID); v != "" {
			c.ClientID = v
		}
	}
	if env.SessionSecret != "" {
		if v := os.Getenv(env.SessionSecret); v != "" {
			c.SessionSecret = v
		}
	}
	if env.SessionTTL != "" {
		if v := os.Getenv(env.SessionTTL); v != "" {
			c.SessionTTL = v
		}
	}
	if env.SessionIssuer != "" {
		if v := os.Getenv(env.SessionIssuer); v != "" {
			c.SessionIssuer = v
		}
	}
}

func (c *Config) validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("client_id required")
	}
	if len(c.SessionSecret) < 32 {
		return fmt.Errorf("session_secret must be at least 32 bytes")
	}
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil {
		return fmt.Errorf("invalid session_ttl: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("session_ttl must be positive")
	}
	return nil
}
