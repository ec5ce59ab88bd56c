package classifier

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config describes the classifier worker process.
type Config struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	Timeout string   `toml:"timeout"`
	Quality int      `toml:"quality"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Command string
	Args    string
	Timeout string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
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
	if overlay.Command != "" {
		c.Command = overlay.Command
	}
	if overlay.Args != nil {
		c.Args = overlay.Args
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.Quality != 0 {
		c.Quality = overlay.Quality
	}
}

func (c *Config) loadDefaults() {
	if c.Timeout == "" {
		c.Timeout = "5s"
	}
	if c.Quality == 0 {
		c.Quality = 90
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Command != "" {
		if v := os.Getenv(env.Command); v != "" {
			c.Command = v
		}
	}
	if env.Args != "" {
		if v := os.Getenv(env.Args); v != "" {
			c.Args = strings.Fields(v)
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
}

func (c *Config) validate() error {
	if c.Command == "" {
		return fmt.Errorf("command required")
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("quality must be between 1 and 100: %d", c.Quality)
	}
	return nil
}
