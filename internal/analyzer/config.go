package analyzer

import (
	"fmt"
	"os"
	"strconv"
)

const (
	DefaultInterval   = 60
	DefaultCropWidth  = 321
	DefaultCropHeight = 321
)

// Config holds frame sampling and crop settings.
type Config struct {
	Interval   int `toml:"interval"`
	CropWidth  int `toml:"crop_width"`
	CropHeight int `toml:"crop_height"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Interval   string
	CropWidth  string
	CropHeight string
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
	if overlay.Interval != 0 {
		c.Interval = overlay.Interval
	}
	if overlay.CropWidth != 0 {
		c.CropWidth = overlay.CropWidth
	}
	if overlay.CropHeight != 0 {
		c.CropHeight = overlay.CropHeight
	}
}

func (c *Config) loadDefaults() {
	if c.Interval == 0 {
		c.Interval = DefaultInterval
	}
	if c.CropWidth == 0 {
		c.CropWidth = DefaultCropWidth
	}
	if c.CropHeight == 0 {
		c.CropHeight = DefaultCropHeight
	}
}

func (c *Config) loadEnv(env *Env) {
	setInt := func(name string, dst *int) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setInt(env.Interval, &c.Interval)
	setInt(env.CropWidth, &c.CropWidth)
	setInt(env.CropHeight, &c.CropHeight)
}

func (c *Config) validate() error {
	if c.Interval < 1 {
		return fmt.Errorf("interval must be at least 1: %d", c.Interval)
	}
	if c.CropWidth < 1 || c.CropHeight < 1 {
		return fmt.Errorf("invalid crop size %dx%d", c.CropWidth, c.CropHeight)
	}
	return nil
}
