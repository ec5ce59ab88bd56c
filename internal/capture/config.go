package capture

import (
	"fmt"
	"os"
	"strconv"
)

// Config describes the ffmpeg camera source.
type Config struct {
	FFmpeg   string `toml:"ffmpeg"`
	Input    string `toml:"input"`
	Format   string `toml:"format"`
	FPS      int    `toml:"fps"`
	Rotation int    `toml:"rotation"`
	Realtime bool   `toml:"realtime"`
	Buffer   int    `toml:"buffer"`
	Quality  int    `toml:"quality"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	FFmpeg   string
	Input    string
	Format   string
	FPS      string
	Rotation string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. Realtime always applies.
func (c *Config) Merge(overlay *Config) {
	if overlay.FFmpeg != "" {
		c.FFmpeg = overlay.FFmpeg
	}
	if overlay.Input != "" {
		c.Input = overlay.Input
	}
	if overlay.Format != "" {
		c.Format = overlay.Format
	}
	if overlay.FPS != 0 {
		c.FPS = overlay.FPS
	}
	if overlay.Rotation != 0 {
		c.Rotation = overlay.Rotation
	}
	if overlay.Buffer != 0 {
		c.Buffer = overlay.Buffer
	}
	if overlay.Quality != 0 {
		c.Quality = overlay.Quality
	}
	c.Realtime = overlay.Realtime
}

func (c *Config) loadDefaults() {
	if c.FFmpeg == "" {
		c.FFmpeg = "ffmpeg"
	}
	if c.Input == "" {
		c.Input = "/dev/video0"
	}
	if c.FPS == 0 {
		c.FPS = 30
	}
	if c.Buffer == 0 {
		c.Buffer = 4
	}
	if c.Quality == 0 {
		c.Quality = 5
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.FFmpeg != "" {
		if v := os.Getenv(env.FFmpeg); v != "" {
			c.FFmpeg = v
		}
	}
	if env.Input != "" {
		if v := os.Getenv(env.Input); v != "" {
			c.Input = v
		}
	}
	if env.Format != "" {
		if v := os.Getenv(env.Format); v != "" {
			c.Format = v
		}
	}
	if env.FPS != "" {
		if v := os.Getenv(env.FPS); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.FPS = n
			}
		}
	}
	if env.Rotation != "" {
		if v := os.Getenv(env.Rotation); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.Rotation = n
			}
		}
	}
}

func (c *Config) validate() error {
	if c.FPS < 1 {
		return fmt.Errorf("fps must be positive: %d", c.FPS)
	}
	switch c.Rotation {
	case 0, 90, 180, 270:
	default:
		return fmt.Errorf("rotation must be 0, 90, 180, or 270: %d", c.Rotation)
	}
	if c.Buffer < 1 {
		return fmt.Errorf("buffer must be positive: %d", c.Buffer)
	}
	if c.Quality < 2 || c.Quality > 31 {
		return fmt.Errorf("quality must be between 2 and 31: %d", c.Quality)
	}
	return nil
}
