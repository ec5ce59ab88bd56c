package broker

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds MQTT connection parameters. An empty URL disables publishing.
type Config struct {
	URL            string `toml:"url"`
	ClientID       string `toml:"client_id"`
	Topic          string `toml:"topic"`
	QoS            int    `toml:"qos"`
	ConnectTimeout string `toml:"connect_timeout"`
	PublishTimeout string `toml:"publish_timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	URL      string
	ClientID string
	Topic    string
	QoS      string
}

// Enabled reports whether a broker URL is configured.
func (c *Config) Enabled() bool {
	return c.URL != ""
}

// ConnectTimeoutDuration returns ConnectTimeout as a time.Duration.
func (c *Config) ConnectTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ConnectTimeout)
	return d
}

// PublishTimeoutDuration returns PublishTimeout as a time.Duration.
func (c *Config) PublishTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.PublishTimeout)
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
	if overlay.URL != "" {
		c.URL = overlay.URL
	}
	if overlay.ClientID != "" {
		c.ClientID = overlay.ClientID
	}
	if overlay.Topic != "" {
		c.Topic = overlay.Topic
	}
	if overlay.QoS != 0 {
		c.QoS = overlay.QoS
	}
	if overlay.ConnectTimeout != "" {
		c.ConnectTimeout = overlay.ConnectTimeout
	}
	if overlay.PublishTimeout != "" {
		c.PublishTimeout = overlay.PublishTimeout
	}
}

func (c *Config) loadDefaults() {
	if c.ClientID == "" {
		c.ClientID = "glimpse"
	}
	if c.Topic == "" {
		c.Topic = "glimpse/classifications"
	}
	if c.ConnectTimeout == "" {
		c.ConnectTimeout = "5s"
	}
	if c.PublishTimeout == "" {
		c.PublishTimeout = "2s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.URL != "" {
		if v := os.Getenv(env.URL); v != "" {
			c.URL = v
		}
	}
	if env.ClientID != "" {
		if v := os.Getenv(env.ClientID); v != "" {
			c.ClientID = v
		}
	}
	if env.Topic != "" {
		if v := os.Getenv(env.Topic); v != "" {
			c.Topic = v
		}
	}
	if env.QoS != "" {
		if v := os.Getenv(env.QoS); v != "" {
			if qos, err := strconv.Atoi(v); err == nil {
				c.QoS = qos
			}
		}
	}
}

func (c *Config) validate() error {
	if c.QoS < 0 || c.QoS > 2 {
		return fmt.Errorf("qos must be 0, 1, or 2: %d", c.QoS)
	}
	if strings.ContainsAny(c.Topic, "+#") {
		return fmt.Errorf("topic must not contain wildcards: %s", c.Topic)
	}
	if _, err := time.ParseDuration(c.ConnectTimeout); err != nil {
		return fmt.Errorf("invalid connect_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.PublishTimeout); err != nil {
		return fmt.Errorf("invalid publish_timeout: %w", err)
	}
	return nil
}
