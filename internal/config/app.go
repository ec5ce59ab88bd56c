package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/JaimeStill/glimpse/internal/analyzer"
	"github.com/JaimeStill/glimpse/internal/capture"
	"github.com/JaimeStill/glimpse/internal/classifier"
	"github.com/JaimeStill/glimpse/pkg/broker"
)

const (
	BaseAppConfigFile       = "app.toml"
	OverlayAppConfigPattern = "app.%s.toml"

	EnvGlimpseServerURL      = "GLIMPSE_SERVER_URL"
	EnvGlimpseAPIBasePath    = "GLIMPSE_API_BASE_PATH"
	EnvGlimpseDeviceID       = "GLIMPSE_DEVICE_ID"
	EnvGlimpseRequestTimeout = "GLIMPSE_REQUEST_TIMEOUT"
)

var captureEnv = &capture.Env{
	FFmpeg:   "GLIMPSE_CAPTURE_FFMPEG",
	Input:    "GLIMPSE_CAPTURE_INPUT",
	Format:   "GLIMPSE_CAPTURE_FORMAT",
	FPS:      "GLIMPSE_CAPTURE_FPS",
	Rotation: "GLIMPSE_CAPTURE_ROTATION",
}

var analyzerEnv = &analyzer.Env{
	Interval:   "GLIMPSE_ANALYZER_INTERVAL",
	CropWidth:  "GLIMPSE_ANALYZER_CROP_WIDTH",
	CropHeight: "GLIMPSE_ANALYZER_CROP_HEIGHT",
}

var classifierEnv = &classifier.Env{
	Command: "GLIMPSE_CLASSIFIER_COMMAND",
	Args:    "GLIMPSE_CLASSIFIER_ARGS",
	Timeout: "GLIMPSE_CLASSIFIER_TIMEOUT",
}

var brokerEnv = &broker.Env{
	URL:      "GLIMPSE_BROKER_URL",
	ClientID: "GLIMPSE_BROKER_CLIENT_ID",
	Topic:    "GLIMPSE_BROKER_TOPIC",
	QoS:      "GLIMPSE_BROKER_QOS",
}

// AppConfig is the root configuration for the glimpse device app.
type AppConfig struct {
	ServerURL       string            `toml:"server_url"`
	APIBasePath     string            `toml:"api_base_path"`
	DeviceID        string            `toml:"device_id"`
	RequestTimeout  string            `toml:"request_timeout"`
	ShutdownTimeout string            `toml:"shutdown_timeout"`
	Capture         capture.Config    `toml:"capture"`
	Analyzer        analyzer.Config   `toml:"analyzer"`
	Classifier      classifier.Config `toml:"classifier"`
	Broker          broker.Config     `toml:"broker"`
}

// RequestTimeoutDuration returns RequestTimeout as a time.Duration.
func (c *AppConfig) RequestTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.RequestTimeout)
	return d
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *AppConfig) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// LoadApp reads app.toml (if present), applies any GLIMPSE_ENV overlay, and
// finalizes all values.
func LoadApp() (*AppConfig, error) {
	cfg, err := loadLayered[AppConfig](BaseAppConfigFile, OverlayAppConfigPattern)
	if err != nil {
		return nil, err
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize app config: %w", err)
	}
	return cfg, nil
}

// Finalize applies defaults, environment variable overrides, and validation
// for the app config and each of its sections.
func (c *AppConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Capture.Finalize(captureEnv); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if err := c.Analyzer.Finalize(analyzerEnv); err != nil {
		return fmt.Errorf("analyzer: %w", err)
	}
	if err := c.Classifier.Finalize(classifierEnv); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	if err := c.Broker.Finalize(brokerEnv); err != nil {
		return fmt.Errorf("broker: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across all sections.
func (c *AppConfig) Merge(overlay *AppConfig) {
	if overlay.ServerURL != "" {
		c.ServerURL = overlay.ServerURL
	}
	if overlay.APIBasePath != "" {
		c.APIBasePath = overlay.APIBasePath
	}
	if overlay.DeviceID != "" {
		c.DeviceID = overlay.DeviceID
	}
	if overlay.RequestTimeout != "" {
		c.RequestTimeout = overlay.RequestTimeout
	}
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	c.Capture.Merge(&overlay.Capture)
	c.Analyzer.Merge(&overlay.Analyzer)
	c.Classifier.Merge(&overlay.Classifier)
	c.Broker.Merge(&overlay.Broker)
}

func (c *AppConfig) loadDefaults() {
	if c.ServerURL == "" {
		c.ServerURL = "http://localhost:8080"
	}
	if c.APIBasePath == "" {
		c.APIBasePath = "/api"
	}
	if c.DeviceID == "" {
		if host, err := os.Hostname(); err == nil {
			c.DeviceID = host
		} else {
			c.DeviceID = "glimpse"
		}
	}
	if c.RequestTimeout == "" {
		c.RequestTimeout = "10s"
	}
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "10s"
	}
}

func (c *AppConfig) loadEnv() {
	if v := os.Getenv(EnvGlimpseServerURL); v != "" {
		c.ServerURL = v
	}
	if v := os.Getenv(EnvGlimpseAPIBasePath); v != "" {
		c.APIBasePath = v
	}
	if v := os.Getenv(EnvGlimpseDeviceID); v != "" {
		c.DeviceID = v
	}
	if v := os.Getenv(EnvGlimpseRequestTimeout); v != "" {
		c.RequestTimeout = v
	}
	if v := os.Getenv(EnvGlimpseShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
}

func (c *AppConfig) validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server_url %q", c.ServerURL)
	}
	if _, err := time.ParseDuration(c.RequestTimeout); err != nil {
		return fmt.Errorf("invalid request_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

