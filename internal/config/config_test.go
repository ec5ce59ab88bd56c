package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/glimpse/internal/config"
)

const baseConfig = `
shutdown_timeout = "30s"
version = "0.1.0"

[server]
host = "0.0.0.0"
port = 8080
read_timeout = "1m"
write_timeout = "1m"
shutdown_timeout = "30s"

[database]
host = "localhost"
port = 5432
name = "glimpse"
user = "glimpse"
password = "glimpse"

[storage]
container_name = "snapshots"
connection_string = "UseDevelopmentStorage=true"

[api]
base_path = "/api"
max_snapshot_size = "2MB"

[api.pagination]
default_page_size = 25
max_page_size = 50

[auth]
client_id = "glimpse-app.apps.googleusercontent.com"
session_secret = "0123456789abcdef0123456789abcdef"
`

const overlayConfig = `
[server]
port = 9090

[database]
host = "prodhost"
`

const baseAppConfig = `
server_url = "https://glimpse.example.com"
device_id = "kitchen-cam"

[capture]
input = "/dev/video2"
fps = 15
rotation = 90

[analyzer]
interval = 30

[classifier]
command = "python3"
args = ["classify.py", "--model", "mobilenet.tflite"]
timeout = "3s"

[broker]
url = "tcp://localhost:1883"
`

func writeConfig(t *testing.T, dir, filename, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", filename, err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	t.Chdir(dir)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	chdir(t, dir)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server port: got %d, want 8080", cfg.Server.Port)
	}
	if cfg.Storage.ContainerName != "snapshots" {
		t.Errorf("storage container: got %s, want snapshots", cfg.Storage.ContainerName)
	}
	if cfg.API.Pagination.DefaultPageSize != 25 {
		t.Errorf("pagination default_page_size: got %d, want 25", cfg.API.Pagination.DefaultPageSize)
	}
	if got := cfg.API.MaxSnapshotSizeBytes(); got != 2<<20 {
		t.Errorf("max snapshot size: got %d, want %d", got, 2<<20)
	}
	if cfg.Auth.SessionTTLDuration() != 24*time.Hour {
		t.Errorf("session ttl: got %v, want 24h", cfg.Auth.SessionTTLDuration())
	}
	if cfg.ShutdownTimeoutDuration() != 30*time.Second {
		t.Errorf("shutdown timeout: got %v, want 30s", cfg.ShutdownTimeoutDuration())
	}
	if cfg.Server.IdleTimeoutDuration() != 2*time.Minute {
		t.Errorf("idle timeout: got %v, want 2m", cfg.Server.IdleTimeoutDuration())
	}
	if cfg.Env() != "local" {
		t.Errorf("env: got %s, want local", cfg.Env())
	}
}

func TestLoadWithOverlay(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	writeConfig(t, dir, "config.staging.toml", overlayConfig)
	chdir(t, dir)

	t.Setenv("GLIMPSE_ENV", "staging")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server port: got %d, want 9090 (from overlay)", cfg.Server.Port)
	}
	if cfg.Database.Host != "prodhost" {
		t.Errorf("db host: got %s, want prodhost (from overlay)", cfg.Database.Host)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("db port: got %d, want 5432 (from base)", cfg.Database.Port)
	}
	if cfg.Env() != "staging" {
		t.Errorf("env: got %s, want staging", cfg.Env())
	}
}

func TestLoadEnvVarOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	chdir(t, dir)

	t.Setenv("GLIMPSE_VERSION", "2.0.0")
	t.Setenv("GLIMPSE_SERVER_PORT", "3000")
	t.Setenv("GLIMPSE_AUTH_SESSION_TTL", "1h")
	t.Setenv("GLIMPSE_API_MAX_SNAPSHOT_SIZE", "8MB")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Version != "2.0.0" {
		t.Errorf("version: got %s, want 2.0.0", cfg.Version)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("server port: got %d, want 3000", cfg.Server.Port)
	}
	if cfg.Auth.SessionTTLDuration() != time.Hour {
		t.Errorf("session ttl: got %v, want 1h", cfg.Auth.SessionTTLDuration())
	}
	if got := cfg.API.MaxSnapshotSizeBytes(); got != 8<<20 {
		t.Errorf("max snapshot size: got %d, want %d", got, 8<<20)
	}
}

func TestLoadNoConfigFile(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("GLIMPSE_DB_NAME", "testdb")
	t.Setenv("GLIMPSE_DB_USER", "testuser")
	t.Setenv("GLIMPSE_STORAGE_CONNECTION_STRING", "conn")
	t.Setenv("GLIMPSE_AUTH_CLIENT_ID", "client")
	t.Setenv("GLIMPSE_AUTH_SESSION_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load without config.toml failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server port default: got %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Name != "testdb" {
		t.Errorf("db name from env: got %s, want testdb", cfg.Database.Name)
	}
	if cfg.API.BasePath != "/api" {
		t.Errorf("api base path default: got %s, want /api", cfg.API.BasePath)
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", `[server`)
	chdir(t, dir)

	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name:    "short session secret",
			mutate:  func(s string) string { return strings.Replace(s, "0123456789abcdef0123456789abcdef", "short", 1) },
			wantErr: "auth",
		},
		{
			name:    "invalid snapshot size",
			mutate:  func(s string) string { return strings.Replace(s, `"2MB"`, `"lots"`, 1) },
			wantErr: "max_snapshot_size",
		},
		{
			name:    "invalid port",
			mutate:  func(s string) string { return strings.Replace(s, "port = 8080", "port = 99999", 1) },
			wantErr: "server",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, "config.toml", tt.mutate(baseConfig))
			chdir(t, dir)

			_, err := config.Load()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDatabase(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	chdir(t, dir)

	t.Setenv("GLIMPSE_DB_HOST", "dbhost")

	db, err := config.LoadDatabase()
	if err != nil {
		t.Fatalf("LoadDatabase: %v", err)
	}
	if db.Host != "dbhost" || db.Name != "glimpse" {
		t.Errorf("database = %+v", db)
	}
}

func TestLoadApp(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "app.toml", baseAppConfig)
	chdir(t, dir)

	cfg, err := config.LoadApp()
	if err != nil {
		t.Fatalf("LoadApp: %v", err)
	}

	if cfg.ServerURL != "https://glimpse.example.com" {
		t.Errorf("server url: got %s", cfg.ServerURL)
	}
	if cfg.APIBasePath != "/api" {
		t.Errorf("api base path: got %s, want /api", cfg.APIBasePath)
	}
	if cfg.Capture.Input != "/dev/video2" || cfg.Capture.FPS != 15 || cfg.Capture.Rotation != 90 {
		t.Errorf("capture = %+v", cfg.Capture)
	}
	if cfg.Analyzer.Interval != 30 {
		t.Errorf("analyzer interval: got %d, want 30", cfg.Analyzer.Interval)
	}
	if cfg.Analyzer.CropWidth != 321 || cfg.Analyzer.CropHeight != 321 {
		t.Errorf("crop = %dx%d, want 321x321", cfg.Analyzer.CropWidth, cfg.Analyzer.CropHeight)
	}
	if len(cfg.Classifier.Args) != 3 || cfg.Classifier.TimeoutDuration() != 3*time.Second {
		t.Errorf("classifier = %+v", cfg.Classifier)
	}
	if !cfg.Broker.Enabled() {
		t.Error("broker not enabled")
	}
	if cfg.RequestTimeoutDuration() != 10*time.Second {
		t.Errorf("request timeout: got %v, want 10s", cfg.RequestTimeoutDuration())
	}
}

func TestLoadAppOverlayAndEnv(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "app.toml", baseAppConfig)
	writeConfig(t, dir, "app.pi.toml", "[analyzer]\ninterval = 120\n")
	chdir(t, dir)

	t.Setenv("GLIMPSE_ENV", "pi")
	t.Setenv("GLIMPSE_CAPTURE_INPUT", "rtsp://camera.local/stream")
	t.Setenv("GLIMPSE_SERVER_URL", "http://10.0.0.5:8080")

	cfg, err := config.LoadApp()
	if err != nil {
		t.Fatalf("LoadApp: %v", err)
	}

	if cfg.Analyzer.Interval != 120 {
		t.Errorf("interval: got %d, want 120 (from overlay)", cfg.Analyzer.Interval)
	}
	if cfg.Capture.Input != "rtsp://camera.local/stream" {
		t.Errorf("capture input: got %s", cfg.Capture.Input)
	}
	if cfg.Capture.FPS != 15 {
		t.Errorf("capture fps: got %d, want 15 (from base)", cfg.Capture.FPS)
	}
	if cfg.ServerURL != "http://10.0.0.5:8080" {
		t.Errorf("server url: got %s", cfg.ServerURL)
	}
}

func TestLoadAppValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing classifier", `server_url = "http://localhost:8080"`, "classifier"},
		{"bad server url", "server_url = \"localhost\"\n[classifier]\ncommand = \"x\"", "server_url"},
		{"bad rotation", "[capture]\nrotation = 45\n[classifier]\ncommand = \"x\"", "capture"},
		{"zero interval", "[analyzer]\ninterval = -1\n[classifier]\ncommand = \"x\"", "analyzer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, "app.toml", tt.content)
			chdir(t, dir)

			_, err := config.LoadApp()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
