package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Helper to create a temp config file.
func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()

	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	return configPath
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config failed validation: %v", err)
	}

	if cfg.Site.OriginHost != "images.vocus.cc" {
		t.Errorf("OriginHost = %s, want images.vocus.cc", cfg.Site.OriginHost)
	}

	if cfg.Download.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.Download.MaxRetries)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	configPath := createTempConfigFile(t, `
output:
  base_dir: "converted"
download:
  max_retries: 5
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Output.BaseDir != "converted" {
		t.Errorf("BaseDir = %s, want converted", cfg.Output.BaseDir)
	}

	if cfg.Download.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.Download.MaxRetries)
	}

	// Unnamed fields keep their defaults.
	if cfg.Site.ProxyHost != "resize-image.vocus.cc" {
		t.Errorf("ProxyHost = %s, want default resize-image.vocus.cc", cfg.Site.ProxyHost)
	}

	if cfg.Download.TimeoutSec != 30 {
		t.Errorf("TimeoutSec = %d, want default 30", cfg.Download.TimeoutSec)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("Expected error for nonexistent file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := createTempConfigFile(t, "invalid: yaml: content: [}")

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid YAML, got nil")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"missing base dir", func(c *Config) { c.Output.BaseDir = "" }, ErrMissingOutputDir},
		{"missing images dir", func(c *Config) { c.Output.ImagesDir = "" }, ErrMissingImagesDir},
		{"missing origin host", func(c *Config) { c.Site.OriginHost = "" }, ErrMissingOriginHost},
		{"missing proxy host", func(c *Config) { c.Site.ProxyHost = "" }, ErrMissingProxyHost},
		{"zero retries", func(c *Config) { c.Download.MaxRetries = 0 }, ErrInvalidMaxRetries},
		{"zero timeout", func(c *Config) { c.Download.TimeoutSec = 0 }, ErrInvalidTimeout},
		{"inverted delay range", func(c *Config) { c.Download.MinDelayMs = 5000; c.Download.MaxDelayMs = 100 }, ErrInvalidDelayRange},
		{"negative min body", func(c *Config) { c.Download.MinBodyBytes = -1 }, ErrInvalidMinBodyBytes},
		{"zero chunk size", func(c *Config) { c.Download.ChunkSizeBytes = 0 }, ErrInvalidChunkSize},
		{"zero retry attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, ErrInvalidRetryAttempts},
		{"backoff below one", func(c *Config) { c.Retry.BackoffMultiplier = 0.5 }, ErrInvalidBackoff},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, ErrInvalidLogLevel},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, ErrInvalidLogFormat},
		{"no render targets", func(c *Config) { c.Render.Text = false; c.Render.Paginated = false }, ErrNoRenderTargets},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetRetryDelay(t *testing.T) {
	rp := &RetryPolicy{
		MaxAttempts:       5,
		InitialDelayMs:    100,
		MaxDelayMs:        1000,
		BackoffMultiplier: 2.0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 0},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1000 * time.Millisecond}, // capped
		{6, 1000 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := rp.GetRetryDelay(tt.attempt); got != tt.want {
			t.Errorf("GetRetryDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestOutputDirs(t *testing.T) {
	cfg := Default()
	cfg.Output.BaseDir = "out"

	if got := cfg.TextDir(); got != filepath.Join("out", "md") {
		t.Errorf("TextDir() = %s", got)
	}

	if got := cfg.PaginatedDir(); got != filepath.Join("out", "pdf") {
		t.Errorf("PaginatedDir() = %s", got)
	}

	if got := cfg.ReportDir(); got != filepath.Join("out", "report") {
		t.Errorf("ReportDir() = %s", got)
	}
}

func TestDownloadTimeout(t *testing.T) {
	d := DownloadConfig{TimeoutSec: 45}
	if got := d.Timeout(); got != 45*time.Second {
		t.Errorf("Timeout() = %v, want 45s", got)
	}
}
