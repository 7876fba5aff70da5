// Package config provides configuration management for the article converter.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrMissingOutputDir      = errors.New("output.base_dir is required")
	ErrMissingImagesDir      = errors.New("output.images_dir is required")
	ErrMissingOriginHost     = errors.New("site.origin_host is required")
	ErrMissingProxyHost      = errors.New("site.proxy_host is required")
	ErrInvalidMaxRetries     = errors.New("download.max_retries must be at least 1")
	ErrInvalidTimeout        = errors.New("download.timeout_sec must be at least 1")
	ErrInvalidDelayRange     = errors.New("download.min_delay_ms cannot exceed download.max_delay_ms")
	ErrInvalidMinBodyBytes   = errors.New("download.min_body_bytes must be non-negative")
	ErrInvalidChunkSize      = errors.New("download.chunk_size_bytes must be at least 1")
	ErrInvalidInitialDelay   = errors.New("retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoff        = errors.New("retry.backoff_multiplier must be >= 1.0")
	ErrInvalidRetryAttempts  = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidLogLevel       = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat      = errors.New("logging.format must be 'text' or 'json'")
	ErrNoRenderTargets       = errors.New("at least one of render.text or render.paginated must be enabled")
)

// Config represents the complete converter configuration.
type Config struct {
	Output   OutputConfig   `yaml:"output"`
	Site     SiteConfig     `yaml:"site"`
	Download DownloadConfig `yaml:"download"`
	Retry    RetryPolicy    `yaml:"retry"`
	Render   RenderConfig   `yaml:"render"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// OutputConfig defines where rendered artifacts and images are written.
type OutputConfig struct {
	// BaseDir is the root of the output tree; text artifacts go to
	// {base_dir}/md, paginated artifacts to {base_dir}/pdf and reports
	// to {base_dir}/report.
	BaseDir   string `yaml:"base_dir"`
	ImagesDir string `yaml:"images_dir"`
}

// SiteConfig identifies the publishing platform's URL schemes.
type SiteConfig struct {
	// OriginHost is the canonical image origin (e.g. "images.vocus.cc").
	OriginHost string `yaml:"origin_host"`
	// ProxyHost is the resize/redirect proxy (e.g. "resize-image.vocus.cc").
	ProxyHost string `yaml:"proxy_host"`
	// Referer is sent with browser-emulating header sets.
	Referer string `yaml:"referer"`
}

// DownloadConfig tunes the resilient image downloader.
type DownloadConfig struct {
	TimeoutSec     int `yaml:"timeout_sec"`
	MaxRetries     int `yaml:"max_retries"`
	MinDelayMs     int `yaml:"min_delay_ms"`
	MaxDelayMs     int `yaml:"max_delay_ms"`
	ChunkSizeBytes int `yaml:"chunk_size_bytes"`
	ChunkDelayMs   int `yaml:"chunk_delay_ms"`
	MinBodyBytes   int `yaml:"min_body_bytes"`
}

// Timeout returns the per-attempt timeout duration.
func (d *DownloadConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutSec) * time.Second
}

// RetryPolicy defines the bounded exponential backoff applied when the
// download chain escalates from one strategy to the next. The per-attempt
// jitter within a strategy is governed by DownloadConfig instead.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
}

// GetRetryDelay returns the backoff before the given attempt. The first
// attempt waits nothing; later attempts grow by the multiplier up to the
// configured cap.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delay := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delay *= rp.BackoffMultiplier
	}

	if capMs := float64(rp.MaxDelayMs); delay > capMs {
		delay = capMs
	}

	return time.Duration(delay) * time.Millisecond
}

// RenderConfig selects which artifacts to produce.
type RenderConfig struct {
	Text      bool   `yaml:"text"`
	Paginated bool   `yaml:"paginated"`
	// BrowserPath overrides headless-browser discovery for the paginated
	// backend. Empty means probe well-known names on PATH.
	BrowserPath string `yaml:"browser_path"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration with working defaults for the vocus.cc
// platform.
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			BaseDir:   "output",
			ImagesDir: "images",
		},
		Site: SiteConfig{
			OriginHost: "images.vocus.cc",
			ProxyHost:  "resize-image.vocus.cc",
			Referer:    "https://vocus.cc/",
		},
		Download: DownloadConfig{
			TimeoutSec:     30,
			MaxRetries:     3,
			MinDelayMs:     1000,
			MaxDelayMs:     3000,
			ChunkSizeBytes: 1024,
			ChunkDelayMs:   10,
			MinBodyBytes:   100,
		},
		Retry: RetryPolicy{
			MaxAttempts:       3,
			InitialDelayMs:    500,
			MaxDelayMs:        30000,
			BackoffMultiplier: 2.0,
		},
		Render: RenderConfig{
			Text:      true,
			Paginated: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start from defaults so a partial file only overrides what it names.
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Output.BaseDir == "" {
		return ErrMissingOutputDir
	}

	if c.Output.ImagesDir == "" {
		return ErrMissingImagesDir
	}

	if c.Site.OriginHost == "" {
		return ErrMissingOriginHost
	}

	if c.Site.ProxyHost == "" {
		return ErrMissingProxyHost
	}

	if c.Download.MaxRetries < 1 {
		return ErrInvalidMaxRetries
	}

	if c.Download.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	if c.Download.MinDelayMs > c.Download.MaxDelayMs {
		return ErrInvalidDelayRange
	}

	if c.Download.MinBodyBytes < 0 {
		return ErrInvalidMinBodyBytes
	}

	if c.Download.ChunkSizeBytes < 1 {
		return ErrInvalidChunkSize
	}

	if c.Retry.MaxAttempts < 1 {
		return ErrInvalidRetryAttempts
	}

	if c.Retry.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if c.Retry.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoff
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return ErrInvalidLogFormat
	}

	if !c.Render.Text && !c.Render.Paginated {
		return ErrNoRenderTargets
	}

	return nil
}

// TextDir returns the directory for text (markdown) artifacts.
func (c *Config) TextDir() string {
	return filepath.Join(c.Output.BaseDir, "md")
}

// PaginatedDir returns the directory for paginated (PDF) artifacts.
func (c *Config) PaginatedDir() string {
	return filepath.Join(c.Output.BaseDir, "pdf")
}

// ReportDir returns the directory for batch conversion reports.
func (c *Config) ReportDir() string {
	return filepath.Join(c.Output.BaseDir, "report")
}
