// Package config loads the agent configuration from YAML with environment
// variable expansion.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full agent configuration surface.
type Config struct {
	// Server holds the HTTP listener settings.
	Server struct {
		ListenAddr string  `yaml:"listen_addr"`
		RateLimit  float64 `yaml:"rate_limit"`  // requests per second, 0 disables
		RateBurst  int     `yaml:"rate_burst"`  // bucket size when rate limiting
		MaxPDFSize int64   `yaml:"max_pdf_mb"`  // upload cap in MiB
	} `yaml:"server"`

	// Audit controls the run pipeline.
	Audit struct {
		RenderTimeoutSeconds   int  `yaml:"render_timeout_seconds"`
		EnableComputedContrast bool `yaml:"enable_computed_contrast"`
		BrowserPoolSize        int  `yaml:"browser_pool_size"`

		// Score calibration per target kind, default 1.0.
		WebScoreScale float64 `yaml:"web_score_scale"`
		PDFScoreScale float64 `yaml:"pdf_score_scale"`
	} `yaml:"audit"`

	// Storage controls artifact persistence and retention.
	Storage struct {
		DataDir       string        `yaml:"data_dir"`
		RetentionDays int           `yaml:"retention_days"`
		SweepInterval time.Duration `yaml:"sweep_interval"`
		MinFreeDiskMB uint64        `yaml:"min_free_disk_mb"`
	} `yaml:"storage"`

	Verbose bool `yaml:"verbose"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.ListenAddr = ":8080"
	cfg.Server.RateLimit = 10
	cfg.Server.RateBurst = 20
	cfg.Server.MaxPDFSize = 32
	cfg.Audit.RenderTimeoutSeconds = 30
	cfg.Audit.EnableComputedContrast = true
	cfg.Audit.BrowserPoolSize = 4
	cfg.Audit.WebScoreScale = 1.0
	cfg.Audit.PDFScoreScale = 1.0
	cfg.Storage.DataDir = "./data"
	cfg.Storage.RetentionDays = 90
	cfg.Storage.SweepInterval = 24 * time.Hour
	cfg.Storage.MinFreeDiskMB = 256
	return cfg
}

// Load reads path over the defaults. Environment variables in the file are
// expanded before parsing.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Audit.RenderTimeoutSeconds <= 0 {
		return fmt.Errorf("audit.render_timeout_seconds must be positive, got %d", c.Audit.RenderTimeoutSeconds)
	}
	if c.Audit.BrowserPoolSize <= 0 {
		return fmt.Errorf("audit.browser_pool_size must be positive, got %d", c.Audit.BrowserPoolSize)
	}
	if c.Audit.WebScoreScale < 0 || c.Audit.PDFScoreScale < 0 {
		return fmt.Errorf("score scales must not be negative")
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir must be set")
	}
	if c.Storage.RetentionDays <= 0 {
		return fmt.Errorf("storage.retention_days must be positive, got %d", c.Storage.RetentionDays)
	}
	if c.Server.MaxPDFSize <= 0 {
		return fmt.Errorf("server.max_pdf_mb must be positive, got %d", c.Server.MaxPDFSize)
	}
	return nil
}

// RenderTimeout returns the navigation ceiling as a duration.
func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.Audit.RenderTimeoutSeconds) * time.Second
}

// MaxPDFBytes returns the upload cap in bytes.
func (c *Config) MaxPDFBytes() int64 {
	return c.Server.MaxPDFSize << 20
}
