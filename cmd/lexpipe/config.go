package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/lexpipe/residency"
)

// Config holds the full lexpipe configuration.
type Config struct {
	Listen    string           `yaml:"listen"`
	DBPath    string           `yaml:"db_path"`
	ObsDBPath string           `yaml:"obs_db_path"`
	BlobDir   string           `yaml:"blob_dir"`
	Role      string           `yaml:"role"` // admin | member | viewer
	LogLevel  string           `yaml:"log_level"`
	OCR       OCRConfig        `yaml:"ocr"`
	Residency residency.Policy `yaml:"residency"`
}

// OCRConfig configures the OCR consumer.
type OCRConfig struct {
	RemoteEndpoint string `yaml:"remote_endpoint"`
	RemoteToken    string `yaml:"remote_token"`
	LocalEnabled   bool   `yaml:"local_enabled"`
	Languages      string `yaml:"languages"` // tesseract notation, e.g. deu+eng
	BatchSize      int    `yaml:"batch_size"`
	PollIntervalS  int    `yaml:"poll_interval_s"`
	VisibilityS    int    `yaml:"visibility_s"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:    ":8086",
		DBPath:    "lexpipe.db",
		ObsDBPath: "lexpipe_obs.db",
		BlobDir:   "blobs",
		Role:      "member",
		LogLevel:  "info",
		OCR: OCRConfig{
			Languages:     "deu+eng",
			BatchSize:     10,
			PollIntervalS: 10,
			VisibilityS:   120,
		},
		Residency: residency.DefaultPolicy(),
	}
}

// LoadConfig reads and parses a YAML config file, merged over DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.BlobDir == "" {
		return fmt.Errorf("blob_dir is required")
	}
	switch c.Role {
	case "admin", "member", "viewer":
	default:
		return fmt.Errorf("unsupported role %q (use admin, member or viewer)", c.Role)
	}
	switch c.Residency.Mode {
	case residency.ModeOpen, residency.ModeRestricted, residency.ModeLocalOnly:
	default:
		return fmt.Errorf("unsupported residency mode %q", c.Residency.Mode)
	}
	if c.OCR.BatchSize <= 0 {
		return fmt.Errorf("ocr.batch_size must be > 0")
	}
	if c.OCR.PollIntervalS <= 0 {
		return fmt.Errorf("ocr.poll_interval_s must be > 0")
	}
	if c.OCR.VisibilityS <= 0 {
		return fmt.Errorf("ocr.visibility_s must be > 0")
	}
	return nil
}

func (c *Config) pollInterval() time.Duration {
	return time.Duration(c.OCR.PollIntervalS) * time.Second
}

func (c *Config) visibility() time.Duration {
	return time.Duration(c.OCR.VisibilityS) * time.Second
}
