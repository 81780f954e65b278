package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazyhaar/lexpipe/residency"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadConfigMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
listen: ":9999"
role: admin
ocr:
  remote_endpoint: https://ocr.example.test/v1/recognize
  batch_size: 5
residency:
  mode: restricted
  allowed: [remote_ocr]
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":9999" || cfg.Role != "admin" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.OCR.BatchSize != 5 || cfg.OCR.RemoteEndpoint == "" {
		t.Errorf("ocr overrides not applied: %+v", cfg.OCR)
	}
	// Defaults survive for unset keys.
	if cfg.DBPath != "lexpipe.db" || cfg.OCR.PollIntervalS != 10 {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if cfg.Residency.Mode != residency.ModeRestricted {
		t.Errorf("residency mode = %s", cfg.Residency.Mode)
	}
	dec := cfg.Residency.AssertCapabilityAllowed(residency.CapabilityRemoteOCR)
	if !dec.OK {
		t.Errorf("remote_ocr should be allowed: %+v", dec)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty db path", func(c *Config) { c.DBPath = "" }, "db_path"},
		{"bad role", func(c *Config) { c.Role = "root" }, "role"},
		{"bad residency mode", func(c *Config) { c.Residency.Mode = "offshore" }, "residency"},
		{"zero batch", func(c *Config) { c.OCR.BatchSize = 0 }, "batch_size"},
		{"zero poll", func(c *Config) { c.OCR.PollIntervalS = 0 }, "poll_interval_s"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}
