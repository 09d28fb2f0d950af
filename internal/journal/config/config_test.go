package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
	if cfg.Retention.MaxAgeDays != 30 {
		t.Errorf("expected 30 day retention, got %d", cfg.Retention.MaxAgeDays)
	}
	if cfg.Scheduler.RolloverCheckInterval != time.Hour {
		t.Errorf("expected hourly rollover check, got %s", cfg.Scheduler.RolloverCheckInterval)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
data_dir: /tmp/daylog-test
retention:
  max_age_days: 7
scheduler:
  rollover_check_interval: 30m
compression:
  algorithm: snappy
query:
  enabled: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Retention.MaxAgeDays != 7 {
		t.Errorf("expected 7, got %d", cfg.Retention.MaxAgeDays)
	}
	if cfg.Scheduler.RolloverCheckInterval != 30*time.Minute {
		t.Errorf("expected 30m, got %s", cfg.Scheduler.RolloverCheckInterval)
	}
	if cfg.Compression.Algorithm != "snappy" {
		t.Errorf("expected snappy, got %s", cfg.Compression.Algorithm)
	}
	// Unset fields keep defaults.
	if cfg.Storage.MaxWriteRetries != 3 {
		t.Errorf("expected default retries 3, got %d", cfg.Storage.MaxWriteRetries)
	}
	if !cfg.Query.Enabled {
		t.Error("query should be enabled")
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"zero retention", func(c *Config) { c.Retention.MaxAgeDays = 0 }},
		{"negative retention", func(c *Config) { c.Retention.MaxAgeDays = -1 }},
		{"zero retries", func(c *Config) { c.Storage.MaxWriteRetries = 0 }},
		{"bad compression", func(c *Config) { c.Compression.Algorithm = "brotli9000" }},
		{"bad accuracy", func(c *Config) { c.Stats.PercentileAccuracy = 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestEnsureDirectories(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	for _, dir := range []string{cfg.DataDir, cfg.StateDir(), cfg.ArchiveDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Errorf("stat %s: %v", dir, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}
}
