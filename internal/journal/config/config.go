// Package config defines the journal storage configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xtxerr/daylog/config"
)

// Config represents the complete journal configuration.
type Config struct {
	// DataDir is the root directory for all durable state.
	DataDir string `yaml:"data_dir"`

	// Retention defines how long day archives are kept.
	Retention RetentionConfig `yaml:"retention"`

	// Storage configures durable-write behavior.
	Storage StorageConfig `yaml:"storage"`

	// Scheduler configures the safety-net background ticks.
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Compression configures Parquet compression for archives.
	Compression CompressionConfig `yaml:"compression"`

	// Stats configures per-metric distribution summaries.
	Stats StatsConfig `yaml:"stats"`

	// Query configures the DuckDB archive query service.
	Query QueryConfig `yaml:"query"`
}

// RetentionConfig defines how long day archives are kept.
type RetentionConfig struct {
	// MaxAgeDays is the retention window; archives strictly older than
	// today minus this many days are pruned.
	MaxAgeDays int `yaml:"max_age_days"`
}

// StorageConfig configures durable-write behavior.
type StorageConfig struct {
	// MaxWriteRetries is the max attempts for a durable write.
	MaxWriteRetries int `yaml:"max_write_retries"`

	// WriteRetryDelay is the pause between retries.
	WriteRetryDelay time.Duration `yaml:"write_retry_delay"`
}

// SchedulerConfig configures the safety-net background ticks.
type SchedulerConfig struct {
	// RolloverCheckInterval is the safety-net rollover check period.
	RolloverCheckInterval time.Duration `yaml:"rollover_check_interval"`

	// RetentionSweepInterval is the archive prune period.
	RetentionSweepInterval time.Duration `yaml:"retention_sweep_interval"`
}

// CompressionConfig configures Parquet compression.
type CompressionConfig struct {
	// Algorithm is the compression algorithm: snappy, zstd, lz4, gzip, none.
	Algorithm string `yaml:"algorithm"`

	// Level is the compression level (for zstd: 1-22).
	Level int `yaml:"level"`
}

// StatsConfig configures per-metric distribution summaries.
type StatsConfig struct {
	// Enabled enables DDSketch percentile calculation.
	Enabled bool `yaml:"enabled"`

	// PercentileAccuracy is the relative accuracy (0.01 = 1% error).
	PercentileAccuracy float64 `yaml:"percentile_accuracy"`
}

// QueryConfig configures the DuckDB archive query service.
type QueryConfig struct {
	// Enabled enables SQL queries over archived days.
	Enabled bool `yaml:"enabled"`

	// MemoryLimit is the DuckDB memory limit.
	MemoryLimit string `yaml:"memory_limit"`

	// Timeout is the per-query timeout.
	Timeout time.Duration `yaml:"timeout"`

	// MaxRows caps the number of rows returned.
	MaxRows int `yaml:"max_rows"`
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir: config.DefaultDataDir,
		Retention: RetentionConfig{
			MaxAgeDays: config.DefaultMaxAgeDays,
		},
		Storage: StorageConfig{
			MaxWriteRetries: config.DefaultMaxWriteRetries,
			WriteRetryDelay: config.DefaultWriteRetryDelay,
		},
		Scheduler: SchedulerConfig{
			RolloverCheckInterval:  config.DefaultRolloverCheckInterval,
			RetentionSweepInterval: config.DefaultRetentionSweepInterval,
		},
		Compression: CompressionConfig{
			Algorithm: "zstd",
			Level:     3,
		},
		Stats: StatsConfig{
			Enabled:            true,
			PercentileAccuracy: config.DefaultPercentileAccuracy,
		},
		Query: QueryConfig{
			Enabled:     false,
			MemoryLimit: config.DefaultQueryMemoryLimit,
			Timeout:     config.DefaultQueryTimeout,
			MaxRows:     config.DefaultQueryMaxRows,
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.Retention.MaxAgeDays <= 0 {
		return fmt.Errorf("retention.max_age_days must be positive, got %d", c.Retention.MaxAgeDays)
	}
	if c.Storage.MaxWriteRetries < 1 {
		return fmt.Errorf("storage.max_write_retries must be at least 1, got %d", c.Storage.MaxWriteRetries)
	}
	if c.Scheduler.RolloverCheckInterval <= 0 {
		return fmt.Errorf("scheduler.rollover_check_interval must be positive")
	}
	if c.Scheduler.RetentionSweepInterval <= 0 {
		return fmt.Errorf("scheduler.retention_sweep_interval must be positive")
	}
	if c.Stats.Enabled && (c.Stats.PercentileAccuracy <= 0 || c.Stats.PercentileAccuracy >= 1) {
		return fmt.Errorf("stats.percentile_accuracy must be in (0, 1), got %v", c.Stats.PercentileAccuracy)
	}

	switch c.Compression.Algorithm {
	case "", "none", "snappy", "zstd", "lz4", "gzip":
	default:
		return fmt.Errorf("unknown compression algorithm %q", c.Compression.Algorithm)
	}

	return nil
}

// StateDir returns the directory holding the current bucket and marker.
func (c *Config) StateDir() string {
	return filepath.Join(c.DataDir, "state")
}

// ArchiveDir returns the directory holding per-day archive files.
func (c *Config) ArchiveDir() string {
	return filepath.Join(c.DataDir, "archive")
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.DataDir, c.StateDir(), c.ArchiveDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
