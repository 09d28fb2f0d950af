// Package config provides configuration defaults and utilities
// for the daylog application.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via config.yaml or command-line flags.
package config

import "time"

// =============================================================================
// Storage Defaults
// =============================================================================

const (
	// DefaultDataDir is the root directory for all durable state.
	// Override via config: data_dir
	DefaultDataDir = "/var/lib/daylog"

	// DefaultMaxAgeDays is the retention window for day archives.
	// Archives strictly older than today minus this many days are pruned.
	// Override via config: retention.max_age_days
	DefaultMaxAgeDays = 30

	// DefaultMaxWriteRetries is the max attempts for a durable write before
	// the error is surfaced to the caller.
	// Override via config: storage.max_write_retries
	DefaultMaxWriteRetries = 3

	// DefaultWriteRetryDelay is the pause between durable-write retries.
	DefaultWriteRetryDelay = 50 * time.Millisecond
)

// =============================================================================
// Scheduler Defaults
// =============================================================================

const (
	// DefaultRolloverCheckInterval is how often the safety-net rollover check
	// runs. The primary trigger is the lazy check on every store operation;
	// this tick only bounds staleness during idle periods.
	// Override via config: scheduler.rollover_check_interval
	DefaultRolloverCheckInterval = time.Hour

	// DefaultRetentionSweepInterval is how often expired archives are pruned.
	// Override via config: scheduler.retention_sweep_interval
	DefaultRetentionSweepInterval = 7 * 24 * time.Hour
)

// =============================================================================
// Query Defaults
// =============================================================================

const (
	// DefaultQueryMemoryLimit is the DuckDB memory limit for archive queries.
	// Override via config: query.memory_limit
	DefaultQueryMemoryLimit = "512MB"

	// DefaultQueryTimeout is the per-query timeout.
	// Override via config: query.timeout
	DefaultQueryTimeout = 30 * time.Second

	// DefaultQueryMaxRows caps the number of rows returned by a query.
	// Override via config: query.max_rows
	DefaultQueryMaxRows = 100000
)

// =============================================================================
// Stats Defaults
// =============================================================================

const (
	// DefaultPercentileAccuracy is the DDSketch relative accuracy used for
	// per-metric distribution summaries (0.01 = 1% error).
	// Override via config: stats.percentile_accuracy
	DefaultPercentileAccuracy = 0.01
)
