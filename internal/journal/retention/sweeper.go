// Package retention implements age-based pruning of archived days.
//
// The sweeper deletes archives strictly older than a cutoff date computed
// from the current date and the configured maximum age. It runs against
// the archive store only and never touches the working bucket, so it does
// not contend with the journal service's operation lock.
package retention

import (
	"log/slog"
	"sync"
	"time"

	"github.com/xtxerr/daylog/internal/journal/archive"
	"github.com/xtxerr/daylog/internal/journal/types"
	"github.com/xtxerr/daylog/internal/logging"
)

// Result summarizes one sweep.
type Result struct {
	Cutoff       types.Date
	FilesDeleted int
	BytesFreed   int64
	FilesSkipped int
	Errors       []error
	Duration     time.Duration
	DryRun       bool
}

// Stats holds cumulative sweeper statistics.
type Stats struct {
	Sweeps            int64
	TotalFilesDeleted int64
	TotalBytesFreed   int64
	TotalErrors       int64
	LastSweep         time.Time
	LastResult        Result
}

// Sweeper prunes old archives. Safe for concurrent use.
type Sweeper struct {
	mu      sync.Mutex
	archive *archive.Store
	clock   func() time.Time
	log     *slog.Logger
	stats   Stats
}

// New creates a sweeper over the given archive store. A nil clock defaults
// to time.Now.
func New(as *archive.Store, clock func() time.Time) *Sweeper {
	if clock == nil {
		clock = time.Now
	}
	return &Sweeper{
		archive: as,
		clock:   clock,
		log:     logging.Component("retention"),
	}
}

// Cutoff returns the retention cutoff for the current date: archives dated
// strictly before it are prunable, archives dated on or after it are kept.
func (s *Sweeper) Cutoff(maxAgeDays int) types.Date {
	return types.DateOf(s.clock()).AddDays(-maxAgeDays)
}

// Prune deletes all archives older than the cutoff. Deletion is
// best-effort per file: individual failures are collected in the result
// and do not stop the sweep. Re-running after a partial failure finishes
// the job, so the sweep is idempotent.
func (s *Sweeper) Prune(maxAgeDays int) Result {
	return s.sweep(maxAgeDays, false)
}

// DryRun reports what Prune would delete without deleting anything.
func (s *Sweeper) DryRun(maxAgeDays int) Result {
	return s.sweep(maxAgeDays, true)
}

func (s *Sweeper) sweep(maxAgeDays int, dry bool) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.clock()
	result := Result{
		Cutoff: s.Cutoff(maxAgeDays),
		DryRun: dry,
	}

	files, err := s.archive.ListFiles()
	if err != nil {
		result.Errors = append(result.Errors, err)
		s.finish(&result, start)
		return result
	}

	for _, f := range files {
		if !f.Date.Before(result.Cutoff) {
			result.FilesSkipped++
			continue
		}

		if dry {
			result.FilesDeleted++
			result.BytesFreed += f.Size
			continue
		}

		if err := s.archive.Delete(f.Date); err != nil {
			s.log.Warn("failed to prune archive", "date", f.Date, "error", err)
			result.Errors = append(result.Errors, err)
			continue
		}

		s.log.Debug("pruned archive",
			"date", f.Date, "size", f.Size, "state", types.StatePruned)
		result.FilesDeleted++
		result.BytesFreed += f.Size
	}

	s.finish(&result, start)
	s.log.Info("retention sweep complete",
		"cutoff", result.Cutoff,
		"deleted", result.FilesDeleted,
		"bytes_freed", result.BytesFreed,
		"skipped", result.FilesSkipped,
		"errors", len(result.Errors),
		"dry_run", dry)
	return result
}

func (s *Sweeper) finish(result *Result, start time.Time) {
	result.Duration = s.clock().Sub(start)

	s.stats.Sweeps++
	s.stats.LastSweep = start
	s.stats.LastResult = *result
	s.stats.TotalErrors += int64(len(result.Errors))
	if !result.DryRun {
		s.stats.TotalFilesDeleted += int64(result.FilesDeleted)
		s.stats.TotalBytesFreed += result.BytesFreed
	}
}

// Stats returns cumulative sweeper statistics.
func (s *Sweeper) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
