// Package scheduler runs the journal's periodic safety-net jobs: the
// hourly rollover check and the weekly retention sweep.
//
// The lazy check-on-access path already guarantees correctness; the
// scheduler only bounds how stale an idle process can get. Both intervals
// come from configuration.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xtxerr/daylog/internal/journal"
	"github.com/xtxerr/daylog/internal/journal/config"
	"github.com/xtxerr/daylog/internal/logging"
)

// Stats holds scheduler statistics.
type Stats struct {
	RolloverTicks  int64
	RetentionTicks int64
	Panics         int64
}

// Scheduler drives the periodic safety-net jobs.
type Scheduler struct {
	journal *journal.Service
	config  *config.Config
	log     *slog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool

	rolloverTicks  atomic.Int64
	retentionTicks atomic.Int64
	panics         atomic.Int64
}

// New creates a scheduler for the given journal service.
func New(svc *journal.Service, cfg *config.Config) *Scheduler {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		journal: svc,
		config:  cfg,
		log:     logging.Component("scheduler"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the background workers.
func (s *Scheduler) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("scheduler already running")
	}

	s.wg.Add(1)
	go s.rolloverWorker()

	s.wg.Add(1)
	go s.retentionWorker()

	s.log.Info("scheduler started",
		"rollover_check_interval", s.config.Scheduler.RolloverCheckInterval,
		"retention_sweep_interval", s.config.Scheduler.RetentionSweepInterval)
	return nil
}

// Stop stops the workers and waits for them to exit.
func (s *Scheduler) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}

	s.cancel()
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

// rolloverWorker periodically runs the day-boundary check.
func (s *Scheduler) rolloverWorker() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Scheduler.RolloverCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.rolloverTicks.Add(1)
			s.runProtected("rollover check", func() error {
				return s.journal.EnsureCurrent()
			})
		}
	}
}

// retentionWorker periodically prunes expired archives.
func (s *Scheduler) retentionWorker() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Scheduler.RetentionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.retentionTicks.Add(1)
			s.runProtected("retention sweep", func() error {
				result := s.journal.PruneArchives()
				if len(result.Errors) > 0 {
					return fmt.Errorf("%d archives failed to prune", len(result.Errors))
				}
				return nil
			})
		}
	}
}

// runProtected runs one tick, recovering panics so a failing job can never
// kill the worker loop.
func (s *Scheduler) runProtected(name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.panics.Add(1)
			s.log.Error("job panicked", "job", name, "panic", r)
		}
	}()

	if err := fn(); err != nil {
		s.log.Warn("job failed", "job", name, "error", err)
	}
}

// Stats returns scheduler statistics.
func (s *Scheduler) Stats() Stats {
	return Stats{
		RolloverTicks:  s.rolloverTicks.Load(),
		RetentionTicks: s.retentionTicks.Load(),
		Panics:         s.panics.Load(),
	}
}
