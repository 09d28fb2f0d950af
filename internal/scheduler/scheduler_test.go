package scheduler

import (
	"testing"
	"time"

	"github.com/xtxerr/daylog/internal/journal"
	"github.com/xtxerr/daylog/internal/journal/config"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Scheduler.RolloverCheckInterval = 10 * time.Millisecond
	cfg.Scheduler.RetentionSweepInterval = 10 * time.Millisecond

	svc, err := journal.New(cfg, nil)
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}
	return New(svc, cfg)
}

func TestScheduler_StartStop(t *testing.T) {
	s := newTestScheduler(t)

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Start(); err == nil {
		t.Error("second start should fail")
	}

	time.Sleep(60 * time.Millisecond)
	s.Stop()

	stats := s.Stats()
	if stats.RolloverTicks == 0 {
		t.Error("rollover worker never ticked")
	}
	if stats.RetentionTicks == 0 {
		t.Error("retention worker never ticked")
	}
	if stats.Panics != 0 {
		t.Errorf("unexpected panics: %d", stats.Panics)
	}

	// Stop is idempotent.
	s.Stop()
}

func TestScheduler_TicksStopAfterStop(t *testing.T) {
	s := newTestScheduler(t)

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	s.Stop()

	before := s.Stats()
	time.Sleep(50 * time.Millisecond)
	after := s.Stats()

	if after.RolloverTicks != before.RolloverTicks {
		t.Error("rollover worker still ticking after stop")
	}
	if after.RetentionTicks != before.RetentionTicks {
		t.Error("retention worker still ticking after stop")
	}
}

func TestScheduler_PanicRecovery(t *testing.T) {
	s := newTestScheduler(t)

	s.runProtected("test job", func() error {
		panic("boom")
	})

	if got := s.Stats().Panics; got != 1 {
		t.Errorf("expected 1 recovered panic, got %d", got)
	}
}
