// Package journal wires the working bucket, rollover engine, archive store
// and retention sweeper into one service.
//
// Concurrency model: a single mutex serializes every operation that can
// observe or mutate the working bucket and the reset marker, and it is held
// across the entire rollover (archive write included), so no caller can see
// a half-swapped day. Archive reads and retention sweeps only touch the
// archive store, which synchronizes internally, and run outside that lock.
package journal

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/xtxerr/daylog/internal/journal/archive"
	"github.com/xtxerr/daylog/internal/journal/config"
	"github.com/xtxerr/daylog/internal/journal/retention"
	"github.com/xtxerr/daylog/internal/journal/rollover"
	"github.com/xtxerr/daylog/internal/journal/snapshot"
	"github.com/xtxerr/daylog/internal/journal/stats"
	"github.com/xtxerr/daylog/internal/journal/types"
	"github.com/xtxerr/daylog/internal/journal/working"
	"github.com/xtxerr/daylog/internal/logging"
)

const (
	bucketSnapshotFile = "current.snap"
	markerSnapshotFile = "marker.snap"
)

// Service is the journal service. All methods are safe for concurrent use.
type Service struct {
	mu sync.Mutex // guards working bucket + marker, held across rollover

	config   *config.Config
	working  *working.Store
	archive  *archive.Store
	engine   *rollover.Engine
	sweeper  *retention.Sweeper
	clock    rollover.Clock
	statsOpt stats.Options
	log      *slog.Logger
}

// ServiceStats aggregates statistics from every component.
type ServiceStats struct {
	Working   working.Stats
	Archive   archive.Stats
	Rollover  rollover.Stats
	Retention retention.Stats
}

// New creates a journal service. A nil clock defaults to time.Now.
func New(cfg *config.Config, clock rollover.Clock) (*Service, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if clock == nil {
		clock = time.Now
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	snapOpts := snapshot.Options{
		MaxRetries: cfg.Storage.MaxWriteRetries,
		RetryDelay: cfg.Storage.WriteRetryDelay,
	}

	as, err := archive.NewStore(cfg.ArchiveDir(), archive.Options{
		Compression: archive.ParseCompressionType(cfg.Compression.Algorithm),
	})
	if err != nil {
		return nil, err
	}

	ws := working.NewStore(snapshot.NewStore(
		filepath.Join(cfg.StateDir(), bucketSnapshotFile), snapOpts))
	if err := ws.Open(); err != nil {
		return nil, err
	}

	engine := rollover.New(ws, as, snapshot.NewStore(
		filepath.Join(cfg.StateDir(), markerSnapshotFile), snapOpts), clock)
	if err := engine.Open(); err != nil {
		return nil, err
	}

	s := &Service{
		config:  cfg,
		working: ws,
		archive: as,
		engine:  engine,
		sweeper: retention.New(as, clock),
		clock:   clock,
		statsOpt: stats.Options{
			Percentiles: cfg.Stats.Enabled,
			Accuracy:    cfg.Stats.PercentileAccuracy,
		},
		log: logging.Component("journal"),
	}

	// Bring the bucket up to date before serving anything, so a restart
	// across a day boundary rolls over immediately instead of on first use.
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.engine.EnsureCurrent(); err != nil {
		return nil, err
	}

	s.log.Info("journal ready",
		"data_dir", cfg.DataDir,
		"current", s.working.Bucket().Date,
		"retention_days", cfg.Retention.MaxAgeDays)
	return s, nil
}

// AddEntry appends an entry to today's bucket and returns it with its
// assigned id and timestamp.
func (s *Service) AddEntry(ownerID string, payload types.EntryPayload) (types.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.EnsureCurrent(); err != nil {
		return types.Entry{}, err
	}
	return s.working.AddEntry(ownerID, payload, s.clock())
}

// RemoveEntry deletes one of the owner's entries from today's bucket.
func (s *Service) RemoveEntry(ownerID, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.EnsureCurrent(); err != nil {
		return err
	}
	return s.working.RemoveEntry(ownerID, entryID, s.clock())
}

// Today returns the owner's view of the current day.
func (s *Service) Today(ownerID string) (types.DayView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.EnsureCurrent(); err != nil {
		return types.DayView{}, err
	}
	return s.working.View(ownerID)
}

// TodayStats returns per-metric summaries over the owner's current day.
func (s *Service) TodayStats(ownerID string) ([]stats.MetricSummary, error) {
	view, err := s.Today(ownerID)
	if err != nil {
		return nil, err
	}
	return stats.Summarize(view.Entries, s.statsOpt), nil
}

// GetArchive returns the immutable snapshot of a past day. The working
// bucket is never consulted: today is not an archive.
func (s *Service) GetArchive(rawDate string) (*types.Archive, error) {
	return s.archive.Get(rawDate)
}

// ArchiveStats returns per-metric summaries over one owner's entries in an
// archived day.
func (s *Service) ArchiveStats(ownerID, rawDate string) ([]stats.MetricSummary, error) {
	arc, err := s.archive.Get(rawDate)
	if err != nil {
		return nil, err
	}

	var own []types.Entry
	for _, e := range arc.Bucket.Entries {
		if e.OwnerID == ownerID {
			own = append(own, e)
		}
	}
	return stats.Summarize(own, s.statsOpt), nil
}

// ListArchiveDates returns all archived dates, newest first.
func (s *Service) ListArchiveDates() ([]types.Date, error) {
	return s.archive.ListDates()
}

// EnsureCurrent runs the day-boundary check. Called by the scheduler as a
// safety net; every mutation and read path also runs it on access.
func (s *Service) EnsureCurrent() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.EnsureCurrent()
}

// ForceReset archives the current bucket and starts a fresh one dated date.
func (s *Service) ForceReset(rawDate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.ForceReset(rawDate)
}

// PruneArchives deletes archives older than the configured retention
// window. Runs outside the operation lock.
func (s *Service) PruneArchives() retention.Result {
	return s.sweeper.Prune(s.config.Retention.MaxAgeDays)
}

// PruneDryRun reports what PruneArchives would delete.
func (s *Service) PruneDryRun() retention.Result {
	return s.sweeper.DryRun(s.config.Retention.MaxAgeDays)
}

// CurrentDate returns the date of the working bucket.
func (s *Service) CurrentDate() types.Date {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b := s.working.Bucket(); b != nil {
		return b.Date
	}
	return ""
}

// Stats returns statistics from all components.
func (s *Service) Stats() ServiceStats {
	s.mu.Lock()
	st := ServiceStats{
		Working:  s.working.Stats(),
		Rollover: s.engine.Stats(),
	}
	s.mu.Unlock()

	st.Archive = s.archive.Stats()
	st.Retention = s.sweeper.Stats()
	return st
}
