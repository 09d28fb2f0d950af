// Package rollover implements the day-boundary transition: archive the
// stale working bucket, swap in a fresh bucket for the current date and
// advance the persisted reset marker.
//
// The engine is driven two ways: lazily, by the journal service checking
// before every operation, and periodically, by the scheduler as a safety
// net for idle periods. Both paths converge on EnsureCurrent, which is
// idempotent: once a boundary has been processed, re-running it for the
// same boundary is a no-op.
package rollover

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xtxerr/daylog/internal/errors"
	"github.com/xtxerr/daylog/internal/journal/archive"
	"github.com/xtxerr/daylog/internal/journal/snapshot"
	"github.com/xtxerr/daylog/internal/journal/types"
	"github.com/xtxerr/daylog/internal/journal/working"
	"github.com/xtxerr/daylog/internal/logging"
)

// Clock returns the current time. Injected so day boundaries are testable.
type Clock func() time.Time

// Stats holds rollover statistics.
type Stats struct {
	Checks       int64
	Rollovers    int64
	ForcedResets int64
	Failures     int64
	LastRollover time.Time
}

// Engine owns the working bucket lifecycle and the reset marker. Callers
// must serialize access; the journal service holds its lock across every
// engine call.
type Engine struct {
	working    *working.Store
	archive    *archive.Store
	markerSnap *snapshot.Store
	marker     types.ResetMarker
	clock      Clock
	log        *slog.Logger
	stats      Stats
}

// New creates a rollover engine.
func New(ws *working.Store, as *archive.Store, markerSnap *snapshot.Store, clock Clock) *Engine {
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		working:    ws,
		archive:    as,
		markerSnap: markerSnap,
		clock:      clock,
		log:        logging.Component("rollover"),
	}
}

// Open loads the persisted reset marker. A missing marker means no rollover
// has ever happened and is not an error.
func (e *Engine) Open() error {
	var marker types.ResetMarker
	if err := e.markerSnap.Load(&marker); err != nil {
		if errors.IsNotFound(err) {
			return nil
		}
		return err
	}
	e.marker = marker
	return nil
}

// Marker returns the current reset marker.
func (e *Engine) Marker() types.ResetMarker {
	return e.marker
}

// EnsureCurrent brings the working bucket up to the clock's current date.
// If the bucket is already current this is a cheap no-op. If the bucket is
// stale it is archived and replaced; the archive write must succeed before
// the bucket is swapped, so a storage failure leaves the stale bucket in
// place to be retried on the next check.
func (e *Engine) EnsureCurrent() error {
	e.stats.Checks++
	today := types.DateOf(e.clock())

	bucket := e.working.Bucket()
	if bucket == nil {
		// First start: no bucket on disk yet.
		e.log.Info("creating initial bucket", "date", today)
		return e.working.Replace(types.NewBucket(today))
	}

	if bucket.Date == today {
		return nil
	}

	if bucket.Date.After(today) {
		// Clock moved backwards across a day boundary. Never archive a
		// future-dated bucket; keep accepting writes into it and let the
		// clock catch up.
		e.log.Warn("working bucket is ahead of the clock",
			"bucket_date", bucket.Date, "today", today)
		return nil
	}

	return e.rollover(bucket, today)
}

// ForceReset performs the rollover unconditionally as-of the given date:
// the current bucket is archived under its own date and an empty bucket
// dated date becomes current. Intended for operational recovery and tests.
func (e *Engine) ForceReset(rawDate string) error {
	date, err := types.ParseDate(rawDate)
	if err != nil {
		return err
	}

	bucket := e.working.Bucket()
	if bucket == nil {
		e.log.Info("force reset with no bucket", "date", date)
		return e.working.Replace(types.NewBucket(date))
	}
	if bucket.Date == date {
		return fmt.Errorf("bucket already dated %s: %w", date, errors.ErrAlreadyExists)
	}

	e.stats.ForcedResets++
	return e.rollover(bucket, date)
}

// rollover archives stale and swaps in a fresh bucket for newDate.
// Ordering is load-bearing: the archive write is confirmed durable before
// the working bucket is replaced, and the marker advances last.
func (e *Engine) rollover(stale *types.DailyBucket, newDate types.Date) error {
	e.log.Info("rolling over",
		"from", stale.Date, "to", newDate,
		"entries", len(stale.Entries), "state", types.StateArchiving)

	// The archive store is write-once, so the write itself is the
	// idempotency check: a boundary that was already processed comes back
	// as ErrAlreadyExists. Gating on the marker instead would skip the
	// write for a bucket re-created behind the marker (force reset to a
	// past date) and drop its entries.
	err := e.archive.Put(stale.Date, stale, e.clock())
	switch {
	case err == nil:
	case errors.IsAlreadyExists(err):
		// A previous attempt archived the bucket but died before the
		// swap. The snapshot on disk is authoritative; carry on.
		e.log.Warn("archive already present, resuming interrupted rollover",
			"date", stale.Date)
	default:
		e.stats.Failures++
		e.log.Error("archive write failed, keeping stale bucket",
			"date", stale.Date, "error", err)
		return err
	}

	if err := e.working.Replace(types.NewBucket(newDate)); err != nil {
		e.stats.Failures++
		return err
	}

	if e.marker.LastRolloverDate.IsZero() || stale.Date.After(e.marker.LastRolloverDate) {
		marker := types.ResetMarker{LastRolloverDate: stale.Date}
		if err := e.markerSnap.Save(&marker); err != nil {
			// The archive and the new bucket are durable; a stale marker
			// only costs a redundant idempotency check next time.
			e.log.Error("marker write failed", "date", stale.Date, "error", err)
		} else {
			e.marker = marker
		}
	}

	e.stats.Rollovers++
	e.stats.LastRollover = e.clock()
	e.log.Info("rollover complete",
		"archived", stale.Date, "current", newDate, "state", types.StateArchived)
	return nil
}

// Stats returns rollover statistics.
func (e *Engine) Stats() Stats {
	return e.stats
}
