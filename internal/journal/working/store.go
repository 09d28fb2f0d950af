// Package working implements the mutable "current day" bucket of entries
// plus its incrementally maintained aggregate totals.
//
// The store keeps the bucket in memory and persists the whole bucket
// through a snapshot store on every mutation. It performs no day-boundary
// checks itself and is not safe for unsynchronized concurrent use: the
// journal service runs every operation, including the rollover check,
// inside one mutual-exclusion boundary.
package working

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xtxerr/daylog/internal/errors"
	"github.com/xtxerr/daylog/internal/journal/snapshot"
	"github.com/xtxerr/daylog/internal/journal/types"
	"github.com/xtxerr/daylog/internal/validation"
)

// Stats holds working set statistics.
type Stats struct {
	EntriesAdded   int64
	EntriesRemoved int64
	Reads          int64
}

// Store is the working set store.
type Store struct {
	snap   *snapshot.Store
	bucket *types.DailyBucket
	stats  Stats
}

// NewStore creates a working set store backed by the given snapshot file.
func NewStore(snap *snapshot.Store) *Store {
	return &Store{snap: snap}
}

// Open loads the persisted bucket if one exists. A missing snapshot is not
// an error; the rollover engine creates the first bucket on access.
func (s *Store) Open() error {
	var bucket types.DailyBucket
	if err := s.snap.Load(&bucket); err != nil {
		if errors.IsNotFound(err) {
			s.bucket = nil
			return nil
		}
		return err
	}

	if bucket.Totals == nil {
		bucket.Totals = map[string]float64{}
	}
	if bucket.Entries == nil {
		bucket.Entries = []types.Entry{}
	}

	s.bucket = &bucket
	return nil
}

// Bucket returns the in-memory current bucket, or nil before the first
// rollover check has run.
func (s *Store) Bucket() *types.DailyBucket {
	return s.bucket
}

// Replace persists b as the new current bucket and swaps it in. Used by the
// rollover engine after the old bucket has been durably archived.
func (s *Store) Replace(b *types.DailyBucket) error {
	if err := s.snap.Save(b); err != nil {
		return err
	}
	s.bucket = b
	return nil
}

// AddEntry validates the payload, assigns an id and timestamp, appends the
// entry and persists the bucket. The in-memory bucket is only swapped after
// the durable write succeeds, so a failed write leaves no trace.
func (s *Store) AddEntry(ownerID string, payload types.EntryPayload, now time.Time) (types.Entry, error) {
	if err := validation.ValidateOwnerID(ownerID); err != nil {
		return types.Entry{}, err
	}
	if payload.Name == "" {
		return types.Entry{}, errors.NewMissingField("name")
	}
	if err := validation.ValidateName(payload.Name, validation.EntryNameRules()); err != nil {
		return types.Entry{}, err
	}
	if err := validation.ValidateMetrics(payload.Metrics); err != nil {
		return types.Entry{}, err
	}
	if s.bucket == nil {
		return types.Entry{}, fmt.Errorf("no current bucket: %w", errors.ErrInternal)
	}

	entry := types.Entry{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      payload.Name,
		Metrics:   make(map[string]float64, len(payload.Metrics)),
		AddedAt:   now,
		Temporary: payload.Temporary,
		MediaRef:  payload.MediaRef,
	}
	for k, v := range payload.Metrics {
		entry.Metrics[k] = v
	}

	next := s.bucket.Clone()
	next.Append(entry, now)

	if err := s.snap.Save(next); err != nil {
		return types.Entry{}, err
	}

	s.bucket = next
	s.stats.EntriesAdded++
	return entry.Clone(), nil
}

// RemoveEntry deletes an entry by owner and id, subtracting its metrics
// from the totals, and persists the bucket. Returns ErrEntryNotFound if no
// such entry exists in the current bucket.
func (s *Store) RemoveEntry(ownerID, entryID string, now time.Time) error {
	if err := validation.ValidateOwnerID(ownerID); err != nil {
		return err
	}
	if entryID == "" {
		return errors.NewMissingField("entry_id")
	}
	if s.bucket == nil {
		return fmt.Errorf("entry %s: %w", entryID, errors.ErrEntryNotFound)
	}

	next := s.bucket.Clone()
	if _, found := next.Remove(ownerID, entryID, now); !found {
		return fmt.Errorf("entry %s: %w", entryID, errors.ErrEntryNotFound)
	}

	if err := s.snap.Save(next); err != nil {
		return err
	}

	s.bucket = next
	s.stats.EntriesRemoved++
	return nil
}

// View returns the per-owner projection of the current bucket.
func (s *Store) View(ownerID string) (types.DayView, error) {
	if err := validation.ValidateOwnerID(ownerID); err != nil {
		return types.DayView{}, err
	}
	if s.bucket == nil {
		return types.DayView{}, fmt.Errorf("no current bucket: %w", errors.ErrInternal)
	}

	s.stats.Reads++
	return s.bucket.OwnerView(ownerID), nil
}

// Stats returns working set statistics.
func (s *Store) Stats() Stats {
	return s.stats
}
