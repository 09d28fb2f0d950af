package types

import "time"

// DailyBucket is the mutable working set of entries for a single calendar
// day, plus incrementally maintained aggregate totals.
//
// Exactly one bucket is "current" at any time; its Date always equals the
// calendar date under which mutations are being accepted.
type DailyBucket struct {
	Date        Date               `json:"date"`
	Entries     []Entry            `json:"entries"`
	Totals      map[string]float64 `json:"totals"`
	LastUpdated time.Time          `json:"last_updated"`
}

// NewBucket creates an empty bucket for the given date.
func NewBucket(date Date) *DailyBucket {
	return &DailyBucket{
		Date:    date,
		Entries: []Entry{},
		Totals:  map[string]float64{},
	}
}

// Append adds an entry to the bucket and folds its metrics into the totals.
func (b *DailyBucket) Append(e Entry, now time.Time) {
	b.Entries = append(b.Entries, e)
	for metric, value := range e.Metrics {
		b.Totals[metric] += value
	}
	b.LastUpdated = now
}

// Remove deletes the entry with the given owner and id, subtracting its
// metrics from the totals. Totals are clamped at zero so corruption in a
// previously persisted bucket can never produce negative totals.
// The second return value reports whether the entry was found.
func (b *DailyBucket) Remove(ownerID, entryID string, now time.Time) (Entry, bool) {
	for i, e := range b.Entries {
		if e.ID != entryID || e.OwnerID != ownerID {
			continue
		}

		b.Entries = append(b.Entries[:i], b.Entries[i+1:]...)
		for metric, value := range e.Metrics {
			total := b.Totals[metric] - value
			if total <= 0 {
				delete(b.Totals, metric)
			} else {
				b.Totals[metric] = total
			}
		}
		b.LastUpdated = now
		return e, true
	}

	return Entry{}, false
}

// RecomputeTotals returns totals recomputed from scratch over the entries.
func (b *DailyBucket) RecomputeTotals() map[string]float64 {
	return SumMetrics(b.Entries)
}

// OwnerView returns the per-owner projection of the bucket: entries filtered
// to ownerID with totals recomputed over that subset. Entries are deep
// copies so callers can never mutate the bucket through a view.
func (b *DailyBucket) OwnerView(ownerID string) DayView {
	view := DayView{
		Date:        b.Date,
		Entries:     []Entry{},
		LastUpdated: b.LastUpdated,
	}

	for _, e := range b.Entries {
		if e.OwnerID == ownerID {
			view.Entries = append(view.Entries, e.Clone())
		}
	}
	view.Totals = SumMetrics(view.Entries)

	return view
}

// Clone returns a deep copy of the bucket.
func (b *DailyBucket) Clone() *DailyBucket {
	c := NewBucket(b.Date)
	c.LastUpdated = b.LastUpdated
	c.Entries = make([]Entry, 0, len(b.Entries))
	for _, e := range b.Entries {
		c.Entries = append(c.Entries, e.Clone())
	}
	for k, v := range b.Totals {
		c.Totals[k] = v
	}
	return c
}

// SumMetrics sums each metric across the given entries.
func SumMetrics(entries []Entry) map[string]float64 {
	totals := map[string]float64{}
	for _, e := range entries {
		for metric, value := range e.Metrics {
			totals[metric] += value
		}
	}
	return totals
}

// DayView is the read projection returned to callers: one owner's entries
// for a day together with totals over that subset.
type DayView struct {
	Date        Date               `json:"date"`
	Entries     []Entry            `json:"entries"`
	Totals      map[string]float64 `json:"totals"`
	LastUpdated time.Time          `json:"last_updated"`
}

// Archive is an immutable snapshot of a past day's bucket. Once created it
// is never mutated; it is deleted only by the retention sweeper.
type Archive struct {
	Bucket     DailyBucket `json:"bucket"`
	ArchivedAt time.Time   `json:"archived_at"`
}

// ResetMarker records the most recent date through which rollover has been
// applied. It makes rollover idempotent when invoked twice for the same
// boundary. LastRolloverDate is monotonically non-decreasing.
type ResetMarker struct {
	LastRolloverDate Date `json:"last_rollover_date"`
}
