package types

import "time"

// Entry is a single structured record submitted for the current day.
// Entries are mutable only while their bucket is current; once the bucket
// is archived they are immutable.
type Entry struct {
	// ID uniquely identifies the entry within its bucket.
	ID string `json:"id"`

	// OwnerID identifies the submitting user.
	OwnerID string `json:"owner_id"`

	// Name is the human-readable label (e.g., "apple").
	Name string `json:"name"`

	// Metrics holds one or more named numeric measurements
	// (e.g., calories: 95).
	Metrics map[string]float64 `json:"metrics"`

	// AddedAt is the server timestamp at submission.
	AddedAt time.Time `json:"added_at"`

	// Temporary marks entries flagged for provisional display by callers.
	Temporary bool `json:"temporary,omitempty"`

	// MediaRef is an optional reference to externally-compressed media.
	MediaRef string `json:"media_ref,omitempty"`
}

// Clone returns a deep copy of the entry.
func (e Entry) Clone() Entry {
	c := e
	c.Metrics = make(map[string]float64, len(e.Metrics))
	for k, v := range e.Metrics {
		c.Metrics[k] = v
	}
	return c
}

// EntryPayload is the caller-supplied portion of an entry. The store assigns
// ID and AddedAt.
type EntryPayload struct {
	Name      string             `json:"name"`
	Metrics   map[string]float64 `json:"metrics"`
	Temporary bool               `json:"temporary,omitempty"`
	MediaRef  string             `json:"media_ref,omitempty"`
}
