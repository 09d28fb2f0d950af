package types

// BucketState describes where a day's bucket is in its lifecycle.
//
// Transitions: Active -> Archiving -> Archived, driven by the rollover
// engine; Archived -> Pruned, driven by the retention sweeper.
type BucketState int

const (
	// StateActive is the current, mutable day bucket.
	StateActive BucketState = iota
	// StateArchiving is a bucket whose rollover is in flight.
	StateArchiving
	// StateArchived is a terminal, immutable past-day snapshot.
	StateArchived
	// StatePruned is an archive deleted by retention.
	StatePruned
)

// String returns a human-readable representation of the state.
func (s BucketState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateArchiving:
		return "archiving"
	case StateArchived:
		return "archived"
	case StatePruned:
		return "pruned"
	default:
		return "unknown"
	}
}
