// Package types defines the core data types shared across the journal
// storage system: entries, daily buckets, archives and the rollover marker.
//
// These types are intentionally free of storage concerns; persistence
// lives in the snapshot and archive packages.
package types
