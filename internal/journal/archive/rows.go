package archive

import (
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/xtxerr/daylog/internal/journal/types"
)

// EntryRow is an archived entry metric in Parquet format. Buckets are
// normalized to one row per (entry, metric) pair; seq preserves the
// original insertion order of entries within the day.
type EntryRow struct {
	Date         string  `parquet:"date,zstd"`
	Seq          int32   `parquet:"seq"`
	ID           string  `parquet:"id,zstd"`
	OwnerID      string  `parquet:"owner_id,zstd"`
	Name         string  `parquet:"name,zstd"`
	AddedAtMs    int64   `parquet:"added_at_ms"`
	Temporary    bool    `parquet:"temporary"`
	MediaRef     string  `parquet:"media_ref,optional,zstd"`
	Metric       string  `parquet:"metric,zstd"`
	Value        float64 `parquet:"value"`
	ArchivedAtMs int64   `parquet:"archived_at_ms"`
}

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "zstd":
		return CompressionZstd
	case "lz4":
		return CompressionLZ4
	case "gzip":
		return CompressionGzip
	case "none", "":
		return CompressionNone
	default:
		return CompressionZstd
	}
}

// getCompression returns the parquet-go compression codec.
func getCompression(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// BucketToRows flattens a bucket into Parquet rows. Metric names are sorted
// per entry so the row layout is deterministic.
func BucketToRows(bucket *types.DailyBucket, archivedAt time.Time) []EntryRow {
	rows := make([]EntryRow, 0, len(bucket.Entries))

	for seq, e := range bucket.Entries {
		metrics := make([]string, 0, len(e.Metrics))
		for m := range e.Metrics {
			metrics = append(metrics, m)
		}
		sort.Strings(metrics)

		for _, m := range metrics {
			rows = append(rows, EntryRow{
				Date:         bucket.Date.String(),
				Seq:          int32(seq),
				ID:           e.ID,
				OwnerID:      e.OwnerID,
				Name:         e.Name,
				AddedAtMs:    e.AddedAt.UnixMilli(),
				Temporary:    e.Temporary,
				MediaRef:     e.MediaRef,
				Metric:       m,
				Value:        e.Metrics[m],
				ArchivedAtMs: archivedAt.UnixMilli(),
			})
		}
	}

	return rows
}

// RowsToArchive reassembles an archive from its rows. Entries are rebuilt in
// seq order; totals are recomputed from the entries (the snapshot is
// immutable, so the sums are fully determined by the rows). For a zero-row
// file, archivedAt falls back to the supplied file timestamp.
func RowsToArchive(date types.Date, rows []EntryRow, fallbackArchivedAt time.Time) *types.Archive {
	bucket := types.NewBucket(date)
	archivedAt := fallbackArchivedAt

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Seq < rows[j].Seq })

	var current *types.Entry
	for _, r := range rows {
		if current == nil || current.ID != r.ID {
			if current != nil {
				bucket.Entries = append(bucket.Entries, *current)
			}
			current = &types.Entry{
				ID:        r.ID,
				OwnerID:   r.OwnerID,
				Name:      r.Name,
				Metrics:   map[string]float64{},
				AddedAt:   time.UnixMilli(r.AddedAtMs),
				Temporary: r.Temporary,
				MediaRef:  r.MediaRef,
			}
		}
		current.Metrics[r.Metric] = r.Value

		if r.ArchivedAtMs > 0 {
			archivedAt = time.UnixMilli(r.ArchivedAtMs)
		}
	}
	if current != nil {
		bucket.Entries = append(bucket.Entries, *current)
	}

	bucket.Totals = bucket.RecomputeTotals()
	if n := len(bucket.Entries); n > 0 {
		bucket.LastUpdated = bucket.Entries[n-1].AddedAt
	}

	return &types.Archive{
		Bucket:     *bucket,
		ArchivedAt: archivedAt,
	}
}
