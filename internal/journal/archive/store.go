// Package archive implements the durable, keyed-by-date store of immutable
// past-day snapshots. Each archived day is a single Parquet file named
// YYYY-MM-DD.parquet under the archive directory.
//
// Archives are written exactly once by the rollover engine and never
// mutated afterwards; the only deletion path is the retention sweeper.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"
	"golang.org/x/sync/singleflight"

	"github.com/xtxerr/daylog/internal/errors"
	"github.com/xtxerr/daylog/internal/journal/types"
)

const fileExt = ".parquet"

// Options configures the archive store.
type Options struct {
	// Compression is the Parquet compression algorithm.
	Compression CompressionType
}

// DefaultOptions returns default archive options.
func DefaultOptions() Options {
	return Options{Compression: CompressionZstd}
}

// Stats holds archive store statistics.
type Stats struct {
	Puts    int64
	Gets    int64
	Deletes int64
	Errors  int64
}

// Store is the archive store.
//
// Store is safe for concurrent use. Reads of the same date are deduplicated
// with singleflight so a burst of lookups for one day loads the file once.
type Store struct {
	mu     sync.RWMutex
	dir    string
	opts   Options
	flight singleflight.Group

	statsMu sync.Mutex
	stats   Stats
}

func (s *Store) countPut()   { s.statsMu.Lock(); s.stats.Puts++; s.statsMu.Unlock() }
func (s *Store) countGet()   { s.statsMu.Lock(); s.stats.Gets++; s.statsMu.Unlock() }
func (s *Store) countDel()   { s.statsMu.Lock(); s.stats.Deletes++; s.statsMu.Unlock() }
func (s *Store) countError() { s.statsMu.Lock(); s.stats.Errors++; s.statsMu.Unlock() }

// NewStore creates an archive store rooted at dir.
func NewStore(dir string, opts Options) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.NewStorage("create archive dir", err)
	}

	return &Store{
		dir:  dir,
		opts: opts,
	}, nil
}

// Dir returns the archive directory.
func (s *Store) Dir() string { return s.dir }

// path returns the archive file path for a date.
func (s *Store) path(date types.Date) string {
	return filepath.Join(s.dir, date.String()+fileExt)
}

// Put writes a bucket as the archive for its date. The write is atomic
// (temp file + rename) so a failure never leaves a partial archive. An
// archive that already exists is never overwritten.
func (s *Store) Put(date types.Date, bucket *types.DailyBucket, archivedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(date)
	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("archive %s: %w", date, errors.ErrAlreadyExists)
	}

	tmp, err := os.CreateTemp(s.dir, date.String()+".tmp-*")
	if err != nil {
		s.countError()
		return errors.NewStorage("create archive temp file", err)
	}
	tmpPath := tmp.Name()

	writer := parquet.NewGenericWriter[EntryRow](tmp,
		parquet.Compression(getCompression(s.opts.Compression)))

	rows := BucketToRows(bucket, archivedAt)
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			writer.Close()
			tmp.Close()
			os.Remove(tmpPath)
			s.countError()
			return errors.NewStorage("write archive rows", err)
		}
	}

	if err := writer.Close(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		s.countError()
		return errors.NewStorage("close archive writer", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		s.countError()
		return errors.NewStorage("sync archive", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		s.countError()
		return errors.NewStorage("close archive file", err)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		s.countError()
		return errors.NewStorage("publish archive", err)
	}

	s.countPut()
	return nil
}

// Get loads the archive for a date. It returns ErrInvalidDate for a
// malformed date and ErrArchiveNotFound when no archive exists, which
// includes today and future dates since archives only ever cover strictly
// past, fully rolled-over days.
func (s *Store) Get(rawDate string) (*types.Archive, error) {
	date, err := types.ParseDate(rawDate)
	if err != nil {
		return nil, err
	}

	v, err, _ := s.flight.Do(rawDate, func() (interface{}, error) {
		return s.load(date)
	})
	if err != nil {
		return nil, err
	}

	return v.(*types.Archive), nil
}

// load reads and reassembles a single archive file.
func (s *Store) load(date types.Date) (*types.Archive, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.path(date)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("archive %s: %w", date, errors.ErrArchiveNotFound)
		}
		s.countError()
		return nil, errors.NewStorage("open archive", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		s.countError()
		return nil, errors.NewStorage("stat archive", err)
	}

	reader := parquet.NewGenericReader[EntryRow](f)
	defer reader.Close()

	numRows := int(reader.NumRows())
	rows := make([]EntryRow, numRows)
	if numRows > 0 {
		n, err := reader.Read(rows)
		if err != nil && n != numRows {
			s.countError()
			return nil, errors.NewStorage("read archive rows", err)
		}
		rows = rows[:n]
	}

	s.countGet()
	return RowsToArchive(date, rows, stat.ModTime()), nil
}

// ListDates returns all archived dates sorted most-recent-first. The list
// is recomputed from the directory on every call.
func (s *Store) ListDates() ([]types.Date, error) {
	files, err := s.ListFiles()
	if err != nil {
		return nil, err
	}

	dates := make([]types.Date, len(files))
	for i, f := range files {
		dates[i] = f.Date
	}
	return dates, nil
}

// FileInfo describes one archive file on disk.
type FileInfo struct {
	Date types.Date
	Path string
	Size int64
}

// ListFiles returns all archive files sorted most-recent-first. Files whose
// names do not parse as dates are ignored.
func (s *Store) ListFiles() ([]FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		s.countError()
		return nil, errors.NewStorage("list archive dir", err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if filepath.Ext(name) != fileExt {
			continue
		}

		date, err := types.ParseDate(name[:len(name)-len(fileExt)])
		if err != nil {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, FileInfo{
			Date: date,
			Path: filepath.Join(s.dir, name),
			Size: info.Size(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Date.After(files[j].Date)
	})

	return files, nil
}

// Delete removes the archive for a date. Used only by the retention
// sweeper. Deleting a missing archive returns ErrArchiveNotFound.
func (s *Store) Delete(date types.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(date)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("archive %s: %w", date, errors.ErrArchiveNotFound)
		}
		s.countError()
		return errors.NewStorage("delete archive", err)
	}

	s.countDel()
	return nil
}

// Exists reports whether an archive exists for the date.
func (s *Store) Exists(date types.Date) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.path(date))
	return err == nil
}

// Stats returns store statistics.
func (s *Store) Stats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}
