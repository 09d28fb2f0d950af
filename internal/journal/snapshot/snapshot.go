// Package snapshot provides crash-safe persistence for single-record state:
// the current day bucket and the rollover marker.
//
// Each snapshot file is a framed record with a CRC checksum and a
// monotonically increasing version stamp:
//
//	Header: 8 bytes magic + 4 bytes format version
//	Record: [8 bytes record version][4 bytes length][4 bytes crc32][JSON payload]
//
// Writes are atomic: the new record is written to a temp file, synced, and
// renamed over the old one. The version stamp turns every save into a
// compare-and-swap: if the on-disk version is not the one this store last
// observed, another writer got there first and the save fails with
// ErrConcurrentModification instead of silently losing their update.
package snapshot

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xtxerr/daylog/config"
	"github.com/xtxerr/daylog/internal/errors"
)

const (
	snapMagic     = 0x44594C47534E5001 // "DYLGSNP" + version 1
	snapVersion   = 1
	headerSize    = 12 // 8 bytes magic + 4 bytes format version
	recHeaderSize = 16 // 8 bytes record version + 4 bytes length + 4 bytes crc
)

// Options configures a snapshot store.
type Options struct {
	// MaxRetries is the max attempts for a durable write.
	// Default: config.DefaultMaxWriteRetries
	MaxRetries int

	// RetryDelay is the pause between retries.
	// Default: config.DefaultWriteRetryDelay
	RetryDelay time.Duration
}

// DefaultOptions returns default snapshot options.
func DefaultOptions() Options {
	return Options{
		MaxRetries: config.DefaultMaxWriteRetries,
		RetryDelay: config.DefaultWriteRetryDelay,
	}
}

// Stats holds snapshot store statistics.
type Stats struct {
	Loads     int64
	Saves     int64
	Retries   int64
	Conflicts int64
	Errors    int64
}

// Store persists one logical record to a single file.
//
// Store is safe for concurrent use, though callers normally serialize
// access behind the journal service lock.
type Store struct {
	mu sync.Mutex

	path        string
	opts        Options
	lastVersion uint64
	stats       Stats
}

// NewStore creates a snapshot store for the given file path.
func NewStore(path string, opts Options) *Store {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = DefaultOptions().MaxRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultOptions().RetryDelay
	}

	return &Store{
		path: path,
		opts: opts,
	}
}

// Path returns the snapshot file path.
func (s *Store) Path() string { return s.path }

// Exists reports whether a snapshot file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Version returns the record version last observed by this store.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastVersion
}

// Load reads the snapshot into v. It returns ErrNotFound if no snapshot
// exists and ErrCorrupted if the file fails integrity checks.
func (s *Store) Load(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", s.path, errors.ErrNotFound)
		}
		s.stats.Errors++
		return errors.NewStorage("read snapshot", err)
	}

	version, payload, err := decodeRecord(data)
	if err != nil {
		s.stats.Errors++
		return fmt.Errorf("%s: %v: %w", s.path, err, errors.ErrCorrupted)
	}

	if err := json.Unmarshal(payload, v); err != nil {
		s.stats.Errors++
		return fmt.Errorf("%s: decode payload: %v: %w", s.path, err, errors.ErrCorrupted)
	}

	s.lastVersion = version
	s.stats.Loads++
	return nil
}

// Save atomically writes v as the next version of the snapshot.
//
// If the on-disk version differs from the one this store last observed,
// another writer has modified the file out-of-band and Save fails with
// ErrConcurrentModification without touching the file. Transient write
// failures are retried up to MaxRetries before being surfaced.
func (s *Store) Save(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	diskVersion, exists, err := readDiskVersion(s.path)
	if err != nil {
		s.stats.Errors++
		return err
	}
	if exists && diskVersion != s.lastVersion {
		s.stats.Conflicts++
		return fmt.Errorf("snapshot %s: disk version %d, expected %d: %w",
			s.path, diskVersion, s.lastVersion, errors.ErrConcurrentModification)
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}

	next := s.lastVersion + 1
	record := encodeRecord(next, payload)

	var lastErr error
	for attempt := 0; attempt < s.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			s.stats.Retries++
			time.Sleep(s.opts.RetryDelay)
		}
		if lastErr = writeFileAtomic(s.path, record); lastErr == nil {
			s.lastVersion = next
			s.stats.Saves++
			return nil
		}
	}

	s.stats.Errors++
	return errors.NewStorage("write snapshot", lastErr)
}

// Remove deletes the snapshot file. Missing files are not an error.
func (s *Store) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.NewStorage("remove snapshot", err)
	}
	s.lastVersion = 0
	return nil
}

// Stats returns store statistics.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// =============================================================================
// Record framing
// =============================================================================

// encodeRecord frames a payload with the file header, version stamp and CRC.
func encodeRecord(version uint64, payload []byte) []byte {
	buf := make([]byte, headerSize+recHeaderSize+len(payload))

	binary.LittleEndian.PutUint64(buf[0:8], snapMagic)
	binary.LittleEndian.PutUint32(buf[8:12], snapVersion)

	binary.LittleEndian.PutUint64(buf[12:20], version)
	binary.LittleEndian.PutUint32(buf[20:24], uint32(len(payload)))
	binary.LittleEndian.PutUint32(buf[24:28], crc32.ChecksumIEEE(payload))

	copy(buf[headerSize+recHeaderSize:], payload)
	return buf
}

// decodeRecord validates the framing and returns the version and payload.
func decodeRecord(data []byte) (uint64, []byte, error) {
	if len(data) < headerSize+recHeaderSize {
		return 0, nil, fmt.Errorf("file too short: %d bytes", len(data))
	}

	if binary.LittleEndian.Uint64(data[0:8]) != snapMagic {
		return 0, nil, fmt.Errorf("bad magic")
	}
	if fv := binary.LittleEndian.Uint32(data[8:12]); fv != snapVersion {
		return 0, nil, fmt.Errorf("unsupported format version %d", fv)
	}

	version := binary.LittleEndian.Uint64(data[12:20])
	length := binary.LittleEndian.Uint32(data[20:24])
	crc := binary.LittleEndian.Uint32(data[24:28])

	payload := data[headerSize+recHeaderSize:]
	if uint32(len(payload)) != length {
		return 0, nil, fmt.Errorf("payload length %d, header says %d", len(payload), length)
	}
	if crc32.ChecksumIEEE(payload) != crc {
		return 0, nil, fmt.Errorf("crc mismatch")
	}

	return version, payload, nil
}

// readDiskVersion reads only the version stamp from an existing file.
func readDiskVersion(path string) (uint64, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, errors.NewStorage("open snapshot", err)
	}
	defer f.Close()

	var hdr [headerSize + recHeaderSize]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil {
		return 0, false, fmt.Errorf("%s: short header: %w", path, errors.ErrCorrupted)
	}
	if binary.LittleEndian.Uint64(hdr[0:8]) != snapMagic {
		return 0, false, fmt.Errorf("%s: bad magic: %w", path, errors.ErrCorrupted)
	}

	return binary.LittleEndian.Uint64(hdr[12:20]), true, nil
}

// writeFileAtomic writes data to a temp file in the target directory,
// syncs it, and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return nil
}
