// Package query provides SQL querying over archived days.
//
// It uses an in-memory DuckDB database reading the archive directory's
// Parquet files directly, so historical queries never load archives into
// the journal service's memory.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/xtxerr/daylog/internal/journal/config"
	"github.com/xtxerr/daylog/internal/journal/types"
)

// Service queries archived entry metrics with SQL.
type Service struct {
	mu sync.RWMutex

	config *config.Config
	db     *sql.DB

	stats Stats
}

// Stats holds query statistics.
type Stats struct {
	QueriesExecuted int64
	RowsReturned    int64
	Errors          int64
}

// MetricRow is one archived (entry, metric) observation returned by a query.
type MetricRow struct {
	Date    types.Date
	OwnerID string
	EntryID string
	Name    string
	Metric  string
	Value   float64
	AddedAt time.Time
}

// DailyTotal is one (date, metric) total returned by QueryDailyTotals.
type DailyTotal struct {
	Date   types.Date
	Metric string
	Total  float64
}

// RangeQuery selects archived metrics for one owner over a date range.
// From and To are inclusive; zero values leave that bound open.
type RangeQuery struct {
	OwnerID string
	Metric  string
	From    types.Date
	To      types.Date
	Limit   int
}

// New creates a query service over the archive directory.
func New(cfg *config.Config) (*Service, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	if cfg.Query.MemoryLimit != "" {
		if _, err := db.Exec(fmt.Sprintf("SET memory_limit='%s'", cfg.Query.MemoryLimit)); err != nil {
			db.Close()
			return nil, fmt.Errorf("set memory limit: %w", err)
		}
	}

	return &Service{
		config: cfg,
		db:     db,
	}, nil
}

// Close closes the query service.
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// pattern returns the glob DuckDB reads archives through.
func (s *Service) pattern() string {
	return filepath.Join(s.config.ArchiveDir(), "*.parquet")
}

// QueryRange returns archived metric observations for an owner, newest day
// first and insertion order within a day.
func (s *Service) QueryRange(ctx context.Context, q RangeQuery) ([]MetricRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT date, owner_id, id, name, metric, value, added_at_ms
		FROM read_parquet($1)
		WHERE owner_id = $2
		  AND ($3 = '' OR metric = $3)
		  AND ($4 = '' OR date >= $4)
		  AND ($5 = '' OR date <= $5)
		ORDER BY date DESC, seq
		LIMIT $6
	`

	rows, err := s.db.QueryContext(ctx, query,
		s.pattern(),
		q.OwnerID,
		q.Metric,
		q.From.String(),
		q.To.String(),
		s.limit(q.Limit),
	)
	if err != nil {
		// DuckDB errors when the glob matches no files; an empty archive
		// directory is an empty result, not a failure. Everything else is.
		if isNoFilesErr(err) {
			return nil, nil
		}
		s.stats.Errors++
		return nil, fmt.Errorf("query archives: %w", err)
	}
	defer rows.Close()

	var results []MetricRow
	for rows.Next() {
		var r MetricRow
		var date string
		var addedAtMs int64
		if err := rows.Scan(&date, &r.OwnerID, &r.EntryID, &r.Name, &r.Metric, &r.Value, &addedAtMs); err != nil {
			s.stats.Errors++
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Date = types.Date(date)
		r.AddedAt = time.UnixMilli(addedAtMs)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		s.stats.Errors++
		return nil, err
	}

	s.stats.QueriesExecuted++
	s.stats.RowsReturned += int64(len(results))
	return results, nil
}

// QueryDailyTotals returns per-day totals of one metric for an owner,
// newest day first.
func (s *Service) QueryDailyTotals(ctx context.Context, ownerID, metric string, from, to types.Date) ([]DailyTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT date, metric, SUM(value) AS total
		FROM read_parquet($1)
		WHERE owner_id = $2
		  AND metric = $3
		  AND ($4 = '' OR date >= $4)
		  AND ($5 = '' OR date <= $5)
		GROUP BY date, metric
		ORDER BY date DESC
	`

	rows, err := s.db.QueryContext(ctx, query,
		s.pattern(), ownerID, metric, from.String(), to.String())
	if err != nil {
		if isNoFilesErr(err) {
			return nil, nil
		}
		s.stats.Errors++
		return nil, fmt.Errorf("query daily totals: %w", err)
	}
	defer rows.Close()

	var results []DailyTotal
	for rows.Next() {
		var r DailyTotal
		var date string
		if err := rows.Scan(&date, &r.Metric, &r.Total); err != nil {
			s.stats.Errors++
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Date = types.Date(date)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		s.stats.Errors++
		return nil, err
	}

	s.stats.QueriesExecuted++
	s.stats.RowsReturned += int64(len(results))
	return results, nil
}

// ExecuteSQL executes a raw SQL query. Useful for ad-hoc inspection; the
// archive glob is available as read_parquet('<archive dir>/*.parquet').
func (s *Service) ExecuteSQL(ctx context.Context, query string) ([]map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		s.stats.Errors++
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{})
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}

	s.stats.QueriesExecuted++
	s.stats.RowsReturned += int64(len(results))
	return results, rows.Err()
}

// isNoFilesErr reports whether err is DuckDB's complaint about a glob that
// matches no files, which here just means no day has been archived yet.
func isNoFilesErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "No files found")
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Query.Timeout > 0 {
		return context.WithTimeout(ctx, s.config.Query.Timeout)
	}
	return context.WithCancel(ctx)
}

func (s *Service) limit(requested int) int {
	max := s.config.Query.MaxRows
	if requested <= 0 || (max > 0 && requested > max) {
		return max
	}
	return requested
}

// Stats returns query statistics.
func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}
