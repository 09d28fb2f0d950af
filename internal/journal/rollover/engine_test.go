package rollover

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xtxerr/daylog/internal/errors"
	"github.com/xtxerr/daylog/internal/journal/archive"
	"github.com/xtxerr/daylog/internal/journal/snapshot"
	"github.com/xtxerr/daylog/internal/journal/types"
	"github.com/xtxerr/daylog/internal/journal/working"
)

type fixture struct {
	engine  *Engine
	working *working.Store
	archive *archive.Store
	now     time.Time
}

func newFixture(t *testing.T, start time.Time) *fixture {
	t.Helper()
	dir := t.TempDir()

	as, err := archive.NewStore(filepath.Join(dir, "archive"), archive.DefaultOptions())
	if err != nil {
		t.Fatalf("archive store: %v", err)
	}

	ws := working.NewStore(snapshot.NewStore(
		filepath.Join(dir, "current.snap"), snapshot.DefaultOptions()))
	if err := ws.Open(); err != nil {
		t.Fatalf("working open: %v", err)
	}

	f := &fixture{working: ws, archive: as, now: start}
	f.engine = New(ws, as, snapshot.NewStore(
		filepath.Join(dir, "marker.snap"), snapshot.DefaultOptions()),
		func() time.Time { return f.now })
	if err := f.engine.Open(); err != nil {
		t.Fatalf("engine open: %v", err)
	}
	return f
}

func (f *fixture) addEntry(t *testing.T, name string, kcal float64) {
	t.Helper()
	if _, err := f.working.AddEntry("u1", types.EntryPayload{
		Name:    name,
		Metrics: map[string]float64{"calories": kcal},
	}, f.now); err != nil {
		t.Fatalf("add entry: %v", err)
	}
}

func TestEngine_FirstStartCreatesBucket(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 1, 8, 0, 0, 0, time.Local))

	if err := f.engine.EnsureCurrent(); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	b := f.working.Bucket()
	if b == nil || b.Date != "2024-01-01" {
		t.Fatalf("expected bucket for 2024-01-01, got %+v", b)
	}
	if dates, _ := f.archive.ListDates(); len(dates) != 0 {
		t.Errorf("first start must not archive anything, got %v", dates)
	}
}

func TestEngine_SameDayIsNoOp(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 1, 8, 0, 0, 0, time.Local))

	if err := f.engine.EnsureCurrent(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	f.addEntry(t, "breakfast", 300)

	f.now = f.now.Add(10 * time.Hour) // still 2024-01-01
	if err := f.engine.EnsureCurrent(); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	if got := len(f.working.Bucket().Entries); got != 1 {
		t.Errorf("same-day check must not touch the bucket, got %d entries", got)
	}
}

func TestEngine_RolloverArchivesAndSwaps(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 1, 8, 0, 0, 0, time.Local))

	if err := f.engine.EnsureCurrent(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	f.addEntry(t, "breakfast", 300)
	f.addEntry(t, "lunch", 600)

	f.now = time.Date(2024, 1, 2, 0, 0, 5, 0, time.Local)
	if err := f.engine.EnsureCurrent(); err != nil {
		t.Fatalf("rollover: %v", err)
	}

	b := f.working.Bucket()
	if b.Date != "2024-01-02" {
		t.Errorf("current date: expected 2024-01-02, got %s", b.Date)
	}
	if len(b.Entries) != 0 || len(b.Totals) != 0 {
		t.Errorf("fresh bucket must be empty: %d entries, totals %v", len(b.Entries), b.Totals)
	}

	arc, err := f.archive.Get("2024-01-01")
	if err != nil {
		t.Fatalf("get archive: %v", err)
	}
	if len(arc.Bucket.Entries) != 2 {
		t.Errorf("archive: expected 2 entries, got %d", len(arc.Bucket.Entries))
	}
	if arc.Bucket.Totals["calories"] != 900 {
		t.Errorf("archive totals: expected 900, got %v", arc.Bucket.Totals["calories"])
	}

	if got := f.engine.Marker().LastRolloverDate; got != "2024-01-01" {
		t.Errorf("marker: expected 2024-01-01, got %s", got)
	}
}

func TestEngine_RolloverIsIdempotent(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 1, 8, 0, 0, 0, time.Local))

	if err := f.engine.EnsureCurrent(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	f.addEntry(t, "breakfast", 300)

	f.now = time.Date(2024, 1, 2, 0, 0, 5, 0, time.Local)
	for i := 0; i < 3; i++ {
		if err := f.engine.EnsureCurrent(); err != nil {
			t.Fatalf("ensure %d: %v", i, err)
		}
	}

	if got := f.engine.Stats().Rollovers; got != 1 {
		t.Errorf("expected exactly 1 rollover, got %d", got)
	}

	arc, err := f.archive.Get("2024-01-01")
	if err != nil {
		t.Fatalf("get archive: %v", err)
	}
	if len(arc.Bucket.Entries) != 1 {
		t.Errorf("archive duplicated or lost entries: %d", len(arc.Bucket.Entries))
	}
}

func TestEngine_MultiDayGap(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 1, 8, 0, 0, 0, time.Local))

	if err := f.engine.EnsureCurrent(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	f.addEntry(t, "breakfast", 300)

	// Process idle over several days; only the stale day gets an archive.
	f.now = time.Date(2024, 1, 5, 9, 0, 0, 0, time.Local)
	if err := f.engine.EnsureCurrent(); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	if got := f.working.Bucket().Date; got != "2024-01-05" {
		t.Errorf("current date: expected 2024-01-05, got %s", got)
	}
	dates, err := f.archive.ListDates()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(dates) != 1 || dates[0] != "2024-01-01" {
		t.Errorf("expected only 2024-01-01 archived, got %v", dates)
	}
}

func TestEngine_EmptyDayStillArchived(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 1, 8, 0, 0, 0, time.Local))

	if err := f.engine.EnsureCurrent(); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	f.now = time.Date(2024, 1, 2, 1, 0, 0, 0, time.Local)
	if err := f.engine.EnsureCurrent(); err != nil {
		t.Fatalf("rollover: %v", err)
	}

	arc, err := f.archive.Get("2024-01-01")
	if err != nil {
		t.Fatalf("empty day must still produce an archive: %v", err)
	}
	if len(arc.Bucket.Entries) != 0 {
		t.Errorf("expected empty archive, got %d entries", len(arc.Bucket.Entries))
	}
}

func TestEngine_ClockBackwardsKeepsBucket(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 2, 8, 0, 0, 0, time.Local))

	if err := f.engine.EnsureCurrent(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	f.addEntry(t, "breakfast", 300)

	f.now = time.Date(2024, 1, 1, 23, 0, 0, 0, time.Local)
	if err := f.engine.EnsureCurrent(); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	if got := f.working.Bucket().Date; got != "2024-01-02" {
		t.Errorf("future-dated bucket must be kept, got %s", got)
	}
	if dates, _ := f.archive.ListDates(); len(dates) != 0 {
		t.Errorf("nothing should be archived, got %v", dates)
	}
}

func TestEngine_ForceReset(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 1, 8, 0, 0, 0, time.Local))

	if err := f.engine.EnsureCurrent(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	f.addEntry(t, "breakfast", 300)
	f.addEntry(t, "lunch", 500)

	if err := f.engine.ForceReset("2024-01-02"); err != nil {
		t.Fatalf("force reset: %v", err)
	}

	b := f.working.Bucket()
	if b.Date != "2024-01-02" || len(b.Entries) != 0 {
		t.Errorf("expected empty bucket for 2024-01-02, got %s with %d entries",
			b.Date, len(b.Entries))
	}

	arc, err := f.archive.Get("2024-01-01")
	if err != nil {
		t.Fatalf("get archive: %v", err)
	}
	if len(arc.Bucket.Entries) != 2 {
		t.Errorf("archive: expected 2 entries, got %d", len(arc.Bucket.Entries))
	}
}

func TestEngine_ForceResetSameDate(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 1, 8, 0, 0, 0, time.Local))

	if err := f.engine.EnsureCurrent(); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	err := f.engine.ForceReset("2024-01-01")
	if !errors.IsAlreadyExists(err) {
		t.Errorf("expected already exists, got %v", err)
	}
}

func TestEngine_ForceResetInvalidDate(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 1, 8, 0, 0, 0, time.Local))

	if err := f.engine.ForceReset("01/02/2024"); !errors.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestEngine_MarkerSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2024, 1, 1, 8, 0, 0, 0, time.Local)

	build := func(now *time.Time) *Engine {
		as, err := archive.NewStore(filepath.Join(dir, "archive"), archive.DefaultOptions())
		if err != nil {
			t.Fatalf("archive store: %v", err)
		}
		ws := working.NewStore(snapshot.NewStore(
			filepath.Join(dir, "current.snap"), snapshot.DefaultOptions()))
		if err := ws.Open(); err != nil {
			t.Fatalf("working open: %v", err)
		}
		e := New(ws, as, snapshot.NewStore(
			filepath.Join(dir, "marker.snap"), snapshot.DefaultOptions()),
			func() time.Time { return *now })
		if err := e.Open(); err != nil {
			t.Fatalf("engine open: %v", err)
		}
		return e
	}

	now := start
	e := build(&now)
	if err := e.EnsureCurrent(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	now = time.Date(2024, 1, 2, 0, 0, 5, 0, time.Local)
	if err := e.EnsureCurrent(); err != nil {
		t.Fatalf("rollover: %v", err)
	}

	reopened := build(&now)
	if got := reopened.Marker().LastRolloverDate; got != "2024-01-01" {
		t.Errorf("marker after reopen: expected 2024-01-01, got %s", got)
	}
}

func TestEngine_ArchiveFailureKeepsStaleBucket(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 1, 8, 0, 0, 0, time.Local))

	if err := f.engine.EnsureCurrent(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	f.addEntry(t, "dinner", 700)

	// Replace the archive directory with a regular file so the archive
	// write cannot succeed.
	archiveDir := f.archive.Dir()
	if err := os.RemoveAll(archiveDir); err != nil {
		t.Fatalf("remove archive dir: %v", err)
	}
	if err := os.WriteFile(archiveDir, []byte("x"), 0644); err != nil {
		t.Fatalf("block archive dir: %v", err)
	}

	f.now = time.Date(2024, 1, 2, 0, 0, 5, 0, time.Local)
	if err := f.engine.EnsureCurrent(); !errors.IsStorage(err) {
		t.Fatalf("expected storage error, got %v", err)
	}

	// The failed rollover must not have touched the working bucket.
	b := f.working.Bucket()
	if b.Date != "2024-01-01" {
		t.Errorf("stale bucket was swapped: date %s", b.Date)
	}
	if len(b.Entries) != 1 || b.Totals["calories"] != 700 {
		t.Errorf("stale bucket lost content: %d entries, totals %v", len(b.Entries), b.Totals)
	}
	if got := f.engine.Marker().LastRolloverDate; !got.IsZero() {
		t.Errorf("marker advanced despite failed archive write: %s", got)
	}

	// Once the storage fault clears, the next check retries the whole
	// rollover and archives exactly once.
	if err := os.Remove(archiveDir); err != nil {
		t.Fatalf("unblock archive dir: %v", err)
	}
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		t.Fatalf("recreate archive dir: %v", err)
	}

	if err := f.engine.EnsureCurrent(); err != nil {
		t.Fatalf("retry: %v", err)
	}

	if got := f.working.Bucket().Date; got != "2024-01-02" {
		t.Errorf("current date after retry: expected 2024-01-02, got %s", got)
	}
	arc, err := f.archive.Get("2024-01-01")
	if err != nil {
		t.Fatalf("get archive after retry: %v", err)
	}
	if len(arc.Bucket.Entries) != 1 || arc.Bucket.Totals["calories"] != 700 {
		t.Errorf("archive content wrong: %d entries, totals %v",
			len(arc.Bucket.Entries), arc.Bucket.Totals)
	}

	stats := f.engine.Stats()
	if stats.Rollovers != 1 {
		t.Errorf("expected exactly 1 rollover, got %d", stats.Rollovers)
	}
	if stats.Failures != 1 {
		t.Errorf("expected 1 recorded failure, got %d", stats.Failures)
	}
}

func TestEngine_ForceResetBehindMarkerStillArchives(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 5, 8, 0, 0, 0, time.Local))

	if err := f.engine.EnsureCurrent(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	f.addEntry(t, "day5 meal", 500)

	// Reset back to a day before the marker will end up pointing at.
	if err := f.engine.ForceReset("2024-01-02"); err != nil {
		t.Fatalf("force reset: %v", err)
	}
	if got := f.engine.Marker().LastRolloverDate; got != "2024-01-05" {
		t.Fatalf("marker after reset: expected 2024-01-05, got %s", got)
	}

	f.addEntry(t, "backfill meal", 350)

	// The bucket now sits behind the marker; rolling it over must still
	// archive its entries rather than skipping the write.
	f.now = time.Date(2024, 1, 6, 8, 0, 0, 0, time.Local)
	if err := f.engine.EnsureCurrent(); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	arc, err := f.archive.Get("2024-01-02")
	if err != nil {
		t.Fatalf("backfilled day was not archived: %v", err)
	}
	if len(arc.Bucket.Entries) != 1 || arc.Bucket.Entries[0].Name != "backfill meal" {
		t.Errorf("archive content wrong: %+v", arc.Bucket.Entries)
	}

	// Marker stays monotonic: 2024-01-02 never moves it backwards.
	if got := f.engine.Marker().LastRolloverDate; got != "2024-01-05" {
		t.Errorf("marker regressed: %s", got)
	}
	if got := f.working.Bucket().Date; got != "2024-01-06" {
		t.Errorf("current date: expected 2024-01-06, got %s", got)
	}
}
