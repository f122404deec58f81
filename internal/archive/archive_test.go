package archive

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"snowball/internal/model"
)

var testEntry = model.WatchlistEntry{Symbol: "AAPL", Category: "stocks"}

func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func bar(at time.Time, close float64) model.OHLCV {
	return model.OHLCV{
		Time:   at,
		Open:   close - 1,
		High:   close + 1,
		Low:    close - 2,
		Close:  close,
		Volume: 1000,
	}
}

func barsBetween(from, to time.Time) []model.OHLCV {
	var out []model.OHLCV
	for t := from; t.Before(to); t = t.Add(time.Minute) {
		out = append(out, bar(t, 100))
	}
	return out
}

func TestAppend_ThenLatestTimestamp(t *testing.T) {
	a := newTestArchive(t)
	start := time.Date(2026, 8, 3, 14, 30, 0, 0, time.UTC)

	if _, ok, err := a.LatestTimestamp(testEntry); err != nil || ok {
		t.Fatalf("expected empty archive, ok=%v err=%v", ok, err)
	}

	rows := barsBetween(start, start.Add(10*time.Minute))
	if err := a.Append(testEntry, rows); err != nil {
		t.Fatalf("append: %v", err)
	}

	latest, ok, err := a.LatestTimestamp(testEntry)
	if err != nil || !ok {
		t.Fatalf("latest: ok=%v err=%v", ok, err)
	}
	want := start.Add(9 * time.Minute)
	if !latest.Equal(want) {
		t.Errorf("expected latest %v, got %v", want, latest)
	}
}

func TestAppend_DeduplicatesByTimestamp(t *testing.T) {
	a := newTestArchive(t)
	at := time.Date(2026, 8, 3, 14, 30, 0, 0, time.UTC)

	if err := a.Append(testEntry, []model.OHLCV{bar(at, 100)}); err != nil {
		t.Fatalf("append: %v", err)
	}
	// Revised bar for the same minute: last write wins.
	if err := a.Append(testEntry, []model.OHLCV{bar(at, 105)}); err != nil {
		t.Fatalf("append revised: %v", err)
	}

	rows, err := a.Rows(testEntry, at, at.Add(time.Minute))
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Close != 105 {
		t.Errorf("expected revised close 105, got %v", rows[0].Close)
	}
}

func TestAppend_KeepsSortOrder(t *testing.T) {
	a := newTestArchive(t)
	start := time.Date(2026, 8, 3, 14, 0, 0, 0, time.UTC)

	// Append out of order, in two batches.
	if err := a.Append(testEntry, barsBetween(start.Add(5*time.Minute), start.Add(10*time.Minute))); err != nil {
		t.Fatal(err)
	}
	if err := a.Append(testEntry, barsBetween(start, start.Add(5*time.Minute))); err != nil {
		t.Fatal(err)
	}

	rows, err := a.Rows(testEntry, start, start.Add(10*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 10 {
		t.Fatalf("expected 10 rows, got %d", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if !rows[i].Time.After(rows[i-1].Time) {
			t.Fatalf("rows not strictly ascending at %d: %v then %v", i, rows[i-1].Time, rows[i].Time)
		}
	}
}

func TestMissingIntervals_InteriorGap(t *testing.T) {
	a := newTestArchive(t)
	t0 := time.Date(2026, 8, 3, 14, 0, 0, 0, time.UTC)
	t1 := t0.Add(10 * time.Minute)
	t3 := t0.Add(25 * time.Minute)
	t4 := t0.Add(35 * time.Minute)

	if err := a.Append(testEntry, barsBetween(t0, t1)); err != nil {
		t.Fatal(err)
	}
	if err := a.Append(testEntry, barsBetween(t3, t4)); err != nil {
		t.Fatal(err)
	}

	gaps, err := a.MissingIntervals(testEntry, t0, t4)
	if err != nil {
		t.Fatal(err)
	}
	if len(gaps) != 1 {
		t.Fatalf("expected exactly 1 gap, got %d: %v", len(gaps), gaps)
	}
	if !gaps[0].Start.Equal(t1) || !gaps[0].End.Equal(t3) {
		t.Errorf("expected gap [%v,%v), got %s", t1, t3, gaps[0])
	}
}

func TestCommitRange_EmptyWindowCountsAsCovered(t *testing.T) {
	a := newTestArchive(t)
	start := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC) // Sunday, no bars
	window := model.Interval{Start: start, End: start.Add(time.Hour)}

	if err := a.CommitRange(testEntry, nil, window); err != nil {
		t.Fatalf("commit empty window: %v", err)
	}

	gaps, err := a.MissingIntervals(testEntry, start, start.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(gaps) != 0 {
		t.Errorf("expected empty window to be covered, got gaps %v", gaps)
	}

	// But no bar timestamp was recorded.
	if _, ok, err := a.LatestTimestamp(testEntry); err != nil || ok {
		t.Errorf("expected no latest timestamp, ok=%v err=%v", ok, err)
	}
}

func TestAppend_PartitionLayout(t *testing.T) {
	a := newTestArchive(t)
	// Rows straddling a UTC day boundary land in two files.
	start := time.Date(2026, 8, 3, 23, 58, 0, 0, time.UTC)
	if err := a.Append(testEntry, barsBetween(start, start.Add(4*time.Minute))); err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(a.Root(), "stocks", "AAPL")
	for _, name := range []string{"2026-08-03_1m_ohlcv.parquet", "2026-08-04_1m_ohlcv.parquet", "meta.yml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}

	rows, err := a.Rows(testEntry, start, start.Add(4*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Errorf("expected 4 rows across day files, got %d", len(rows))
	}
}

func TestAppend_FailureLeavesCommittedData(t *testing.T) {
	a := newTestArchive(t)
	start := time.Date(2026, 8, 3, 14, 0, 0, 0, time.UTC)
	rows := barsBetween(start, start.Add(5*time.Minute))
	if err := a.Append(testEntry, rows); err != nil {
		t.Fatal(err)
	}

	// Occupy the staging path with a directory so the temp-file write fails.
	dir := filepath.Join(a.Root(), "stocks", "AAPL")
	blocker := filepath.Join(dir, "2026-08-03_1m_ohlcv.parquet.tmp")
	if err := os.Mkdir(blocker, 0755); err != nil {
		t.Fatal(err)
	}

	err := a.Append(testEntry, barsBetween(start.Add(5*time.Minute), start.Add(10*time.Minute)))
	var wErr *WriteError
	if !errors.As(err, &wErr) {
		t.Fatalf("expected *WriteError, got %v", err)
	}

	os.Remove(blocker)
	got, err := a.Rows(testEntry, start, start.Add(10*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Errorf("committed data changed: expected 5 rows, got %d", len(got))
	}
	latest, ok, _ := a.LatestTimestamp(testEntry)
	if !ok || !latest.Equal(start.Add(4*time.Minute)) {
		t.Errorf("metadata changed after failed append: latest=%v ok=%v", latest, ok)
	}
}
