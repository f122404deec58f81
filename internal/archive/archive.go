// Package archive persists per-symbol 1-minute OHLCV bars as parquet
// files partitioned by category/symbol, one file per UTC day, next to
// a meta.yml tracking the covered time ranges. Day files are replaced
// whole (write temp, then rename) so a failed append never corrupts
// previously committed data.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"snowball/internal/model"
)

// WriteError reports a filesystem failure while persisting a symbol's
// data. Recoverable at the symbol level.
type WriteError struct {
	Symbol string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("archive write %s: %v", e.Symbol, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Archive reads and writes symbol partitions under a single root
// directory. Mutation is serialized per symbol.
type Archive struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an Archive rooted at dir, creating it if needed.
func New(dir string) (*Archive, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create archive root: %w", err)
	}
	return &Archive{root: dir, locks: make(map[string]*sync.Mutex)}, nil
}

// Root returns the archive root directory.
func (a *Archive) Root() string { return a.root }

func (a *Archive) symbolLock(entry model.WatchlistEntry) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.locks[entry.Key()]
	if !ok {
		l = &sync.Mutex{}
		a.locks[entry.Key()] = l
	}
	return l
}

func (a *Archive) symbolDir(entry model.WatchlistEntry) string {
	return filepath.Join(a.root, entry.Category, entry.Symbol)
}

func dayFileName(day time.Time) string {
	return day.Format("2006-01-02") + "_1m_ohlcv.parquet"
}

// LatestTimestamp returns the most recent stored bar timestamp for the
// symbol, or ok=false if the symbol has no data yet.
func (a *Archive) LatestTimestamp(entry model.WatchlistEntry) (time.Time, bool, error) {
	lock := a.symbolLock(entry)
	lock.Lock()
	defer lock.Unlock()

	meta, err := loadMeta(a.symbolDir(entry))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("load meta %s: %w", entry.Key(), err)
	}
	t, ok := meta.lastBar()
	return t, ok, nil
}

// MissingIntervals returns the parts of [start, end) not covered by
// the symbol's stored data, in ascending order.
func (a *Archive) MissingIntervals(entry model.WatchlistEntry, start, end time.Time) ([]model.Interval, error) {
	lock := a.symbolLock(entry)
	lock.Lock()
	defer lock.Unlock()

	meta, err := loadMeta(a.symbolDir(entry))
	if err != nil {
		return nil, fmt.Errorf("load meta %s: %w", entry.Key(), err)
	}
	span := model.Interval{Start: start, End: end}
	return model.SubtractIntervals(span, meta.coverage()), nil
}

// Append merges rows into the symbol's partitions, deduplicating by
// timestamp (last write wins) and keeping sort order. Coverage is
// derived from the rows' span. Appending nothing is a no-op.
func (a *Archive) Append(entry model.WatchlistEntry, rows []model.OHLCV) error {
	if len(rows) == 0 {
		return nil
	}
	window := rowSpan(rows)
	return a.CommitRange(entry, rows, window)
}

// CommitRange appends rows and marks the whole fetched window covered,
// even when parts of it produced no rows (closed market hours are not
// gaps). The roller uses this after every successful fetch; backfill
// idempotence depends on it.
func (a *Archive) CommitRange(entry model.WatchlistEntry, rows []model.OHLCV, window model.Interval) error {
	if len(rows) == 0 && !window.Valid() {
		return nil
	}

	lock := a.symbolLock(entry)
	lock.Lock()
	defer lock.Unlock()

	dir := a.symbolDir(entry)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &WriteError{Symbol: entry.Symbol, Err: err}
	}

	meta, err := loadMeta(dir)
	if err != nil {
		return &WriteError{Symbol: entry.Symbol, Err: err}
	}
	meta.Symbol = entry.Symbol

	if len(rows) > 0 {
		if err := a.mergeDays(entry, dir, rows); err != nil {
			return err
		}
		span := rowSpan(rows)
		meta.setLastBar(span.End.Add(-time.Minute))
		if !window.Valid() {
			window = span
		}
	}

	if window.Valid() {
		meta.setCoverage(model.MergeIntervals(append(meta.coverage(), window)))
	}
	if err := saveMeta(dir, meta); err != nil {
		return &WriteError{Symbol: entry.Symbol, Err: err}
	}
	return nil
}

// mergeDays groups rows by UTC day and rewrites each affected day
// file. All temp files are staged before any rename, so a write error
// leaves every committed file untouched.
func (a *Archive) mergeDays(entry model.WatchlistEntry, dir string, rows []model.OHLCV) error {
	byDay := make(map[string][]model.OHLCV)
	for _, r := range rows {
		day := dayFileName(r.Time.UTC())
		byDay[day] = append(byDay[day], r)
	}

	type staged struct{ tmp, final string }
	var renames []staged
	cleanup := func() {
		for _, s := range renames {
			os.Remove(s.tmp)
		}
	}

	for name, dayRows := range byDay {
		final := filepath.Join(dir, name)
		merged, err := mergeExisting(final, dayRows)
		if err != nil {
			cleanup()
			return &WriteError{Symbol: entry.Symbol, Err: err}
		}
		tmp := final + ".tmp"
		if err := writeBarsFile(tmp, merged); err != nil {
			cleanup()
			return &WriteError{Symbol: entry.Symbol, Err: err}
		}
		renames = append(renames, staged{tmp: tmp, final: final})
	}

	for _, s := range renames {
		if err := os.Rename(s.tmp, s.final); err != nil {
			cleanup()
			return &WriteError{Symbol: entry.Symbol, Err: err}
		}
	}
	return nil
}

// mergeExisting combines the rows already in the day file (if any)
// with the incoming ones. Incoming rows replace stored rows with the
// same timestamp.
func mergeExisting(path string, incoming []model.OHLCV) ([]model.OHLCV, error) {
	byTime := make(map[int64]model.OHLCV)
	if _, err := os.Stat(path); err == nil {
		existing, err := readBars(path)
		if err != nil {
			return nil, err
		}
		for _, b := range existing {
			byTime[b.Time.Unix()] = b
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	for _, b := range incoming {
		byTime[b.Time.UTC().Truncate(time.Minute).Unix()] = b
	}

	merged := make([]model.OHLCV, 0, len(byTime))
	for _, b := range byTime {
		merged = append(merged, b)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Time.Before(merged[j].Time) })
	return merged, nil
}

// Rows reads back the stored bars for [from, to), across day files.
func (a *Archive) Rows(entry model.WatchlistEntry, from, to time.Time) ([]model.OHLCV, error) {
	lock := a.symbolLock(entry)
	lock.Lock()
	defer lock.Unlock()

	dir := a.symbolDir(entry)
	var out []model.OHLCV
	for day := from.UTC().Truncate(24 * time.Hour); day.Before(to); day = day.AddDate(0, 0, 1) {
		path := filepath.Join(dir, dayFileName(day))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		bars, err := readBars(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Key(), err)
		}
		for _, b := range bars {
			if !b.Time.Before(from) && b.Time.Before(to) {
				out = append(out, b)
			}
		}
	}
	return out, nil
}

// rowSpan returns the half-open minute range covering the given rows.
// Rows need not be sorted.
func rowSpan(rows []model.OHLCV) model.Interval {
	if len(rows) == 0 {
		return model.Interval{}
	}
	min, max := rows[0].Time, rows[0].Time
	for _, r := range rows[1:] {
		if r.Time.Before(min) {
			min = r.Time
		}
		if r.Time.After(max) {
			max = r.Time
		}
	}
	return model.Interval{
		Start: min.UTC().Truncate(time.Minute),
		End:   max.UTC().Truncate(time.Minute).Add(time.Minute),
	}
}
