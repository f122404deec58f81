// Package roller orchestrates the fetch-and-append cycle over the
// configured watchlist: Roll extends each symbol forward from its
// latest stored bar, RollBackfill fills historical gaps. Per-symbol
// failures are retried, then skipped and reported; they never abort
// the rest of the run.
package roller

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"snowball/internal/archive"
	"snowball/internal/config"
	"snowball/internal/fetcher"
	"snowball/internal/model"
	"snowball/internal/recorder"
)

// Roller drives roll and backfill passes over the watchlist.
type Roller struct {
	cfg      *config.Config
	fetcher  fetcher.Fetcher
	archive  *archive.Archive
	recorder recorder.Recorder

	// now is swappable for tests.
	now func() time.Time
}

// New creates a Roller. rec may be a NoopRecorder.
func New(cfg *config.Config, f fetcher.Fetcher, a *archive.Archive, rec recorder.Recorder) *Roller {
	return &Roller{
		cfg:      cfg,
		fetcher:  f,
		archive:  a,
		recorder: rec,
		now:      time.Now,
	}
}

// Roll runs one incremental cycle: for every watchlist entry, fetch
// [latest stored bar + 1m, now) and append. Returns the run summary;
// the error is non-nil only when the run itself could not proceed
// (context canceled). Per-symbol failures live in the summary.
func (r *Roller) Roll(ctx context.Context) (*model.RunSummary, error) {
	return r.run(ctx, model.RunRoll, r.rollIntervals)
}

// RollBackfill fills every recorded gap between the configured history
// start and now. Idempotent: a rerun after a successful pass computes
// an empty gap set and fetches nothing.
func (r *Roller) RollBackfill(ctx context.Context) (*model.RunSummary, error) {
	return r.run(ctx, model.RunBackfill, r.backfillIntervals)
}

func (r *Roller) run(ctx context.Context, kind model.RunKind, plan func(model.WatchlistEntry, time.Time) ([]model.Interval, error)) (*model.RunSummary, error) {
	now := r.now().UTC().Truncate(time.Minute)
	summary := &model.RunSummary{
		ID:      uuid.NewString(),
		Kind:    kind,
		Started: r.now().UTC(),
	}
	log.Printf("[INFO] %s run %s starting, %d symbols", kind, summary.ID, len(r.cfg.Entries()))

	var runErr error
	for _, entry := range r.cfg.Entries() {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		summary.Results = append(summary.Results, r.updateSymbol(ctx, entry, now, plan))
	}
	summary.Finished = r.now().UTC()

	for _, res := range summary.Failed() {
		log.Printf("[WARN] %s: symbol %s failed: %v", kind, res.Symbol, res.Err)
	}
	log.Printf("[INFO] %s run %s finished: %d symbols, %d failed, %d rows",
		kind, summary.ID, len(summary.Results), len(summary.Failed()), summary.RowsAppended())

	if err := r.recorder.RecordRun(summary); err != nil {
		log.Printf("[ERROR] record run: %v", err)
	}
	return summary, runErr
}

// updateSymbol plans the intervals to fetch for one entry and commits
// them in order. The first error stops work on this symbol only.
func (r *Roller) updateSymbol(ctx context.Context, entry model.WatchlistEntry, now time.Time, plan func(model.WatchlistEntry, time.Time) ([]model.Interval, error)) model.SymbolResult {
	result := model.SymbolResult{Symbol: entry.Symbol, Category: entry.Category}

	intervals, err := plan(entry, now)
	if err != nil {
		result.Err = err
		return result
	}

	for _, iv := range intervals {
		for _, window := range iv.Split(r.cfg.MaxWindow()) {
			rows, err := r.fetchWithRetry(ctx, entry.Symbol, window)
			if err != nil {
				result.Err = err
				return result
			}
			if err := r.archive.CommitRange(entry, rows, window); err != nil {
				result.Err = err
				return result
			}
			result.Rows += len(rows)
		}
	}
	return result
}

func (r *Roller) rollIntervals(entry model.WatchlistEntry, now time.Time) ([]model.Interval, error) {
	since := r.cfg.HistoryStart(now)
	if latest, ok, err := r.archive.LatestTimestamp(entry); err != nil {
		return nil, err
	} else if ok {
		since = latest.Add(time.Minute)
	}
	if !since.Before(now) {
		return nil, nil
	}
	return []model.Interval{{Start: since, End: now}}, nil
}

func (r *Roller) backfillIntervals(entry model.WatchlistEntry, now time.Time) ([]model.Interval, error) {
	return r.archive.MissingIntervals(entry, r.cfg.HistoryStart(now), now)
}

// fetchWithRetry attempts the fetch up to max_retries times with
// multiplicative backoff, respecting context cancellation.
func (r *Roller) fetchWithRetry(ctx context.Context, symbol string, window model.Interval) ([]model.OHLCV, error) {
	attempts := r.cfg.Fetch.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	backoff := r.cfg.RetryBackoff()
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			log.Printf("[WARN] retrying %s %s (attempt %d): %v", symbol, window, attempt+1, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		rows, err := r.fetcher.Fetch(ctx, symbol, window.Start, window.End)
		if err == nil {
			return rows, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
