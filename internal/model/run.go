package model

import "time"

// RunKind indicates what triggered a run.
type RunKind string

const (
	RunRoll     RunKind = "ROLL"
	RunBackfill RunKind = "BACKFILL"
)

// SymbolResult is the outcome of updating one watchlist entry.
type SymbolResult struct {
	Symbol   string
	Category string
	Rows     int
	Err      error
}

// RunSummary aggregates the per-symbol outcomes of one roll or
// backfill pass.
type RunSummary struct {
	ID       string
	Kind     RunKind
	Started  time.Time
	Finished time.Time
	Results  []SymbolResult
}

// Failed returns the results of symbols whose update did not land.
func (s *RunSummary) Failed() []SymbolResult {
	var out []SymbolResult
	for _, r := range s.Results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// RowsAppended returns the total rows committed across all symbols.
func (s *RunSummary) RowsAppended() int {
	total := 0
	for _, r := range s.Results {
		total += r.Rows
	}
	return total
}
