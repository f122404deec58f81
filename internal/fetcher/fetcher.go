package fetcher

import (
	"context"
	"fmt"
	"time"

	"snowball/internal/model"
)

// Fetcher defines the interface for fetching 1-minute OHLCV bars.
// Implementations return rows sorted by timestamp within [from, to).
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, from, to time.Time) ([]model.OHLCV, error)
	Name() string
}

// FetchError reports a provider failure for one symbol. Recoverable:
// the roller retries it and, if the retries are exhausted, skips the
// symbol for that run.
type FetchError struct {
	Symbol string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
