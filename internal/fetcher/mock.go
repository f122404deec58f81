package fetcher

import (
	"context"
	"time"

	"snowball/internal/model"
)

// Call records one Fetch invocation made against a MockFetcher.
type Call struct {
	Symbol string
	From   time.Time
	To     time.Time
}

// MockFetcher returns controllable fixed data for development and
// testing. Rows holds the full series per symbol; Fetch returns the
// slice that falls inside the requested window. Errs fails a symbol
// unconditionally; FailTimes fails it only for the first N calls.
type MockFetcher struct {
	Rows      map[string][]model.OHLCV
	Errs      map[string]error
	FailTimes map[string]int
	Calls     []Call
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) Fetch(_ context.Context, symbol string, from, to time.Time) ([]model.OHLCV, error) {
	m.Calls = append(m.Calls, Call{Symbol: symbol, From: from, To: to})

	if n, ok := m.FailTimes[symbol]; ok && n > 0 {
		m.FailTimes[symbol] = n - 1
		return nil, &FetchError{Symbol: symbol, Err: context.DeadlineExceeded}
	}
	if err, ok := m.Errs[symbol]; ok {
		return nil, &FetchError{Symbol: symbol, Err: err}
	}

	var out []model.OHLCV
	for _, bar := range m.Rows[symbol] {
		if !bar.Time.Before(from) && bar.Time.Before(to) {
			out = append(out, bar)
		}
	}
	return out, nil
}

// CallsFor returns the recorded calls for one symbol.
func (m *MockFetcher) CallsFor(symbol string) []Call {
	var out []Call
	for _, c := range m.Calls {
		if c.Symbol == symbol {
			out = append(out, c)
		}
	}
	return out
}
