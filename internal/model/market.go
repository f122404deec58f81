package model

import "time"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// WatchlistEntry identifies one tracked symbol and the storage category
// it is grouped under (e.g. "stocks").
type WatchlistEntry struct {
	Symbol   string
	Category string
}

// Key returns the category/symbol pair used for partition paths and locks.
func (e WatchlistEntry) Key() string {
	return e.Category + "/" + e.Symbol
}
