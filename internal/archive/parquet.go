package archive

import (
	"fmt"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	"snowball/internal/model"
)

// barRow is the parquet schema for one 1-minute bar. Timestamps are
// stored as unix seconds in UTC.
type barRow struct {
	Timestamp int64   `parquet:"timestamp"`
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

// readBars loads all rows from one parquet day file.
func readBars(path string) ([]model.OHLCV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	rows, err := parquet.Read[barRow](f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}

	bars := make([]model.OHLCV, len(rows))
	for i, r := range rows {
		bars[i] = model.OHLCV{
			Time:   time.Unix(r.Timestamp, 0).UTC(),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		}
	}
	return bars, nil
}

// writeBarsFile writes bars to path. The caller is responsible for
// staging and renaming; this writes the given path directly.
func writeBarsFile(path string, bars []model.OHLCV) error {
	rows := make([]barRow, len(bars))
	for i, b := range bars {
		rows[i] = barRow{
			Timestamp: b.Time.UTC().Unix(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := parquet.Write(f, rows, parquet.Compression(&parquet.Snappy)); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write parquet %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}
