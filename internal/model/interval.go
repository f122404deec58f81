package model

import (
	"fmt"
	"sort"
	"time"
)

// Interval is a half-open time range [Start, End). Archive coverage and
// gap computation both work in these.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether the interval is non-empty.
func (iv Interval) Valid() bool {
	return iv.End.After(iv.Start)
}

// Duration returns End - Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Contains reports whether t falls inside [Start, End).
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%s, %s)", iv.Start.Format(time.RFC3339), iv.End.Format(time.RFC3339))
}

// Split cuts the interval into consecutive pieces no longer than max.
func (iv Interval) Split(max time.Duration) []Interval {
	if !iv.Valid() {
		return nil
	}
	if max <= 0 || iv.Duration() <= max {
		return []Interval{iv}
	}
	var out []Interval
	for start := iv.Start; start.Before(iv.End); start = start.Add(max) {
		end := start.Add(max)
		if end.After(iv.End) {
			end = iv.End
		}
		out = append(out, Interval{Start: start, End: end})
	}
	return out
}

// MergeIntervals sorts the given intervals and coalesces overlapping or
// adjacent ones. Empty intervals are dropped. The input is not modified.
func MergeIntervals(ivs []Interval) []Interval {
	valid := make([]Interval, 0, len(ivs))
	for _, iv := range ivs {
		if iv.Valid() {
			valid = append(valid, iv)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i].Start.Before(valid[j].Start) })

	out := []Interval{valid[0]}
	for _, iv := range valid[1:] {
		last := &out[len(out)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// SubtractIntervals returns the parts of span not covered by any of the
// given intervals, in ascending order. covered need not be sorted.
func SubtractIntervals(span Interval, covered []Interval) []Interval {
	if !span.Valid() {
		return nil
	}
	merged := MergeIntervals(covered)

	var gaps []Interval
	cursor := span.Start
	for _, iv := range merged {
		if !iv.End.After(cursor) {
			continue
		}
		if !iv.Start.Before(span.End) {
			break
		}
		if iv.Start.After(cursor) {
			end := iv.Start
			if end.After(span.End) {
				end = span.End
			}
			gaps = append(gaps, Interval{Start: cursor, End: end})
		}
		if iv.End.After(cursor) {
			cursor = iv.End
		}
		if !cursor.Before(span.End) {
			return gaps
		}
	}
	if cursor.Before(span.End) {
		gaps = append(gaps, Interval{Start: cursor, End: span.End})
	}
	return gaps
}
