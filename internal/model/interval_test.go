package model

import (
	"testing"
	"time"
)

func ts(minute int) time.Time {
	return time.Date(2026, 8, 3, 14, 0, 0, 0, time.UTC).Add(time.Duration(minute) * time.Minute)
}

func TestMergeIntervals_OverlappingAndAdjacent(t *testing.T) {
	merged := MergeIntervals([]Interval{
		{Start: ts(10), End: ts(20)},
		{Start: ts(0), End: ts(5)},
		{Start: ts(5), End: ts(10)}, // adjacent to both neighbors
		{Start: ts(15), End: ts(18)},
	})
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged interval, got %d: %v", len(merged), merged)
	}
	if !merged[0].Start.Equal(ts(0)) || !merged[0].End.Equal(ts(20)) {
		t.Errorf("expected [0,20), got %s", merged[0])
	}
}

func TestMergeIntervals_DropsEmpty(t *testing.T) {
	merged := MergeIntervals([]Interval{
		{Start: ts(5), End: ts(5)},
		{Start: ts(10), End: ts(8)},
	})
	if merged != nil {
		t.Errorf("expected nil, got %v", merged)
	}
}

func TestSubtractIntervals_InteriorGap(t *testing.T) {
	span := Interval{Start: ts(0), End: ts(40)}
	covered := []Interval{
		{Start: ts(0), End: ts(10)},
		{Start: ts(30), End: ts(40)},
	}
	gaps := SubtractIntervals(span, covered)
	if len(gaps) != 1 {
		t.Fatalf("expected 1 gap, got %d: %v", len(gaps), gaps)
	}
	if !gaps[0].Start.Equal(ts(10)) || !gaps[0].End.Equal(ts(30)) {
		t.Errorf("expected gap [10,30), got %s", gaps[0])
	}
}

func TestSubtractIntervals_FullyCovered(t *testing.T) {
	span := Interval{Start: ts(5), End: ts(15)}
	covered := []Interval{{Start: ts(0), End: ts(20)}}
	if gaps := SubtractIntervals(span, covered); len(gaps) != 0 {
		t.Errorf("expected no gaps, got %v", gaps)
	}
}

func TestSubtractIntervals_NothingCovered(t *testing.T) {
	span := Interval{Start: ts(0), End: ts(10)}
	gaps := SubtractIntervals(span, nil)
	if len(gaps) != 1 || !gaps[0].Start.Equal(ts(0)) || !gaps[0].End.Equal(ts(10)) {
		t.Errorf("expected the whole span back, got %v", gaps)
	}
}

func TestSubtractIntervals_CoverageOutsideSpan(t *testing.T) {
	span := Interval{Start: ts(10), End: ts(20)}
	covered := []Interval{
		{Start: ts(0), End: ts(5)},
		{Start: ts(25), End: ts(30)},
	}
	gaps := SubtractIntervals(span, covered)
	if len(gaps) != 1 || !gaps[0].Start.Equal(ts(10)) || !gaps[0].End.Equal(ts(20)) {
		t.Errorf("expected the whole span back, got %v", gaps)
	}
}

func TestSplit_BoundsWindows(t *testing.T) {
	iv := Interval{Start: ts(0), End: ts(50)}
	parts := iv.Split(20 * time.Minute)
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d: %v", len(parts), parts)
	}
	if !parts[0].Start.Equal(ts(0)) || !parts[2].End.Equal(ts(50)) {
		t.Errorf("split endpoints wrong: %v", parts)
	}
	if parts[2].Duration() != 10*time.Minute {
		t.Errorf("expected 10m tail, got %v", parts[2].Duration())
	}
}

func TestSplit_NoOpWhenShort(t *testing.T) {
	iv := Interval{Start: ts(0), End: ts(5)}
	parts := iv.Split(time.Hour)
	if len(parts) != 1 || parts[0] != iv {
		t.Errorf("expected unchanged interval, got %v", parts)
	}
}
