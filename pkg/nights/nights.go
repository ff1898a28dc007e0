// Package nights partitions a corrected epoch series into calendar-night
// intervals, assigns sleep blocks to nights, accounts wear time and marks the
// longest block per night.
package nights

import (
	"time"

	"github.com/somnolab/sleepwin/pkg/blocks"
	"github.com/somnolab/sleepwin/pkg/epoch"
)

// DefaultAnchorHour starts each night interval at noon, so a night spans
// 12:00 on day D to 12:00 on day D+1.
const DefaultAnchorHour = 12

// Interval is one 24-hour night window.
type Interval struct {
	Start     time.Time
	End       time.Time
	WearHours float64
}

// Contains reports whether t falls inside [Start, End).
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// Window is one row of the sleep block table: a sleep block with its night
// interval attached. BlockID doubles as the dispatch key for the refinement
// model; StartIdx/EndIdx locate the block's epochs in the original series.
type Window struct {
	BlockID       int
	Start         time.Time
	End           time.Time
	StartIdx      int
	EndIdx        int
	IntervalStart time.Time
	IntervalEnd   time.Time
	WearHours     float64
	Longest       bool
}

// Duration returns the window's covered time span.
func (w Window) Duration() time.Duration { return w.End.Sub(w.Start) }

// Table is the assembler output.
type Table struct {
	Windows   []Window
	Intervals []Interval
}

// Empty reports whether no sleep windows were found. This is a normal
// terminal outcome, not an error.
func (t *Table) Empty() bool { return len(t.Windows) == 0 }

// Longest returns the subset of windows marked longest in their night.
func (t *Table) Longest() []Window {
	var out []Window
	for _, w := range t.Windows {
		if w.Longest {
			out = append(out, w)
		}
	}
	return out
}

// Intervals derives the night intervals tiling the series' time range.
// The first interval starts at the most recent anchor hour at or before the
// first epoch; intervals then follow back to back, each exactly 24 hours,
// until the last epoch is covered.
func Intervals(s *epoch.Series, anchorHour int) []Interval {
	if s.Len() == 0 {
		return nil
	}
	first := s.Start()
	anchor := time.Date(first.Year(), first.Month(), first.Day(), anchorHour, 0, 0, 0, first.Location())
	if anchor.After(first) {
		anchor = anchor.AddDate(0, 0, -1)
	}

	var out []Interval
	end := s.End()
	for t := anchor; t.Before(end); t = t.AddDate(0, 0, 1) {
		out = append(out, Interval{Start: t, End: t.AddDate(0, 0, 1)})
	}
	return out
}

// Assemble re-extracts blocks from the corrected series, keeps the sleep
// blocks longer than minDuration, assigns each to the interval containing its
// start, computes per-interval wear hours and flags the longest block per
// interval (ties broken by earliest start). An empty series or a series with
// no qualifying sleep blocks yields an empty table.
func Assemble(s *epoch.Series, anchorHour int, minDuration time.Duration) *Table {
	t := &Table{Intervals: Intervals(s, anchorHour)}
	if s.Len() == 0 {
		return t
	}

	for i := range t.Intervals {
		t.Intervals[i].WearHours = wearHours(s, t.Intervals[i])
	}

	bs := blocks.Extract(s)
	for _, idx := range blocks.ValidSleep(bs, minDuration) {
		b := bs[idx]
		iv := intervalFor(t.Intervals, b.Start)
		t.Windows = append(t.Windows, Window{
			BlockID:       len(t.Windows),
			Start:         b.Start,
			End:           b.End,
			StartIdx:      b.StartIdx,
			EndIdx:        b.EndIdx,
			IntervalStart: iv.Start,
			IntervalEnd:   iv.End,
			WearHours:     iv.WearHours,
		})
	}

	markLongest(t.Windows)
	return t
}

// wearHours counts wear epochs inside the interval, expressed in hours.
func wearHours(s *epoch.Series, iv Interval) float64 {
	worn := 0
	for _, e := range s.Epochs {
		if e.Wear && iv.Contains(e.Time) {
			worn++
		}
	}
	return float64(worn) * s.Step.Hours()
}

// intervalFor returns the interval whose [start, end) contains t. The
// intervals tile the series range, so every block start has one.
func intervalFor(ivs []Interval, t time.Time) Interval {
	for _, iv := range ivs {
		if iv.Contains(t) {
			return iv
		}
	}
	return Interval{}
}

// markLongest flags, per night interval, the single longest window.
func markLongest(ws []Window) {
	best := make(map[time.Time]int)
	for i, w := range ws {
		j, ok := best[w.IntervalStart]
		if !ok {
			best[w.IntervalStart] = i
			continue
		}
		// Strictly longer wins; the earliest-starting window keeps ties.
		if w.Duration() > ws[j].Duration() {
			best[w.IntervalStart] = i
		}
	}
	for _, i := range best {
		ws[i].Longest = true
	}
}
