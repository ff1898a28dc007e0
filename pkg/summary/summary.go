// Package summary derives per-night sleep parameters from assembled sleep
// windows and aggregates them across nights.
package summary

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/somnolab/sleepwin/pkg/epoch"
	"github.com/somnolab/sleepwin/pkg/nights"
)

// DefaultMinWearHours is the wear time a night needs to be eligible for
// summary statistics. The sleepnet reference uses 22 hours.
const DefaultMinWearHours = 22.0

// Night holds the sleep parameters of one night interval.
type Night struct {
	Start      time.Time
	End        time.Time
	WearHours  float64
	SleepHours float64 // summed over all windows in the night
	Onset      time.Time
	Offset     time.Time
	NREMHours  float64
	REMHours   float64
	Efficiency float64 // sleep-labeled fraction of the longest window
	Windows    int
	Eligible   bool
}

// Overall aggregates sleep parameters across eligible nights.
type Overall struct {
	Nights         int     `json:"nights"`
	EligibleNights int     `json:"eligible_nights"`
	MinWearHours   float64 `json:"min_wear_hours"`
	MeanSleepHours float64 `json:"mean_sleep_hours"`
	StdSleepHours  float64 `json:"std_sleep_hours"`
	MeanWearHours  float64 `json:"mean_wear_hours"`
	MeanEfficiency float64 `json:"mean_efficiency"`
}

// Nights computes one summary row per night interval that contains at least
// one sleep window. labels supplies the per-epoch label used for stage and
// efficiency accounting; pass the stitched array when refinement ran, or the
// coarse labels otherwise. Onset and offset come from the night's longest
// window.
func Nights(t *nights.Table, step time.Duration, labels []epoch.RawLabel, minWearHours float64) []Night {
	byInterval := make(map[time.Time][]nights.Window)
	for _, w := range t.Windows {
		byInterval[w.IntervalStart] = append(byInterval[w.IntervalStart], w)
	}

	var out []Night
	for _, iv := range t.Intervals {
		ws, ok := byInterval[iv.Start]
		if !ok {
			continue
		}
		n := Night{
			Start:     iv.Start,
			End:       iv.End,
			WearHours: iv.WearHours,
			Windows:   len(ws),
			Eligible:  iv.WearHours >= minWearHours,
		}
		var longest nights.Window
		for _, w := range ws {
			n.SleepHours += w.Duration().Hours()
			if w.Longest {
				longest = w
			}
			nrem, rem := stageEpochs(labels, w)
			n.NREMHours += float64(nrem) * step.Hours()
			n.REMHours += float64(rem) * step.Hours()
		}
		n.Onset = longest.Start
		n.Offset = longest.End
		n.Efficiency = sleepFraction(labels, longest)
		out = append(out, n)
	}
	return out
}

// Summarize aggregates nights into overall statistics. Means and deviations
// cover eligible nights only; an empty eligible set leaves them zero.
func Summarize(ns []Night, minWearHours float64) Overall {
	o := Overall{Nights: len(ns), MinWearHours: minWearHours}

	var sleep, wear, eff []float64
	for _, n := range ns {
		if !n.Eligible {
			continue
		}
		sleep = append(sleep, n.SleepHours)
		wear = append(wear, n.WearHours)
		eff = append(eff, n.Efficiency)
	}
	o.EligibleNights = len(sleep)
	if len(sleep) == 0 {
		return o
	}

	o.MeanSleepHours = stat.Mean(sleep, nil)
	o.MeanWearHours = stat.Mean(wear, nil)
	o.MeanEfficiency = stat.Mean(eff, nil)
	if len(sleep) > 1 {
		o.StdSleepHours = stat.StdDev(sleep, nil)
	}
	return o
}

// stageEpochs counts NREM and REM epochs inside a window.
func stageEpochs(labels []epoch.RawLabel, w nights.Window) (nrem, rem int) {
	if len(labels) < w.EndIdx {
		return 0, 0
	}
	for _, l := range labels[w.StartIdx:w.EndIdx] {
		switch l {
		case epoch.NREM:
			nrem++
		case epoch.REM:
			rem++
		}
	}
	return nrem, rem
}

// sleepFraction returns the sleep-labeled share of a window's epochs.
func sleepFraction(labels []epoch.RawLabel, w nights.Window) float64 {
	total := w.EndIdx - w.StartIdx
	if total <= 0 || len(labels) < w.EndIdx {
		return 0
	}
	asleep := 0
	for _, l := range labels[w.StartIdx:w.EndIdx] {
		if l.Sleep() {
			asleep++
		}
	}
	return float64(asleep) / float64(total)
}
