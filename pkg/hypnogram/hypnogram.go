// Package hypnogram renders per-night sleep timelines for the terminal.
package hypnogram

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/somnolab/sleepwin/pkg/epoch"
	"github.com/somnolab/sleepwin/pkg/nights"
)

// slotWidth is the rendering resolution: one character per 30 minutes, so a
// night interval is a 48-character strip.
const slotWidth = 30 * time.Minute

// Render returns a colored text timeline, one line per night interval. Each
// slot shows the dominant state of its epochs: blue █ for sleep, · for wake,
// grey ░ for non-wear, space where the recording has no data.
func Render(s *epoch.Series, t *nights.Table) string {
	var out strings.Builder

	out.WriteString("🛏  Sleep windows (30-minute resolution)\n")
	out.WriteString(strings.Repeat("─", 64) + "\n")

	if t.Empty() {
		out.WriteString("no sleep windows detected\n")
		return out.String()
	}

	sleepColor := color.New(color.FgBlue)
	nonWearColor := color.New(color.FgHiBlack)

	for _, iv := range t.Intervals {
		line := fmt.Sprintf("%s  ", iv.Start.Format("Jan 02 15:04"))
		for slot := iv.Start; slot.Before(iv.End); slot = slot.Add(slotWidth) {
			line += renderSlot(s, slot)
		}
		line += fmt.Sprintf("  %4.1fh worn", iv.WearHours)
		if w, ok := longestIn(t, iv); ok {
			line += fmt.Sprintf(", longest %s–%s", w.Start.Format("15:04"), w.End.Format("15:04"))
		}
		out.WriteString(line + "\n")
	}

	out.WriteString(strings.Repeat("─", 64) + "\n")
	out.WriteString(sleepColor.Sprint("█") + " sleep   · wake   " + nonWearColor.Sprint("░") + " non-wear\n")
	return out.String()
}

// renderSlot picks the dominant epoch state within one 30-minute slot.
// The series is uniformly spaced, so the slot maps to an index range.
func renderSlot(s *epoch.Series, start time.Time) string {
	lo := int(start.Sub(s.Start()) / s.Step)
	hi := int(start.Add(slotWidth).Sub(s.Start()) / s.Step)
	lo = max(lo, 0)
	hi = min(hi, s.Len())

	var total, asleep, nonWear int
	for i := lo; i < hi; i++ {
		e := s.Epochs[i]
		total++
		switch {
		case !e.Wear:
			nonWear++
		case e.Sleep:
			asleep++
		}
	}
	switch {
	case total == 0:
		return " "
	case nonWear*2 > total:
		return color.New(color.FgHiBlack).Sprint("░")
	case asleep*2 >= total:
		return color.New(color.FgBlue).Sprint("█")
	default:
		return "·"
	}
}

func longestIn(t *nights.Table, iv nights.Interval) (nights.Window, bool) {
	for _, w := range t.Windows {
		if w.Longest && w.IntervalStart.Equal(iv.Start) {
			return w, true
		}
	}
	return nights.Window{}, false
}
