// Package blocks run-length-encodes an epoch series into maximal runs of
// constant (sleep, wear) state and filters the runs that are long enough to
// be real sleep.
package blocks

import (
	"time"

	"github.com/somnolab/sleepwin/pkg/epoch"
)

// Block is a maximal run of consecutive epochs sharing the same binary label
// and wear flag. End and EndIdx are exclusive.
type Block struct {
	Start    time.Time
	End      time.Time
	StartIdx int
	EndIdx   int
	Sleep    bool
	Wear     bool
}

// Duration returns the covered time span.
func (b Block) Duration() time.Duration { return b.End.Sub(b.Start) }

// Epochs returns the number of epochs in the run.
func (b Block) Epochs() int { return b.EndIdx - b.StartIdx }

// Extract scans the series once and returns its blocks in order. The blocks
// are contiguous, non-overlapping and jointly cover the whole series.
func Extract(s *epoch.Series) []Block {
	if s.Len() == 0 {
		return nil
	}
	var out []Block
	cur := Block{
		Start:    s.Epochs[0].Time,
		StartIdx: 0,
		Sleep:    s.Epochs[0].Sleep,
		Wear:     s.Epochs[0].Wear,
	}
	for i := 1; i < s.Len(); i++ {
		e := s.Epochs[i]
		if e.Sleep == cur.Sleep && e.Wear == cur.Wear {
			continue
		}
		cur.End = e.Time
		cur.EndIdx = i
		out = append(out, cur)
		cur = Block{Start: e.Time, StartIdx: i, Sleep: e.Sleep, Wear: e.Wear}
	}
	cur.End = s.End()
	cur.EndIdx = s.Len()
	return append(out, cur)
}

// ValidSleep returns the indices of sleep-labeled blocks whose duration
// strictly exceeds minDuration. Wake and non-wear runs are never valid no
// matter how long: a single-epoch classifier flicker must not seed a sleep
// episode, and validity is only defined over sleep runs.
func ValidSleep(bs []Block, minDuration time.Duration) []int {
	var valid []int
	for i, b := range bs {
		if b.Sleep && b.Duration() > minDuration {
			valid = append(valid, i)
		}
	}
	return valid
}
