// Package epoch defines the per-epoch time series that the sleep window
// pipeline consumes: one classifier label and one wear flag per fixed-length
// epoch.
package epoch

import (
	"errors"
	"fmt"
	"time"
)

// DefaultLength is the epoch length used by the reference classifier output.
const DefaultLength = 30 * time.Second

// ErrInputContract reports an epoch series that violates the input contract:
// timestamps not strictly increasing or not uniformly spaced.
var ErrInputContract = errors.New("epoch series violates input contract")

// Epoch is a single fixed-length classification slot.
type Epoch struct {
	Time  time.Time
	Raw   RawLabel
	Sleep bool // derived binary label
	Wear  bool // false only for the non-wear sentinel
}

// Series is an ordered, uniformly spaced sequence of epochs.
type Series struct {
	Epochs []Epoch
	Step   time.Duration
}

// New builds a series from raw classifier labels, deriving the binary sleep
// label and the wear flag for each epoch. Timestamps are validated against
// the series contract.
func New(times []time.Time, raw []RawLabel, step time.Duration) (*Series, error) {
	if len(times) != len(raw) {
		return nil, fmt.Errorf("%w: %d timestamps but %d labels", ErrInputContract, len(times), len(raw))
	}
	epochs := make([]Epoch, len(times))
	for i, t := range times {
		epochs[i] = Epoch{
			Time:  t,
			Raw:   raw[i],
			Sleep: raw[i].Sleep(),
			Wear:  raw[i] != NonWear,
		}
	}
	s := &Series{Epochs: epochs, Step: step}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the series contract: strictly increasing timestamps spaced
// exactly one step apart. An empty series is valid.
func (s *Series) Validate() error {
	if s.Step <= 0 {
		return fmt.Errorf("%w: non-positive epoch length %v", ErrInputContract, s.Step)
	}
	for i := 1; i < len(s.Epochs); i++ {
		gap := s.Epochs[i].Time.Sub(s.Epochs[i-1].Time)
		if gap != s.Step {
			return fmt.Errorf("%w: epoch %d at %s is %v after its predecessor, want %v",
				ErrInputContract, i, s.Epochs[i].Time.Format(time.RFC3339), gap, s.Step)
		}
	}
	return nil
}

// Len returns the number of epochs.
func (s *Series) Len() int { return len(s.Epochs) }

// Duration returns the total covered time span.
func (s *Series) Duration() time.Duration {
	return time.Duration(len(s.Epochs)) * s.Step
}

// Start returns the first epoch's timestamp. Only valid for non-empty series.
func (s *Series) Start() time.Time { return s.Epochs[0].Time }

// End returns the exclusive end of the covered span.
func (s *Series) End() time.Time {
	return s.Epochs[len(s.Epochs)-1].Time.Add(s.Step)
}

// Clone returns a deep copy of the series. The gap merger mutates the copy,
// never the original.
func (s *Series) Clone() *Series {
	epochs := make([]Epoch, len(s.Epochs))
	copy(epochs, s.Epochs)
	return &Series{Epochs: epochs, Step: s.Step}
}

// RawLabels returns the raw label of every epoch in order.
func (s *Series) RawLabels() []RawLabel {
	out := make([]RawLabel, len(s.Epochs))
	for i, e := range s.Epochs {
		out[i] = e.Raw
	}
	return out
}
