package sleepwin

import "time"

// OptionHolder collects configuration before validation.
type OptionHolder struct {
	epochLength   time.Duration
	minSleepBlock time.Duration
	gapThreshold  time.Duration
	anchorHour    int
}

// Option configures a Segmenter.
type Option func(*OptionHolder)

// WithEpochLength overrides the 30 s epoch length.
func WithEpochLength(d time.Duration) Option {
	return func(o *OptionHolder) {
		o.epochLength = d
	}
}

// WithMinSleepBlock overrides the minimum duration a sleep run must exceed to
// count as a real sleep block.
func WithMinSleepBlock(d time.Duration) Option {
	return func(o *OptionHolder) {
		o.minSleepBlock = d
	}
}

// WithGapThreshold overrides the duration below which a non-sleep gap between
// valid sleep blocks is bridged.
func WithGapThreshold(d time.Duration) Option {
	return func(o *OptionHolder) {
		o.gapThreshold = d
	}
}

// WithNightAnchorHour overrides the hour of day at which night intervals
// start and end.
func WithNightAnchorHour(hour int) Option {
	return func(o *OptionHolder) {
		o.anchorHour = hour
	}
}
