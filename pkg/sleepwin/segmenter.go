// Package sleepwin converts a per-epoch sleep/wake classification series into
// discrete sleep windows grouped into nights: block extraction, validation,
// gap bridging, night assembly and refined-prediction stitching.
package sleepwin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/somnolab/sleepwin/pkg/blocks"
	"github.com/somnolab/sleepwin/pkg/epoch"
	"github.com/somnolab/sleepwin/pkg/gaps"
	"github.com/somnolab/sleepwin/pkg/nights"
	"github.com/somnolab/sleepwin/pkg/stitch"
)

// Reference configuration defaults.
const (
	DefaultMinSleepBlock = 30 * time.Minute
	DefaultGapThreshold  = 3 * time.Hour
)

// ErrThreshold reports a non-positive duration threshold. Rejected at
// configuration time so the core never sees it.
var ErrThreshold = errors.New("threshold must be positive")

// StageClassifier is the refinement model boundary: given the assembled
// windows it returns one prediction per epoch per block, keyed by block ID.
// Model loading, download and inference live behind this interface.
type StageClassifier interface {
	PredictBlocks(ctx context.Context, series *epoch.Series, windows []nights.Window) (map[int][]epoch.RawLabel, error)
}

// Segmenter runs the sleep window pipeline.
type Segmenter struct {
	logger        *slog.Logger
	epochLength   time.Duration
	minSleepBlock time.Duration
	gapThreshold  time.Duration
	anchorHour    int
}

// Result is the pipeline output for one recording.
type Result struct {
	// Series is the corrected series with short gaps relabeled to sleep.
	Series *epoch.Series
	// Coarse is the original binary label per epoch, pre-refinement.
	Coarse []epoch.RawLabel
	// Table holds the sleep windows and night intervals.
	Table *nights.Table
	// Filled lists the gaps that were bridged.
	Filled []blocks.Block
}

// Empty reports whether no sleep windows were detected. Callers short-circuit
// the refinement model and report "no sleep windows" to the user.
func (r *Result) Empty() bool { return r.Table.Empty() }

// New validates the configuration and returns a Segmenter.
func New(logger *slog.Logger, opts ...Option) (*Segmenter, error) {
	if err := epoch.ValidateLabelTables(); err != nil {
		return nil, fmt.Errorf("label tables: %w", err)
	}

	holder := &OptionHolder{
		epochLength:   epoch.DefaultLength,
		minSleepBlock: DefaultMinSleepBlock,
		gapThreshold:  DefaultGapThreshold,
		anchorHour:    nights.DefaultAnchorHour,
	}
	for _, opt := range opts {
		opt(holder)
	}

	if holder.epochLength <= 0 {
		return nil, fmt.Errorf("%w: epoch length %v", ErrThreshold, holder.epochLength)
	}
	if holder.minSleepBlock <= 0 {
		return nil, fmt.Errorf("%w: minimum sleep block %v", ErrThreshold, holder.minSleepBlock)
	}
	if holder.gapThreshold <= 0 {
		return nil, fmt.Errorf("%w: gap threshold %v", ErrThreshold, holder.gapThreshold)
	}
	if holder.anchorHour < 0 || holder.anchorHour > 23 {
		return nil, fmt.Errorf("%w: night anchor hour %d", ErrThreshold, holder.anchorHour)
	}

	return &Segmenter{
		logger:        logger,
		epochLength:   holder.epochLength,
		minSleepBlock: holder.minSleepBlock,
		gapThreshold:  holder.gapThreshold,
		anchorHour:    holder.anchorHour,
	}, nil
}

// EpochLength returns the configured epoch length.
func (sg *Segmenter) EpochLength() time.Duration { return sg.epochLength }

// Segment runs stages one through four: extract blocks, pick the valid sleep
// blocks, bridge short gaps and assemble nights. A series with zero sleep
// windows yields a Result with an empty table, not an error.
func (sg *Segmenter) Segment(series *epoch.Series) (*Result, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}
	if series.Len() > 0 && series.Step != sg.epochLength {
		return nil, fmt.Errorf("%w: series step %v, segmenter configured for %v",
			epoch.ErrInputContract, series.Step, sg.epochLength)
	}

	bs := blocks.Extract(series)
	valid := blocks.ValidSleep(bs, sg.minSleepBlock)
	sg.logger.Debug("extracted blocks", "blocks", len(bs), "valid_sleep", len(valid))

	corrected, filled := gaps.Fill(series, bs, valid, sg.gapThreshold)
	for _, f := range filled {
		sg.logger.Debug("bridged gap",
			"start", f.Start.Format(time.RFC3339),
			"duration", f.Duration(),
			"wear", f.Wear)
	}

	table := nights.Assemble(corrected, sg.anchorHour, sg.minSleepBlock)
	if table.Empty() {
		sg.logger.Info("no sleep windows detected", "epochs", series.Len())
	} else {
		sg.logger.Info("assembled sleep windows",
			"windows", len(table.Windows),
			"nights", len(table.Intervals),
			"gaps_filled", len(filled))
	}

	return &Result{
		Series: corrected,
		Coarse: series.RawLabels(),
		Table:  table,
		Filled: filled,
	}, nil
}

// Stitch projects a classifier's refined per-block predictions back onto the
// full-resolution timeline of a segmentation result.
func (sg *Segmenter) Stitch(ctx context.Context, r *Result, clf StageClassifier) ([]epoch.RawLabel, error) {
	refined, err := clf.PredictBlocks(ctx, r.Series, r.Table.Windows)
	if err != nil {
		return nil, fmt.Errorf("refinement model: %w", err)
	}
	return stitch.Apply(r.Coarse, r.Table.Windows, refined)
}
