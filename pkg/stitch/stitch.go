// Package stitch projects the refinement model's per-block predictions back
// onto the full-resolution epoch timeline.
package stitch

import (
	"errors"
	"fmt"

	"github.com/somnolab/sleepwin/pkg/epoch"
	"github.com/somnolab/sleepwin/pkg/nights"
)

// ErrAlignment reports refined predictions whose count does not match the
// epoch count of their block. The caller corrupted block alignment; clipping
// silently would misplace every later label.
var ErrAlignment = errors.New("refined predictions misaligned with sleep block")

// Apply overwrites the labels of every epoch inside an assigned sleep window
// with that block's refined predictions, in chronological order. Epochs
// outside every window keep the coarse classifier's label. The input slice is
// not modified.
//
// refined maps block IDs (per the window table) to one prediction per epoch
// of the block. A missing block or a length mismatch aborts the whole stitch.
func Apply(coarse []epoch.RawLabel, windows []nights.Window, refined map[int][]epoch.RawLabel) ([]epoch.RawLabel, error) {
	out := make([]epoch.RawLabel, len(coarse))
	copy(out, coarse)

	for _, w := range windows {
		preds, ok := refined[w.BlockID]
		if !ok {
			return nil, fmt.Errorf("%w: no predictions for block %d", ErrAlignment, w.BlockID)
		}
		if len(preds) != w.EndIdx-w.StartIdx {
			return nil, fmt.Errorf("%w: block %d spans %d epochs but got %d predictions",
				ErrAlignment, w.BlockID, w.EndIdx-w.StartIdx, len(preds))
		}
		if w.StartIdx < 0 || w.EndIdx > len(out) {
			return nil, fmt.Errorf("%w: block %d epoch range [%d, %d) outside series of %d epochs",
				ErrAlignment, w.BlockID, w.StartIdx, w.EndIdx, len(out))
		}
		copy(out[w.StartIdx:w.EndIdx], preds)
	}
	return out, nil
}
