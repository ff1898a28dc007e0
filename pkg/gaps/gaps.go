// Package gaps decides which short non-sleep runs between valid sleep blocks
// are classifier artifacts and rewrites the series to bridge them.
package gaps

import (
	"time"

	"github.com/somnolab/sleepwin/pkg/blocks"
	"github.com/somnolab/sleepwin/pkg/epoch"
)

// Fill relabels short gaps between valid sleep blocks to sleep and returns
// the corrected series together with the gaps that were filled. The input
// series is never mutated.
//
// A block is a fillable gap when it is not sleep-labeled, lies strictly
// between two valid sleep blocks, and is strictly shorter than threshold.
// A gap of exactly the threshold duration separates two real sleep episodes
// and stays. Fills are decided against the original block boundaries before
// any epoch is relabeled, so the result does not depend on evaluation order
// and re-running Fill on its own output changes nothing.
//
// Only the binary label changes. The wear flag is kept as recorded: a bridged
// non-wear stretch still counts as non-wear for wear-time accounting even
// though it is treated as asleep for segmentation.
func Fill(s *epoch.Series, bs []blocks.Block, valid []int, threshold time.Duration) (*epoch.Series, []blocks.Block) {
	if len(valid) < 2 {
		return s.Clone(), nil
	}

	var fills []blocks.Block
	for v := 0; v < len(valid)-1; v++ {
		for g := valid[v] + 1; g < valid[v+1]; g++ {
			b := bs[g]
			if b.Sleep {
				continue
			}
			if b.Duration() < threshold {
				fills = append(fills, b)
			}
		}
	}

	out := s.Clone()
	for _, f := range fills {
		for i := f.StartIdx; i < f.EndIdx; i++ {
			out.Epochs[i].Sleep = true
		}
	}
	return out, fills
}
