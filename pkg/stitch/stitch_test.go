package stitch

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/somnolab/sleepwin/pkg/epoch"
	"github.com/somnolab/sleepwin/pkg/nights"
)

func window(id, startIdx, endIdx int) nights.Window {
	start := time.Date(2024, 5, 1, 22, 0, 0, 0, time.UTC)
	return nights.Window{
		BlockID:  id,
		Start:    start.Add(time.Duration(startIdx) * 30 * time.Second),
		End:      start.Add(time.Duration(endIdx) * 30 * time.Second),
		StartIdx: startIdx,
		EndIdx:   endIdx,
	}
}

func TestApplyOverwritesOnlyWindows(t *testing.T) {
	coarse := []epoch.RawLabel{
		epoch.Wake, epoch.Wake,
		epoch.NREM, epoch.NREM, epoch.NREM, // window 0: indices 2-5
		epoch.Wake,
		epoch.NREM, epoch.NREM, // window 1: indices 6-8
		epoch.Wake,
	}
	windows := []nights.Window{window(0, 2, 5), window(1, 6, 8)}
	refined := map[int][]epoch.RawLabel{
		0: {epoch.NREM, epoch.REM, epoch.NREM},
		1: {epoch.REM, epoch.Wake},
	}

	out, err := Apply(coarse, windows, refined)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	want := []epoch.RawLabel{
		epoch.Wake, epoch.Wake,
		epoch.NREM, epoch.REM, epoch.NREM,
		epoch.Wake,
		epoch.REM, epoch.Wake,
		epoch.Wake,
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("stitched labels mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyDoesNotMutateCoarse(t *testing.T) {
	coarse := []epoch.RawLabel{epoch.NREM, epoch.NREM, epoch.NREM}
	windows := []nights.Window{window(0, 0, 3)}
	refined := map[int][]epoch.RawLabel{0: {epoch.REM, epoch.REM, epoch.REM}}

	if _, err := Apply(coarse, windows, refined); err != nil {
		t.Fatal(err)
	}
	for i, l := range coarse {
		if l != epoch.NREM {
			t.Errorf("coarse labels mutated at epoch %d: %v", i, l)
		}
	}
}

func TestApplyLengthMismatch(t *testing.T) {
	coarse := make([]epoch.RawLabel, 10)
	windows := []nights.Window{window(0, 2, 6)}

	tests := []struct {
		name  string
		preds []epoch.RawLabel
	}{
		{name: "too few", preds: []epoch.RawLabel{epoch.NREM, epoch.NREM, epoch.NREM}},
		{name: "too many", preds: make([]epoch.RawLabel, 5)},
		{name: "empty", preds: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Apply(coarse, windows, map[int][]epoch.RawLabel{0: tt.preds})
			if !errors.Is(err, ErrAlignment) {
				t.Errorf("Apply = %v, want ErrAlignment", err)
			}
			if out != nil {
				t.Error("misaligned stitch returned labels")
			}
		})
	}
}

func TestApplyMissingBlock(t *testing.T) {
	coarse := make([]epoch.RawLabel, 10)
	windows := []nights.Window{window(0, 0, 4), window(3, 5, 9)}
	refined := map[int][]epoch.RawLabel{0: make([]epoch.RawLabel, 4)}

	_, err := Apply(coarse, windows, refined)
	if !errors.Is(err, ErrAlignment) {
		t.Errorf("Apply = %v, want ErrAlignment for missing block 3", err)
	}
}

func TestApplyNoWindows(t *testing.T) {
	coarse := []epoch.RawLabel{epoch.Wake, epoch.NREM}
	out, err := Apply(coarse, nil, nil)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	for i := range coarse {
		if out[i] != coarse[i] {
			t.Errorf("epoch %d changed with no windows", i)
		}
	}
}
