package epoch

import "fmt"

// RawLabel is the per-epoch code emitted by the classifiers. The coarse
// detector emits NonWear, Wake or NREM; the refinement model additionally
// distinguishes REM.
type RawLabel int8

// Classifier label codes.
const (
	NonWear RawLabel = -1
	Wake    RawLabel = 0
	NREM    RawLabel = 1
	REM     RawLabel = 2
)

// Sleep reports whether the label counts as sleep for segmentation.
func (l RawLabel) Sleep() bool { return l == NREM || l == REM }

// binaryNames maps each label code to its sleep/wake display value.
var binaryNames = map[RawLabel]string{
	NonWear: "non-wear",
	Wake:    "wake",
	NREM:    "sleep",
	REM:     "sleep",
}

// stageNames maps each label code to its three-class stage display value.
var stageNames = map[RawLabel]string{
	NonWear: "non-wear",
	Wake:    "wake",
	NREM:    "nrem",
	REM:     "rem",
}

// BinaryName returns the sleep/wake display value for a label.
func (l RawLabel) BinaryName() string { return binaryNames[l] }

// StageName returns the three-class stage display value for a label.
func (l RawLabel) StageName() string { return stageNames[l] }

// Known reports whether the code is one the label tables cover.
func (l RawLabel) Known() bool {
	_, ok := binaryNames[l]
	return ok
}

// ValidateLabelTables checks that every known label code has an entry in both
// display tables. Called once at startup so an unmapped code fails loudly
// instead of rendering as an empty string.
func ValidateLabelTables() error {
	for _, l := range []RawLabel{NonWear, Wake, NREM, REM} {
		if _, ok := binaryNames[l]; !ok {
			return fmt.Errorf("label code %d missing from sleep/wake table", l)
		}
		if _, ok := stageNames[l]; !ok {
			return fmt.Errorf("label code %d missing from stage table", l)
		}
	}
	return nil
}
