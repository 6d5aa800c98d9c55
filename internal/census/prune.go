package census

import (
	"math"

	"github.com/ridingcast/internal/frame"
)

// DefaultZeroThreshold is the zero-fraction above which a census column is
// considered too sparse to use.
const DefaultZeroThreshold = 0.25

// FieldsToDrop lists columns whose share of zero values (among non-NaN
// values) exceeds zeroThresh, or that contain the missing sentinel at all.
// Column order is preserved.
func FieldsToDrop(f *frame.Frame, zeroThresh, missing float64) []string {
	var fields []string
	for j, col := range f.Columns {
		zeros, present := 0, 0
		hasMissing := false
		for _, row := range f.Data {
			v := row[j]
			if math.IsNaN(v) {
				continue
			}
			present++
			if v == 0 {
				zeros++
			}
			if v == missing {
				hasMissing = true
			}
		}
		if hasMissing {
			fields = append(fields, col)
			continue
		}
		if present > 0 && float64(zeros)/float64(present) > zeroThresh {
			fields = append(fields, col)
		}
	}
	return fields
}

// Prune drops the columns selected by FieldsToDrop and returns the reduced
// frame together with the dropped names.
func Prune(f *frame.Frame, zeroThresh, missing float64) (*frame.Frame, []string) {
	drop := FieldsToDrop(f, zeroThresh, missing)
	return f.Drop(drop), drop
}
