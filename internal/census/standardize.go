package census

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ridingcast/internal/frame"
)

// Scaler holds per-column means and population standard deviations.
type Scaler struct {
	Columns []string
	Mean    []float64
	Std     []float64
}

// FitScaler computes column statistics ignoring NaN cells.
func FitScaler(f *frame.Frame) *Scaler {
	s := &Scaler{
		Columns: append([]string(nil), f.Columns...),
		Mean:    make([]float64, len(f.Columns)),
		Std:     make([]float64, len(f.Columns)),
	}
	for j := range f.Columns {
		values := make([]float64, 0, f.Len())
		for _, row := range f.Data {
			if !math.IsNaN(row[j]) {
				values = append(values, row[j])
			}
		}
		if len(values) == 0 {
			continue
		}
		s.Mean[j], s.Std[j] = stat.PopMeanStdDev(values, nil)
	}
	return s
}

// Transform mean-imputes NaN cells and z-scores every column. Columns with
// zero variance become 0.
func (s *Scaler) Transform(f *frame.Frame) (*frame.Frame, error) {
	aligned, err := f.Select(s.Columns)
	if err != nil {
		return nil, err
	}
	for _, row := range aligned.Data {
		for j, v := range row {
			if math.IsNaN(v) {
				v = s.Mean[j]
			}
			if s.Std[j] > 0 {
				row[j] = (v - s.Mean[j]) / s.Std[j]
			} else {
				row[j] = v - s.Mean[j]
			}
		}
	}
	return aligned, nil
}

// Standardize fits a scaler on f and applies it.
func Standardize(f *frame.Frame) (*frame.Frame, *Scaler, error) {
	s := FitScaler(f)
	out, err := s.Transform(f)
	if err != nil {
		return nil, nil, err
	}
	return out, s, nil
}
