package census

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridingcast/internal/frame"
)

const missing = -999

func pruneFixture() *frame.Frame {
	f := frame.New([]string{"1", "2", "3", "4"})
	f.Append("a", []float64{10, 0, 5, 1})
	f.Append("b", []float64{20, 0, missing, 0})
	f.Append("c", []float64{30, 7, 6, 2})
	f.Append("d", []float64{40, 0, 7, 3})
	return f
}

func TestFieldsToDrop(t *testing.T) {
	tests := []struct {
		name   string
		thresh float64
		want   []string
	}{
		// column 4 is 25% zeros, which does not exceed 0.25
		{"default threshold", DefaultZeroThreshold, []string{"2", "3"}},
		{"strict threshold", 0.2, []string{"2", "3", "4"}},
		{"lenient threshold", 0.9, []string{"3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FieldsToDrop(pruneFixture(), tt.thresh, missing))
		})
	}
}

func TestFieldsToDropIgnoresNaNInZeroFraction(t *testing.T) {
	f := frame.New([]string{"1"})
	f.Append("a", []float64{0})
	f.Append("b", []float64{math.NaN()})
	f.Append("c", []float64{math.NaN()})
	f.Append("d", []float64{5})
	f.Append("e", []float64{6})
	f.Append("g", []float64{7})
	// 1 zero out of 4 present values
	assert.Empty(t, FieldsToDrop(f, 0.25, missing))
}

func TestPruneIsIdempotent(t *testing.T) {
	once, dropped := Prune(pruneFixture(), DefaultZeroThreshold, missing)
	assert.Equal(t, []string{"2", "3"}, dropped)
	assert.Equal(t, []string{"1", "4"}, once.Columns)

	twice, droppedAgain := Prune(once, DefaultZeroThreshold, missing)
	assert.Empty(t, droppedAgain)
	assert.Equal(t, once.Columns, twice.Columns)
}

func TestDatasetToFrame(t *testing.T) {
	d := &Dataset{
		Records: []Record{
			{DistrictID: "35001", Characteristics: map[int]float64{1: 100, 8: 3}},
			{DistrictID: "35002", Characteristics: map[int]float64{1: 200}},
		},
		Characteristics: map[int]string{1: "Population, 2021", 8: "Total private dwellings"},
	}
	f := d.ToFrame()
	assert.Equal(t, []string{"1", "8"}, f.Columns)
	assert.Equal(t, []string{"35001", "35002"}, f.IDs)
	assert.True(t, math.IsNaN(f.Data[1][1]))
}

func TestStandardize(t *testing.T) {
	f := frame.New([]string{"1", "2"})
	f.Append("a", []float64{1, 5})
	f.Append("b", []float64{3, 5})
	f.Append("c", []float64{math.NaN(), 5})

	out, scaler, err := Standardize(f)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, scaler.Mean[0], 1e-12)
	assert.InDelta(t, 1.0, scaler.Std[0], 1e-12)

	assert.InDelta(t, -1.0, out.Data[0][0], 1e-12)
	assert.InDelta(t, 1.0, out.Data[1][0], 1e-12)
	// imputed with the mean
	assert.InDelta(t, 0.0, out.Data[2][0], 1e-12)
	// zero-variance column
	assert.Equal(t, 0.0, out.Data[0][1])
	// input untouched
	assert.True(t, math.IsNaN(f.Data[2][0]))
}
