package redistrict

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridingcast/internal/frame"
)

func oldFrame() *frame.Frame {
	f := frame.NewLabelled([]string{"LIB", "pop"})
	f.AppendLabelled("o1", []float64{0.5, 100}, "LIB")
	f.AppendLabelled("o2", []float64{0.2, 300}, "CON")
	f.AppendLabelled("o3", []float64{0.8, 50}, "LIB")
	return f
}

func TestProject(t *testing.T) {
	w := Weights{
		"n2": {"o2": 0.5, "o3": 1.0},
		"n1": {"o1": 1.0, "o2": 0.5},
	}
	out, err := Project(oldFrame(), w)
	require.NoError(t, err)

	assert.Equal(t, []string{"n1", "n2"}, out.IDs)
	assert.False(t, out.HasLabels())
	assert.InDeltaSlice(t, []float64{0.6, 250}, out.Data[0], 1e-12)
	assert.InDeltaSlice(t, []float64{0.9, 200}, out.Data[1], 1e-12)
}

func TestProjectPreservesMass(t *testing.T) {
	w := Weights{
		"n1": {"o1": 0.7, "o2": 0.25},
		"n2": {"o1": 0.3, "o2": 0.25, "o3": 0.4},
		"n3": {"o2": 0.5, "o3": 0.6},
	}
	for oldID, total := range w.Outgoing() {
		require.InDelta(t, 1.0, total, 1e-12, oldID)
	}

	src := oldFrame()
	out, err := Project(src, w)
	require.NoError(t, err)

	for _, col := range src.Columns {
		before, _ := src.Column(col)
		after, _ := out.Column(col)
		var sb, sa float64
		for _, v := range before {
			sb += v
		}
		for _, v := range after {
			sa += v
		}
		assert.InDelta(t, sb, sa, 1e-9, col)
	}
}

func TestProjectUnknownDistrict(t *testing.T) {
	w := Weights{"n1": {"o1": 1, "ghost": 0.5}}
	_, err := Project(oldFrame(), w)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownDistrict))
	var ude *UnknownDistrictError
	require.True(t, errors.As(err, &ude))
	assert.Equal(t, "ghost", ude.OldID)
	assert.Equal(t, "n1", ude.NewID)
}

func TestNormalizeWeights(t *testing.T) {
	w := Weights{
		"n1": {"o1": 2, "o2": 1},
		"n2": {"o1": 2, "o3": 0},
	}
	norm := NormalizeWeights(w)
	assert.InDelta(t, 0.5, norm["n1"]["o1"], 1e-12)
	assert.InDelta(t, 1.0, norm["n1"]["o2"], 1e-12)
	assert.InDelta(t, 0.5, norm["n2"]["o1"], 1e-12)
	_, kept := norm["n2"]["o3"]
	assert.False(t, kept)
	// input untouched
	assert.Equal(t, 2.0, w["n1"]["o1"])
}
