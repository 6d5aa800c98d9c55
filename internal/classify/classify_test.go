package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// clusters returns three well separated groups in the unit square.
func clusters() (*mat.Dense, []string) {
	pts := [][]float64{
		{0.00, 0.00}, {0.04, 0.02}, {0.02, 0.06}, {-0.02, 0.04},
		{1.00, 0.00}, {1.04, 0.02}, {0.98, -0.04}, {1.02, 0.06},
		{0.00, 1.00}, {0.02, 1.04}, {-0.04, 0.98}, {0.06, 1.02},
	}
	labels := []string{
		"LIB", "LIB", "LIB", "LIB",
		"CON", "CON", "CON", "CON",
		"NDP", "NDP", "NDP", "NDP",
	}
	x := mat.NewDense(len(pts), 2, nil)
	for i, p := range pts {
		x.SetRow(i, p)
	}
	return x, labels
}

func probes() *mat.Dense {
	return mat.NewDense(3, 2, []float64{
		0.01, 0.01,
		1.00, 0.02,
		0.02, 1.00,
	})
}

func TestClassifiersSeparateClusters(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			est, err := New(name, 7)
			require.NoError(t, err)

			x, y := clusters()
			require.NoError(t, est.Fit(x, y))

			got, err := est.Predict(probes())
			require.NoError(t, err)
			assert.Equal(t, []string{"LIB", "CON", "NDP"}, got)

			train, err := est.Predict(x)
			require.NoError(t, err)
			assert.Equal(t, y, train)
		})
	}
}

func TestClassifierErrors(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			est, err := New(name, 1)
			require.NoError(t, err)

			_, err = est.Predict(probes())
			assert.ErrorIs(t, err, ErrNotFitted)

			x, y := clusters()
			assert.ErrorIs(t, est.Fit(x, y[:3]), ErrShape)

			require.NoError(t, est.Fit(x, y))
			_, err = est.Predict(mat.NewDense(1, 3, nil))
			assert.ErrorIs(t, err, ErrFeatureCount)
		})
	}
}

func TestUnknownModel(t *testing.T) {
	_, err := New("svm", 1)
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestForestImportances(t *testing.T) {
	// only the first column carries signal; the second is constant
	x := mat.NewDense(8, 2, []float64{
		0, 3,
		1, 3,
		2, 3,
		3, 3,
		10, 3,
		11, 3,
		12, 3,
		13, 3,
	})
	y := []string{"A", "A", "A", "A", "B", "B", "B", "B"}

	rf := NewRandomForest(ForestParams{Trees: 20, MaxFeatures: 2, Seed: 42})
	require.NoError(t, rf.Fit(x, y))

	imp := rf.FeatureImportances()
	require.Len(t, imp, 2)
	assert.InDelta(t, 1.0, floats.Sum(imp), 1e-12)
	assert.Equal(t, 0.0, imp[1])
	assert.InDelta(t, 1.0, imp[0], 1e-12)
}

func TestForestDeterministicForSeed(t *testing.T) {
	x, y := clusters()

	a := NewRandomForest(ForestParams{Trees: 15, Seed: 3})
	b := NewRandomForest(ForestParams{Trees: 15, Seed: 3})
	require.NoError(t, a.Fit(x, y))
	require.NoError(t, b.Fit(x, y))

	assert.Equal(t, a.FeatureImportances(), b.FeatureImportances())
}

func TestForestMinImpurityDecrease(t *testing.T) {
	x, y := clusters()

	// no split can reduce weighted gini by more than the parent impurity
	rf := NewRandomForest(ForestParams{Trees: 5, MinImpurityDecrease: 1, Seed: 1})
	require.NoError(t, rf.Fit(x, y))
	for _, tr := range rf.trees {
		assert.Len(t, tr.nodes, 1)
	}
	assert.Equal(t, []float64{0, 0}, rf.FeatureImportances())
}

func TestKNNTieGoesToNearest(t *testing.T) {
	x := mat.NewDense(4, 1, []float64{0, 1, 3, 4})
	y := []string{"A", "B", "B", "A"}
	knn := NewKNN(2)
	require.NoError(t, knn.Fit(x, y))

	got, err := knn.Predict(mat.NewDense(2, 1, []float64{0.4, 3.4}))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, got)
}
