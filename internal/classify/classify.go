// Package classify provides the winner classifiers compared by the model
// harness. All of them fit on a dense feature matrix and string labels.
package classify

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrNotFitted     = errors.New("classifier has not been fitted")
	ErrShape         = errors.New("feature and label counts differ")
	ErrFeatureCount  = errors.New("feature count differs from training data")
	ErrUnknownModel  = errors.New("unknown model")
	ErrTooFewClasses = errors.New("need at least one labelled row")
	ErrNoFeatures    = errors.New("no feature columns")
)

// Estimator is the fit/predict capability.
type Estimator interface {
	Fit(X mat.Matrix, y []string) error
	Predict(X mat.Matrix) ([]string, error)
}

// encoder maps labels to dense indices in sorted order.
type encoder struct {
	classes []string
	index   map[string]int
}

func newEncoder(y []string) *encoder {
	seen := make(map[string]bool)
	for _, label := range y {
		seen[label] = true
	}
	classes := make([]string, 0, len(seen))
	for label := range seen {
		classes = append(classes, label)
	}
	sort.Strings(classes)
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	return &encoder{classes: classes, index: index}
}

func (e *encoder) encode(y []string) []int {
	out := make([]int, len(y))
	for i, label := range y {
		out[i] = e.index[label]
	}
	return out
}

func checkFit(X mat.Matrix, y []string) (rows, cols int, err error) {
	rows, cols = X.Dims()
	if rows != len(y) {
		return 0, 0, fmt.Errorf("%w: %d rows, %d labels", ErrShape, rows, len(y))
	}
	if rows == 0 {
		return 0, 0, ErrTooFewClasses
	}
	return rows, cols, nil
}

func checkPredict(X mat.Matrix, fitted bool, want int) (rows int, err error) {
	if !fitted {
		return 0, ErrNotFitted
	}
	rows, cols := X.Dims()
	if cols != want {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrFeatureCount, cols, want)
	}
	return rows, nil
}

// argmax returns the index of the largest value; ties go to the lowest index.
func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// Names lists the registered model names.
func Names() []string {
	return []string{"ridge", "logit", "rf", "knn"}
}

// New builds a classifier by name with default hyper-parameters. Seed feeds
// the models that use randomness.
func New(name string, seed int64) (Estimator, error) {
	switch name {
	case "ridge":
		return NewRidge(1.0), nil
	case "logit":
		return NewLogistic(LogisticParams{}), nil
	case "rf":
		return NewRandomForest(ForestParams{Trees: 100, MinImpurityDecrease: 0.001, Seed: seed}), nil
	case "knn":
		return NewKNN(5), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
}
