// Package model turns a labelled dataset into a trained winner classifier:
// it splits rows, selects features by importance and ranks candidate
// models by held-out micro-F1.
package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/ridingcast/internal/frame"
)

var (
	ErrUnlabelled   = errors.New("dataset has no labels")
	ErrNaN          = errors.New("dataset contains NaN")
	ErrNoCandidates = errors.New("no candidate models")
	ErrBadFraction  = errors.New("test fraction must be in (0, 1)")
	ErrLength       = errors.New("label slices differ in length")
)

// Classifier is anything that can be fitted to features and labels and then
// predict labels for new rows.
type Classifier interface {
	Fit(X mat.Matrix, y []string) error
	Predict(X mat.Matrix) ([]string, error)
}

// Importancer is a Classifier that ranks its input columns after fitting.
type Importancer interface {
	Classifier
	FeatureImportances() []float64
}

// Xy converts a labelled frame into a feature matrix and label slice.
func Xy(f *frame.Frame) (*mat.Dense, []string, error) {
	if !f.HasLabels() {
		return nil, nil, ErrUnlabelled
	}
	if f.HasNaN() {
		return nil, nil, ErrNaN
	}
	x, err := f.Matrix()
	if err != nil {
		return nil, nil, err
	}
	return x, f.Labels, nil
}

// Split shuffles the rows with a seeded source and puts the first
// ceil(n*testFraction) of them in the test frame, the rest in train.
func Split(f *frame.Frame, testFraction float64, seed int64) (train, test *frame.Frame, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("%w: %v", ErrBadFraction, testFraction)
	}
	n := f.Len()
	nTest := int(math.Ceil(float64(n) * testFraction))
	if nTest == 0 || nTest >= n {
		return nil, nil, fmt.Errorf("cannot split %d rows with test fraction %v", n, testFraction)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return f.Rows(perm[nTest:]), f.Rows(perm[:nTest]), nil
}
