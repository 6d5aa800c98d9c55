package classify

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Ridge is a one-vs-rest ridge regression classifier. Targets are +1 for
// the class and -1 otherwise; the predicted class has the largest score.
type Ridge struct {
	Alpha float64

	enc       *encoder
	weights   *mat.Dense // features x classes
	intercept []float64
}

// NewRidge creates a ridge classifier with the given L2 penalty.
func NewRidge(alpha float64) *Ridge {
	return &Ridge{Alpha: alpha}
}

// Fit solves (XcᵀXc + αI) W = XcᵀYc on centred data.
func (r *Ridge) Fit(X mat.Matrix, y []string) error {
	n, d, err := checkFit(X, y)
	if err != nil {
		return err
	}
	r.enc = newEncoder(y)
	k := len(r.enc.classes)
	codes := r.enc.encode(y)

	xMean := make([]float64, d)
	for j := 0; j < d; j++ {
		for i := 0; i < n; i++ {
			xMean[j] += X.At(i, j)
		}
		xMean[j] /= float64(n)
	}
	xc := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			xc.Set(i, j, X.At(i, j)-xMean[j])
		}
	}

	yMean := make([]float64, k)
	yc := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		for c := 0; c < k; c++ {
			v := -1.0
			if codes[i] == c {
				v = 1
			}
			yc.Set(i, c, v)
			yMean[c] += v
		}
	}
	for c := range yMean {
		yMean[c] /= float64(n)
	}
	for i := 0; i < n; i++ {
		for c := 0; c < k; c++ {
			yc.Set(i, c, yc.At(i, c)-yMean[c])
		}
	}

	var gram mat.Dense
	gram.Mul(xc.T(), xc)
	for j := 0; j < d; j++ {
		gram.Set(j, j, gram.At(j, j)+r.Alpha)
	}
	var rhs mat.Dense
	rhs.Mul(xc.T(), yc)

	var w mat.Dense
	if err := w.Solve(&gram, &rhs); err != nil {
		return fmt.Errorf("failed to solve ridge system: %w", err)
	}

	r.intercept = make([]float64, k)
	for c := 0; c < k; c++ {
		b := yMean[c]
		for j := 0; j < d; j++ {
			b -= xMean[j] * w.At(j, c)
		}
		r.intercept[c] = b
	}
	r.weights = &w
	return nil
}

// Predict returns the class with the highest decision score per row.
func (r *Ridge) Predict(X mat.Matrix) ([]string, error) {
	want := 0
	if r.weights != nil {
		want, _ = r.weights.Dims()
	}
	n, err := checkPredict(X, r.weights != nil, want)
	if err != nil {
		return nil, err
	}
	var scores mat.Dense
	scores.Mul(X, r.weights)

	k := len(r.enc.classes)
	out := make([]string, n)
	row := make([]float64, k)
	for i := 0; i < n; i++ {
		for c := 0; c < k; c++ {
			row[c] = scores.At(i, c) + r.intercept[c]
		}
		out[i] = r.enc.classes[argmax(row)]
	}
	return out, nil
}
