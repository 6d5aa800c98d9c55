package classify

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// KNN votes among the K nearest training rows by euclidean distance. A tied
// vote goes to the class that reached the winning count first, scanning
// from the nearest neighbour outwards.
type KNN struct {
	K int

	enc   *encoder
	rows  [][]float64
	codes []int
}

// NewKNN creates a nearest-neighbour classifier; k below one means one.
func NewKNN(k int) *KNN {
	if k < 1 {
		k = 1
	}
	return &KNN{K: k}
}

func (m *KNN) Fit(X mat.Matrix, y []string) error {
	if _, _, err := checkFit(X, y); err != nil {
		return err
	}
	m.enc = newEncoder(y)
	m.codes = m.enc.encode(y)
	m.rows = denseRows(X)
	return nil
}

func (m *KNN) Predict(X mat.Matrix) ([]string, error) {
	want := 0
	if len(m.rows) > 0 {
		want = len(m.rows[0])
	}
	n, err := checkPredict(X, m.rows != nil, want)
	if err != nil {
		return nil, err
	}

	k := m.K
	if k > len(m.rows) {
		k = len(m.rows)
	}
	order := make([]int, len(m.rows))
	dist := make([]float64, len(m.rows))
	votes := make([]int, len(m.enc.classes))
	out := make([]string, n)

	for i, row := range denseRows(X) {
		for j, train := range m.rows {
			order[j] = j
			dist[j] = floats.Distance(row, train, 2)
		}
		sort.SliceStable(order, func(a, b int) bool { return dist[order[a]] < dist[order[b]] })

		for c := range votes {
			votes[c] = 0
		}
		best := -1
		for _, j := range order[:k] {
			c := m.codes[j]
			votes[c]++
			if best < 0 || votes[c] > votes[best] {
				best = c
			}
		}
		out[i] = m.enc.classes[best]
	}
	return out, nil
}
