package model

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// F1Micro is the micro-averaged F1 over all classes. For single-label
// predictions it equals accuracy. An empty input scores zero.
func F1Micro(y, yhat []string) (float64, error) {
	if len(y) != len(yhat) {
		return 0, fmt.Errorf("%w: %d and %d", ErrLength, len(y), len(yhat))
	}
	if len(y) == 0 {
		return 0, nil
	}
	tp := 0
	for i := range y {
		if y[i] == yhat[i] {
			tp++
		}
	}
	// micro precision and recall both reduce to tp/n
	return float64(tp) / float64(len(y)), nil
}

// ConfusionMatrix counts (true, predicted) pairs. Rows are true labels and
// columns predicted labels, both in the order of labels. Pairs naming a
// label outside the list are not counted. A nil labels list uses the sorted
// union of y and yhat, and the labels used are returned.
func ConfusionMatrix(labels, y, yhat []string) (*mat.Dense, []string, error) {
	if len(y) != len(yhat) {
		return nil, nil, fmt.Errorf("%w: %d and %d", ErrLength, len(y), len(yhat))
	}
	if labels == nil {
		labels = unionLabels(y, yhat)
	}
	if len(labels) == 0 {
		return nil, nil, fmt.Errorf("no labels to build a confusion matrix")
	}
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	cm := mat.NewDense(len(labels), len(labels), nil)
	for i := range y {
		r, ok := index[y[i]]
		if !ok {
			continue
		}
		c, ok := index[yhat[i]]
		if !ok {
			continue
		}
		cm.Set(r, c, cm.At(r, c)+1)
	}
	return cm, labels, nil
}

func unionLabels(sets ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, set := range sets {
		for _, l := range set {
			if !seen[l] {
				seen[l] = true
				out = append(out, l)
			}
		}
	}
	sort.Strings(out)
	return out
}
