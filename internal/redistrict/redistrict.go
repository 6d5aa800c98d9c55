package redistrict

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ridingcast/internal/frame"
)

// ErrUnknownDistrict matches any UnknownDistrictError.
var ErrUnknownDistrict = errors.New("unknown source district")

// UnknownDistrictError names a weight entry whose old district has no row.
type UnknownDistrictError struct {
	NewID string
	OldID string
}

func (e *UnknownDistrictError) Error() string {
	return fmt.Sprintf("%s %q (referenced by new district %q)", ErrUnknownDistrict, e.OldID, e.NewID)
}

func (e *UnknownDistrictError) Is(target error) bool {
	return target == ErrUnknownDistrict
}

// Weights maps new district id to old district id to the fraction of the
// old district attributed to the new one.
type Weights map[string]map[string]float64

// NewIDs returns the new district ids, sorted.
func (w Weights) NewIDs() []string {
	ids := make([]string, 0, len(w))
	for id := range w {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Outgoing sums each old district's weight across all new districts.
func (w Weights) Outgoing() map[string]float64 {
	out := make(map[string]float64)
	for _, olds := range w {
		for oldID, weight := range olds {
			out[oldID] += weight
		}
	}
	return out
}

// NormalizeWeights rescales weights so every old district's outgoing
// weights sum to one. Old districts with no weight are left out.
func NormalizeWeights(w Weights) Weights {
	totals := w.Outgoing()
	out := make(Weights, len(w))
	for newID, olds := range w {
		m := make(map[string]float64, len(olds))
		for oldID, weight := range olds {
			if totals[oldID] == 0 {
				continue
			}
			m[oldID] = weight / totals[oldID]
		}
		out[newID] = m
	}
	return out
}

// Project re-keys f onto new districts. Each new row is the weighted sum of
// the contributing old rows over every numeric column. Rows are ordered by
// new id and carry no labels. An old id in w with no row in f is an error.
func Project(f *frame.Frame, w Weights) (*frame.Frame, error) {
	index := make(map[string]int, f.Len())
	for i, id := range f.IDs {
		if _, dup := index[id]; dup {
			return nil, fmt.Errorf("district %q appears more than once in source frame", id)
		}
		index[id] = i
	}

	out := frame.New(f.Columns)
	for _, newID := range w.NewIDs() {
		olds := w[newID]
		oldIDs := make([]string, 0, len(olds))
		for oldID := range olds {
			oldIDs = append(oldIDs, oldID)
		}
		sort.Strings(oldIDs)

		row := make([]float64, len(f.Columns))
		for _, oldID := range oldIDs {
			i, ok := index[oldID]
			if !ok {
				return nil, &UnknownDistrictError{NewID: newID, OldID: oldID}
			}
			weight := olds[oldID]
			for j, v := range f.Data[i] {
				row[j] += weight * v
			}
		}
		out.Append(newID, row)
	}
	return out, nil
}
