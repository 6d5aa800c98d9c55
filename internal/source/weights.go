package source

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ridingcast/internal/normalize"
	"github.com/ridingcast/internal/redistrict"
)

// WeightColumns names the fields of a redistricting weights table.
type WeightColumns struct {
	NewID  string `yaml:"new_id"`
	OldID  string `yaml:"old_id"`
	Weight string `yaml:"weight"`
}

func DefaultWeightColumns() WeightColumns {
	return WeightColumns{NewID: "new_id", OldID: "old_id", Weight: "weight"}
}

// ReadWeights loads a long-format weights table, one row per
// (new district, old district) overlap. Repeated pairs are summed.
func ReadWeights(path string, cols WeightColumns, opts Options) (redistrict.Weights, error) {
	w := make(redistrict.Weights)
	line := 1
	err := Each(path, opts, func(row normalize.Row) error {
		line++
		newID := strings.TrimSpace(row[cols.NewID])
		oldID := strings.TrimSpace(row[cols.OldID])
		if newID == "" || oldID == "" {
			return fmt.Errorf("line %d: missing %s or %s", line, cols.NewID, cols.OldID)
		}
		weight, err := strconv.ParseFloat(strings.TrimSpace(row[cols.Weight]), 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid weight %q: %w", line, row[cols.Weight], err)
		}
		if w[newID] == nil {
			w[newID] = make(map[string]float64)
		}
		w[newID][oldID] += weight
		return nil
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}
