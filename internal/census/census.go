package census

import (
	"math"
	"sort"
	"strconv"

	"github.com/ridingcast/internal/frame"
)

// Record holds one district's census characteristics.
type Record struct {
	DistrictID      string
	GUID            string
	Name            string
	Characteristics map[int]float64
}

// Dataset is the normalized census source: one record per district in
// first-seen order, plus the first-seen name of every characteristic.
type Dataset struct {
	Records         []Record
	Characteristics map[int]string
}

// Names returns district id to name.
func (d *Dataset) Names() map[string]string {
	out := make(map[string]string, len(d.Records))
	for _, r := range d.Records {
		out[r.DistrictID] = r.Name
	}
	return out
}

// CharacteristicIDs returns every characteristic id seen, ascending.
func (d *Dataset) CharacteristicIDs() []int {
	seen := make(map[int]bool)
	for id := range d.Characteristics {
		seen[id] = true
	}
	for _, r := range d.Records {
		for id := range r.Characteristics {
			seen[id] = true
		}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// ToFrame lays the records out as a frame keyed by district id. Columns are
// characteristic ids in ascending order; a characteristic absent for a
// district is NaN.
func (d *Dataset) ToFrame() *frame.Frame {
	ids := d.CharacteristicIDs()
	cols := make([]string, len(ids))
	for i, id := range ids {
		cols[i] = strconv.Itoa(id)
	}

	f := frame.New(cols)
	for _, r := range d.Records {
		row := make([]float64, len(ids))
		for i, id := range ids {
			if v, ok := r.Characteristics[id]; ok {
				row[i] = v
			} else {
				row[i] = math.NaN()
			}
		}
		f.Append(r.DistrictID, row)
	}
	return f
}
