// Package scale rescales district vote-share frames by per-party factor
// vectors and recomputes the OTH residual. Every function returns a new
// frame; inputs are never modified.
package scale

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ridingcast/internal/frame"
	"github.com/ridingcast/internal/party"
)

var (
	ErrFactorMismatch = errors.New("scaling factors do not match columns")
	ErrZeroFactor     = errors.New("zero scaling factor")
)

// Op selects the element-wise operation.
type Op int

const (
	Multiply Op = iota + 1
	Divide
)

func (op Op) String() string {
	switch op {
	case Multiply:
		return "multiply"
	case Divide:
		return "divide"
	default:
		return fmt.Sprintf("Op(%d)", int(op))
	}
}

// Frame multiplies or divides every numeric column of f by the factor with
// the same name. The factor keys must be exactly the frame's columns.
// District ids and labels are carried through unchanged. Dividing a zero
// cell by a zero factor gives zero; any other cell over a zero factor is
// ErrZeroFactor.
func Frame(f *frame.Frame, factors map[string]float64, op Op) (*frame.Frame, error) {
	if op != Multiply && op != Divide {
		return nil, fmt.Errorf("unexpected scaling operation %v", op)
	}
	if err := checkFactors(f.Columns, factors); err != nil {
		return nil, err
	}

	vec := make([]float64, len(f.Columns))
	for j, col := range f.Columns {
		vec[j] = factors[col]
	}

	out := f.Clone()
	for i, row := range out.Data {
		for j := range row {
			switch {
			case op == Multiply:
				row[j] *= vec[j]
			case vec[j] != 0:
				row[j] /= vec[j]
			case row[j] != 0:
				return nil, fmt.Errorf("%w: %s (district %s)", ErrZeroFactor, f.Columns[j], out.IDs[i])
			}
			// a zero share over a zero factor stays zero
		}
	}
	return out, nil
}

// Shares is Frame with a party share vector as the factors.
func Shares(f *frame.Frame, factors party.Shares, op Op) (*frame.Frame, error) {
	return Frame(f, factors.Factors(), op)
}

func checkFactors(columns []string, factors map[string]float64) error {
	want := make(map[string]bool, len(columns))
	for _, c := range columns {
		want[c] = true
		if _, ok := factors[c]; !ok {
			return fmt.Errorf("%w: no factor for column %s", ErrFactorMismatch, c)
		}
	}
	var extra []string
	for k := range factors {
		if !want[k] {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return fmt.Errorf("%w: no column for factor %v", ErrFactorMismatch, extra)
	}
	return nil
}

// FixOther recomputes OTH as max(0, 1 - LIB - CON - NDP - GRN - BQ),
// discarding any previous OTH value. When scaling has pushed the named
// parties above 1.0 the total is left above 1.0. OTH is appended as the
// last column if the frame did not have one.
func FixOther(f *frame.Frame) (*frame.Frame, error) {
	named := make([]int, len(party.Named))
	for i, c := range party.Named {
		j := f.ColumnIndex(string(c))
		if j < 0 {
			return nil, fmt.Errorf("%w: frame has no %s column", ErrFactorMismatch, c)
		}
		named[i] = j
	}

	out := f.Clone()
	oth := out.ColumnIndex(string(party.OTH))
	if oth < 0 {
		out.Columns = append(out.Columns, string(party.OTH))
		for i := range out.Data {
			out.Data[i] = append(out.Data[i], 0)
		}
		oth = len(out.Columns) - 1
	}

	for _, row := range out.Data {
		rest := 1.0
		for _, j := range named {
			rest -= row[j]
		}
		row[oth] = math.Max(0, rest)
	}
	return out, nil
}
