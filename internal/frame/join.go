package frame

import (
	"fmt"
)

// InnerJoin joins two frames on district id. Rows keep the left frame's
// order; a left row matching several right rows yields one row per match.
// Ids present on only one side are dropped. Labels come from the left frame
// when it has them, otherwise from the right.
func InnerJoin(left, right *Frame) (*Frame, error) {
	seen := make(map[string]bool, len(left.Columns))
	for _, c := range left.Columns {
		seen[c] = true
	}
	for _, c := range right.Columns {
		if seen[c] {
			return nil, fmt.Errorf("%w: %s appears on both sides of join", ErrColumnMismatch, c)
		}
	}

	index := make(map[string][]int, right.Len())
	for i, id := range right.IDs {
		index[id] = append(index[id], i)
	}

	columns := append(append([]string(nil), left.Columns...), right.Columns...)
	out := New(columns)
	labelled := left.HasLabels() || right.HasLabels()
	if labelled {
		out.Labels = []string{}
	}

	for i, id := range left.IDs {
		for _, j := range index[id] {
			row := make([]float64, 0, len(columns))
			row = append(row, left.Data[i]...)
			row = append(row, right.Data[j]...)
			if !labelled {
				out.Append(id, row)
				continue
			}
			label := ""
			if left.HasLabels() {
				label = left.Labels[i]
			} else {
				label = right.Labels[j]
			}
			out.AppendLabelled(id, row, label)
		}
	}
	return out, nil
}

// Concat stacks frames with identical columns row-wise.
func Concat(frames ...*Frame) (*Frame, error) {
	if len(frames) == 0 {
		return nil, ErrEmpty
	}
	first := frames[0]
	out := New(first.Columns)
	labelled := false
	for _, f := range frames {
		if f.HasLabels() {
			labelled = true
		}
	}
	if labelled {
		out.Labels = []string{}
	}

	for n, f := range frames {
		if !sameColumns(first.Columns, f.Columns) {
			return nil, fmt.Errorf("%w: frame %d has columns %v, want %v", ErrColumnMismatch, n, f.Columns, first.Columns)
		}
		for i, id := range f.IDs {
			if labelled {
				label := ""
				if f.HasLabels() {
					label = f.Labels[i]
				}
				out.AppendLabelled(id, f.Data[i], label)
			} else {
				out.Append(id, f.Data[i])
			}
		}
	}
	return out, nil
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
