// Package frame holds the district-keyed numeric tables passed between
// pipeline stages. A Frame is built once and then treated as read-only:
// every transform returns a new Frame.
package frame

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrUnknownColumn  = errors.New("unknown column")
	ErrColumnMismatch = errors.New("column mismatch")
	ErrEmpty          = errors.New("frame has no rows")
)

// Frame is a row-major table of numeric columns keyed by district id, with
// an optional categorical label per row.
type Frame struct {
	IDs     []string
	Columns []string
	Data    [][]float64
	Labels  []string // nil when the frame is unlabelled
}

// New creates an empty frame with the given numeric columns.
func New(columns []string) *Frame {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Frame{Columns: cols}
}

// NewLabelled creates an empty frame that carries a label per row.
func NewLabelled(columns []string) *Frame {
	f := New(columns)
	f.Labels = []string{}
	return f
}

// Append adds a row. The values slice is copied.
func (f *Frame) Append(id string, values []float64) {
	f.appendRow(id, values)
	if f.Labels != nil {
		f.Labels = append(f.Labels, "")
	}
}

// AppendLabelled adds a row with its label. The frame becomes labelled if it
// was not already.
func (f *Frame) AppendLabelled(id string, values []float64, label string) {
	if f.Labels == nil {
		f.Labels = make([]string, len(f.IDs))
	}
	f.appendRow(id, values)
	f.Labels = append(f.Labels, label)
}

func (f *Frame) appendRow(id string, values []float64) {
	if len(values) != len(f.Columns) {
		panic(fmt.Sprintf("frame: row %q has %d values, want %d", id, len(values), len(f.Columns)))
	}
	row := make([]float64, len(values))
	copy(row, values)
	f.IDs = append(f.IDs, id)
	f.Data = append(f.Data, row)
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.IDs) }

// HasLabels reports whether rows carry labels.
func (f *Frame) HasLabels() bool { return f.Labels != nil }

// ColumnIndex returns the position of a column or -1.
func (f *Frame) ColumnIndex(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of one column's values.
func (f *Frame) Column(name string) ([]float64, error) {
	j := f.ColumnIndex(name)
	if j < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	out := make([]float64, len(f.Data))
	for i, row := range f.Data {
		out[i] = row[j]
	}
	return out, nil
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	out := &Frame{
		IDs:     append([]string(nil), f.IDs...),
		Columns: append([]string(nil), f.Columns...),
		Data:    make([][]float64, len(f.Data)),
	}
	for i, row := range f.Data {
		out.Data[i] = append([]float64(nil), row...)
	}
	if f.Labels != nil {
		out.Labels = append([]string{}, f.Labels...)
	}
	return out
}

// Select returns a frame restricted to the named columns, in the given order.
func (f *Frame) Select(columns []string) (*Frame, error) {
	idx := make([]int, len(columns))
	for k, name := range columns {
		j := f.ColumnIndex(name)
		if j < 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
		}
		idx[k] = j
	}
	out := &Frame{
		IDs:     append([]string(nil), f.IDs...),
		Columns: append([]string(nil), columns...),
		Data:    make([][]float64, len(f.Data)),
	}
	for i, row := range f.Data {
		sel := make([]float64, len(idx))
		for k, j := range idx {
			sel[k] = row[j]
		}
		out.Data[i] = sel
	}
	if f.Labels != nil {
		out.Labels = append([]string{}, f.Labels...)
	}
	return out, nil
}

// Drop returns a frame without the named columns. Unknown names are ignored.
func (f *Frame) Drop(columns []string) *Frame {
	drop := make(map[string]bool, len(columns))
	for _, c := range columns {
		drop[c] = true
	}
	keep := make([]string, 0, len(f.Columns))
	for _, c := range f.Columns {
		if !drop[c] {
			keep = append(keep, c)
		}
	}
	out, _ := f.Select(keep)
	return out
}

// WithoutLabels returns a copy with labels removed.
func (f *Frame) WithoutLabels() *Frame {
	out := f.Clone()
	out.Labels = nil
	return out
}

// Rows returns a frame made of the given row positions, in that order.
func (f *Frame) Rows(positions []int) *Frame {
	out := &Frame{
		IDs:     make([]string, len(positions)),
		Columns: append([]string(nil), f.Columns...),
		Data:    make([][]float64, len(positions)),
	}
	if f.Labels != nil {
		out.Labels = make([]string, len(positions))
	}
	for k, i := range positions {
		out.IDs[k] = f.IDs[i]
		out.Data[k] = append([]float64(nil), f.Data[i]...)
		if f.Labels != nil {
			out.Labels[k] = f.Labels[i]
		}
	}
	return out
}

// Matrix copies the numeric data into a dense matrix.
func (f *Frame) Matrix() (*mat.Dense, error) {
	if f.Len() == 0 || len(f.Columns) == 0 {
		return nil, ErrEmpty
	}
	m := mat.NewDense(f.Len(), len(f.Columns), nil)
	for i, row := range f.Data {
		m.SetRow(i, row)
	}
	return m, nil
}

// HasNaN reports whether any cell is NaN.
func (f *Frame) HasNaN() bool {
	for _, row := range f.Data {
		for _, v := range row {
			if math.IsNaN(v) {
				return true
			}
		}
	}
	return false
}
