package party

import (
	"fmt"
	"math"
	"strings"
)

// Code identifies a party category in the fixed schema.
type Code string

const (
	LIB Code = "LIB"
	CON Code = "CON"
	NDP Code = "NDP"
	GRN Code = "GRN"
	BQ  Code = "BQ"
	OTH Code = "OTH"
)

// Named are the explicitly modelled parties, in schema order.
var Named = []Code{LIB, CON, NDP, GRN, BQ}

// All is the full schema, OTH last.
var All = []Code{LIB, CON, NDP, GRN, BQ, OTH}

type matcher struct {
	code      Code
	substring string
}

// Evaluated in order; the first containment match wins.
var matchers = []matcher{
	{LIB, "Liberal"},
	{CON, "Conservative"},
	{NDP, "New Democratic Party"},
	{GRN, "Green Party"},
	{BQ, "Bloc Québécois"},
}

// Parse maps a candidate or party label to its code. Labels that match no
// known party fall into OTH.
func Parse(name string) Code {
	for _, m := range matchers {
		if strings.Contains(name, m.substring) {
			return m.code
		}
	}
	return OTH
}

// Columns returns the schema codes as column names.
func Columns() []string {
	cols := make([]string, len(All))
	for i, c := range All {
		cols[i] = string(c)
	}
	return cols
}

// Shares maps party codes to vote fractions.
type Shares map[Code]float64

// NewShares returns a zeroed share vector over the full schema.
func NewShares() Shares {
	s := make(Shares, len(All))
	for _, c := range All {
		s[c] = 0
	}
	return s
}

// Clone returns an independent copy.
func (s Shares) Clone() Shares {
	out := make(Shares, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Sum adds every share.
func (s Shares) Sum() float64 {
	total := 0.0
	for _, v := range s {
		total += v
	}
	return total
}

// Factors converts the shares into a column-keyed factor vector.
func (s Shares) Factors() map[string]float64 {
	out := make(map[string]float64, len(s))
	for k, v := range s {
		out[string(k)] = v
	}
	return out
}

// Validate checks that every schema code is present and the total is close
// to one.
func (s Shares) Validate(tolerance float64) error {
	for _, c := range All {
		if _, ok := s[c]; !ok {
			return fmt.Errorf("missing share for %s", c)
		}
	}
	if total := s.Sum(); math.Abs(total-1) > tolerance {
		return fmt.Errorf("shares sum to %.4f, want 1.0 ± %.4f", total, tolerance)
	}
	return nil
}
