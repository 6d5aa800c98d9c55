// Package merge assembles the cross-year training table: every year's
// district results are re-projected onto every target year's national
// climate and paired with that year's winners and the census features.
package merge

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ridingcast/internal/debug"
	"github.com/ridingcast/internal/frame"
	"github.com/ridingcast/internal/party"
	"github.com/ridingcast/internal/scale"
)

// ErrEmptyDataset is returned when joins leave no rows to train on.
var ErrEmptyDataset = errors.New("merged dataset is empty")

// Inputs are the normalized tables for every election year.
type Inputs struct {
	Census   *frame.Frame         // keyed by district id, unlabelled
	Results  map[int]*frame.Frame // party share columns, winner labels
	National map[int]party.Shares
}

// Options controls which year pairs are generated.
type Options struct {
	// SelfPairing includes each target year as its own source year. This
	// maximizes rows but lets a year's own shares predict its winners.
	SelfPairing bool
	LocalDebug  bool
}

// DefaultOptions pairs every year with every year, itself included.
func DefaultOptions() Options {
	return Options{SelfPairing: true}
}

// PairGroup describes the rows contributed by one (target, source) pair.
type PairGroup struct {
	Target int
	Source int
	Rows   int
}

// Result is the merged training table and how it was assembled.
type Result struct {
	Dataset *frame.Frame
	Groups  []PairGroup
	PreJoin int // rows before the census join
}

// Years returns the years present in the results, ascending.
func (in Inputs) Years() []int {
	years := make([]int, 0, len(in.Results))
	for y := range in.Results {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

func (in Inputs) national(year int) (party.Shares, error) {
	n, ok := in.National[year]
	if !ok {
		return nil, fmt.Errorf("no national totals for %d", year)
	}
	return n, nil
}

// Build produces one row per (target year, source year, district) that has a
// source result, a target winner and a census record. Source shares are
// divided by the source year's national totals, multiplied by the target
// year's, and OTH is recomputed before joining.
func Build(in Inputs, opts Options) (*Result, error) {
	years := in.Years()
	if len(years) == 0 {
		return nil, ErrEmptyDataset
	}

	swings := make(map[int]*frame.Frame, len(years))
	debug.Step("Rescale local election results by national totals", "years", len(years))
	for _, y := range years {
		n, err := in.national(y)
		if err != nil {
			return nil, err
		}
		s, err := swing(in.Results[y], n)
		if err != nil {
			return nil, fmt.Errorf("failed to rescale %d results: %w", y, err)
		}
		swings[y] = s
	}

	debug.Step("Scale each set of local results by target national totals")
	var (
		groups []PairGroup
		parts  []*frame.Frame
	)
	for _, target := range years {
		targetNational, err := in.national(target)
		if err != nil {
			return nil, err
		}
		labels := winnerFrame(in.Results[target])

		for _, source := range years {
			if source == target && !opts.SelfPairing {
				continue
			}
			projected, err := project(swings[source], targetNational)
			if err != nil {
				return nil, fmt.Errorf("failed to project %d onto %d: %w", source, target, err)
			}
			joined, err := frame.InnerJoin(projected, labels)
			if err != nil {
				return nil, err
			}
			debug.DebugOutput(opts.LocalDebug, "Pair target=%d source=%d rows=%d", target, source, joined.Len())
			groups = append(groups, PairGroup{Target: target, Source: source, Rows: joined.Len()})
			parts = append(parts, joined)
		}
	}
	if len(parts) == 0 {
		return nil, ErrEmptyDataset
	}

	all, err := frame.Concat(parts...)
	if err != nil {
		return nil, err
	}

	debug.Step("Merge election results with census data", "rows", all.Len())
	dataset := all
	if in.Census != nil {
		dataset, err = frame.InnerJoin(all, in.Census)
		if err != nil {
			return nil, err
		}
	}
	if dataset.Len() == 0 {
		return nil, ErrEmptyDataset
	}

	return &Result{Dataset: dataset, Groups: groups, PreJoin: all.Len()}, nil
}

// swing divides a year's district shares by its national totals. OTH is
// cleared first since project recomputes it, so a zero national OTH is
// never a divisor of a non-zero share.
func swing(results *frame.Frame, national party.Shares) (*frame.Frame, error) {
	f := results.WithoutLabels()
	if j := f.ColumnIndex(string(party.OTH)); j >= 0 {
		for _, row := range f.Data {
			row[j] = 0
		}
	}
	return scale.Shares(f, national, scale.Divide)
}

// project multiplies swing ratios by a national share vector and recomputes
// OTH. The swing frame is not modified.
func project(swing *frame.Frame, national party.Shares) (*frame.Frame, error) {
	scaled, err := scale.Shares(swing, national, scale.Multiply)
	if err != nil {
		return nil, err
	}
	return scale.FixOther(scaled)
}

// winnerFrame keeps only the labels of rows with a known winner.
func winnerFrame(results *frame.Frame) *frame.Frame {
	out := frame.NewLabelled(nil)
	for i, id := range results.IDs {
		if results.HasLabels() && results.Labels[i] != "" {
			out.AppendLabelled(id, nil, results.Labels[i])
		}
	}
	return out
}

// ProjectPolling re-projects one base year's results onto a current poll
// and joins the census features. The returned frame is unlabelled and ready
// for prediction.
func ProjectPolling(census, base *frame.Frame, baseNational, polls party.Shares) (*frame.Frame, error) {
	debug.Step("Scale local results by national poll totals")
	ratios, err := swing(base, baseNational)
	if err != nil {
		return nil, fmt.Errorf("failed to rescale base results: %w", err)
	}
	projected, err := project(ratios, polls)
	if err != nil {
		return nil, fmt.Errorf("failed to project polls: %w", err)
	}

	debug.Step("Merge election results with census data")
	out := projected
	if census != nil {
		out, err = frame.InnerJoin(projected, census)
		if err != nil {
			return nil, err
		}
	}
	if out.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	return out, nil
}
