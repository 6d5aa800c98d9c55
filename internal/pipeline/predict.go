package pipeline

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ridingcast/internal/debug"
	"github.com/ridingcast/internal/frame"
	"github.com/ridingcast/internal/merge"
	"github.com/ridingcast/internal/model"
	"github.com/ridingcast/internal/party"
	"github.com/ridingcast/internal/redistrict"
)

var ErrNoBaseYear = errors.New("base year was not loaded")

// Forecast is a predicted winner per district.
type Forecast struct {
	Districts []string
	Winners   []string
	Seats     map[string]int
	// Redistricted is set when the projection was re-keyed onto new
	// boundaries before prediction.
	Redistricted bool
}

// SeatOrder lists the parties in f.Seats by seat count, then name.
func (f *Forecast) SeatOrder() []string {
	out := make([]string, 0, len(f.Seats))
	for p := range f.Seats {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if f.Seats[out[i]] != f.Seats[out[j]] {
			return f.Seats[out[i]] > f.Seats[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

// Predict projects the base year's local results onto a poll, optionally
// re-keys the projection onto new districts with weights, and predicts each
// district's winner with the trained best model. A nil weights skips
// redistricting.
func (p *Pipeline) Predict(src *Sources, tr *TrainResult, polls party.Shares, weights redistrict.Weights) (*Forecast, error) {
	debug.DebugHeader(p.localDebug)
	defer debug.DebugFooter(p.localDebug)

	year := p.run.Predict.BaseYear
	base, ok := src.Results[year]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoBaseYear, year)
	}
	projected, err := merge.ProjectPolling(src.Census, base, src.National[year], polls)
	if err != nil {
		return nil, err
	}
	debug.DebugOutput(p.localDebug, "projected %d districts from %d", projected.Len(), year)

	fc := &Forecast{}
	if weights != nil {
		if p.run.Predict.NormalizeWeights {
			weights = redistrict.NormalizeWeights(weights)
		}
		debug.Step("Project onto new district boundaries", "districts", len(weights))
		projected, err = redistrict.Project(projected, weights)
		if err != nil {
			return nil, fmt.Errorf("failed to redistrict projection: %w", err)
		}
		fc.Redistricted = true
	}

	x, err := featureMatrix(projected, tr.Features)
	if err != nil {
		return nil, err
	}
	winners, err := tr.Best.Predict(x)
	if err != nil {
		return nil, fmt.Errorf("failed to predict with %s: %w", tr.BestName, err)
	}

	fc.Districts = append([]string(nil), projected.IDs...)
	fc.Winners = winners
	fc.Seats = make(map[string]int)
	for _, w := range winners {
		fc.Seats[w]++
	}
	debug.Step("Prediction complete", "districts", len(winners), "model", tr.BestName)
	return fc, nil
}

// featureMatrix restricts f to the trained feature columns, in training
// order.
func featureMatrix(f *frame.Frame, features []string) (*mat.Dense, error) {
	sel, err := f.Select(features)
	if err != nil {
		return nil, fmt.Errorf("projection lacks a trained feature: %w", err)
	}
	if sel.HasNaN() {
		return nil, model.ErrNaN
	}
	return sel.Matrix()
}
