package pipeline

import (
	"fmt"
	"time"

	"github.com/ridingcast/internal/classify"
	"github.com/ridingcast/internal/debug"
	"github.com/ridingcast/internal/frame"
	"github.com/ridingcast/internal/merge"
	"github.com/ridingcast/internal/model"
)

// TrainResult is the outcome of a training run. Best is the top ranked
// model, fitted on the training split of Dataset restricted to Features.
type TrainResult struct {
	Dataset  *frame.Frame // merged cross-year dataset before feature selection
	Features []string
	Rankings []model.Result
	Best     model.Classifier
	BestName string
	Groups   []merge.PairGroup
	PreJoin  int
	Elapsed  time.Duration
}

// Train merges the loaded sources into one labelled dataset, selects
// features with a seeded random forest and ranks the configured models.
func (p *Pipeline) Train(src *Sources) (*TrainResult, error) {
	debug.DebugHeader(p.localDebug)
	defer debug.DebugFooter(p.localDebug)
	start := time.Now()
	cfg := p.run.Train

	merged, err := merge.Build(merge.Inputs{
		Census:   src.Census,
		Results:  src.Results,
		National: src.National,
	}, merge.Options{SelfPairing: cfg.SelfPairing, LocalDebug: p.localDebug})
	if err != nil {
		return nil, fmt.Errorf("failed to build dataset: %w", err)
	}
	for _, g := range merged.Groups {
		debug.DebugOutput(p.localDebug, "pair %d <- %d: %d rows", g.Target, g.Source, g.Rows)
	}
	debug.Step("Dataset assembled", "rows", merged.Dataset.Len(), "columns", len(merged.Dataset.Columns), "pairs", len(merged.Groups))

	debug.Step("Select features", "trees", cfg.SelectorTrees)
	selector := classify.NewRandomForest(classify.ForestParams{Trees: cfg.SelectorTrees, Seed: cfg.Seed})
	reduced, features, err := model.FeatureSelect(merged.Dataset, selector)
	if err != nil {
		return nil, fmt.Errorf("failed to select features: %w", err)
	}
	debug.Step("Features selected", "kept", len(features), "of", len(merged.Dataset.Columns))

	candidates := make([]model.Candidate, 0, len(cfg.Models))
	for _, name := range cfg.Models {
		est, err := classify.New(name, cfg.Seed)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, model.Candidate{Name: name, Model: est})
	}

	rankings, err := model.ModelSelect(reduced, candidates, model.Options{
		TestFraction: cfg.TestFraction,
		Seed:         cfg.Seed,
		Verbose:      cfg.Verbose,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to select model: %w", err)
	}

	best := rankings[0]
	debug.Step("Best model", "name", best.Name, "test_f1", best.TestF1)
	return &TrainResult{
		Dataset:  merged.Dataset,
		Features: features,
		Rankings: rankings,
		Best:     best.Model,
		BestName: best.Name,
		Groups:   merged.Groups,
		PreJoin:  merged.PreJoin,
		Elapsed:  time.Since(start),
	}, nil
}
