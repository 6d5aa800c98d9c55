package model

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ridingcast/internal/debug"
	"github.com/ridingcast/internal/frame"
)

// FeatureSelect fits est on the whole frame and keeps the columns whose
// importance is at least the mean importance. Column order is preserved.
func FeatureSelect(f *frame.Frame, est Importancer) (*frame.Frame, []string, error) {
	x, y, err := Xy(f)
	if err != nil {
		return nil, nil, err
	}
	if err := est.Fit(x, y); err != nil {
		return nil, nil, fmt.Errorf("failed to fit feature selector: %w", err)
	}

	imp := est.FeatureImportances()
	if len(imp) != len(f.Columns) {
		return nil, nil, fmt.Errorf("selector returned %d importances for %d columns", len(imp), len(f.Columns))
	}
	threshold := floats.Sum(imp) / float64(len(imp))

	var keep []string
	for j, v := range imp {
		if v >= threshold {
			keep = append(keep, f.Columns[j])
		}
	}
	reduced, err := f.Select(keep)
	if err != nil {
		return nil, nil, err
	}
	return reduced, keep, nil
}

// Candidate is a named model to compare.
type Candidate struct {
	Name  string
	Model Classifier
}

// Options controls ModelSelect.
type Options struct {
	TestFraction float64
	Seed         int64
	// Verbose adds train scores and confusion matrices to each result.
	Verbose bool
}

// DefaultOptions holds the 80/20 split with seed 0.
func DefaultOptions() Options {
	return Options{TestFraction: 0.2}
}

// Result is one candidate's evaluation. The Model is the fitted instance.
type Result struct {
	Name    string
	Model   Classifier
	TestF1  float64
	TrainF1 float64    // only with Verbose
	Labels  []string   // confusion matrix axis order
	TestCM  *mat.Dense // test confusion matrix
	TrainCM *mat.Dense // only with Verbose
	Elapsed time.Duration
}

// ModelSelect makes one shuffled split of f, fits every candidate on the
// train rows and scores it on the test rows. Results are ordered by test F1,
// best first; equal scores keep the input order. Each candidate's model is
// left fitted.
func ModelSelect(f *frame.Frame, candidates []Candidate, opts Options) ([]Result, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	train, test, err := Split(f, opts.TestFraction, opts.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to split dataset: %w", err)
	}
	xTrain, yTrain, err := Xy(train)
	if err != nil {
		return nil, err
	}
	xTest, yTest, err := Xy(test)
	if err != nil {
		return nil, err
	}
	labels := unionLabels(f.Labels)

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		start := time.Now()
		if err := c.Model.Fit(xTrain, yTrain); err != nil {
			return nil, fmt.Errorf("failed to fit %s: %w", c.Name, err)
		}
		pred, err := c.Model.Predict(xTest)
		if err != nil {
			return nil, fmt.Errorf("failed to predict with %s: %w", c.Name, err)
		}

		r := Result{Name: c.Name, Model: c.Model, Labels: labels}
		if r.TestF1, err = F1Micro(yTest, pred); err != nil {
			return nil, err
		}
		if r.TestCM, _, err = ConfusionMatrix(labels, yTest, pred); err != nil {
			return nil, err
		}

		if opts.Verbose {
			trainPred, err := c.Model.Predict(xTrain)
			if err != nil {
				return nil, fmt.Errorf("failed to predict train rows with %s: %w", c.Name, err)
			}
			if r.TrainF1, err = F1Micro(yTrain, trainPred); err != nil {
				return nil, err
			}
			if r.TrainCM, _, err = ConfusionMatrix(labels, yTrain, trainPred); err != nil {
				return nil, err
			}
		}
		r.Elapsed = time.Since(start)

		debug.Step("evaluated model", "model", c.Name, "test_f1", fmt.Sprintf("%.4f", r.TestF1), "took", r.Elapsed.Round(time.Millisecond))
		if opts.Verbose {
			debug.Step("train score", "model", c.Name, "train_f1", fmt.Sprintf("%.4f", r.TrainF1))
			debug.Logger().Info("test confusion", "model", c.Name, "labels", labels, "matrix", fmt.Sprintf("%v", mat.Formatted(r.TestCM, mat.Squeeze())))
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].TestF1 > results[j].TestF1 })
	return results, nil
}
