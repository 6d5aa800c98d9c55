package pipeline

import (
	"github.com/ridingcast/internal/db"
)

// TrainReport converts a training result into a storable report. Feature
// columns that are census characteristic ids are stored by name.
func (p *Pipeline) TrainReport(src *Sources, tr *TrainResult) *db.Report {
	r := &db.Report{
		Run: db.Run{
			Kind:         db.KindTrain,
			Seed:         p.run.Train.Seed,
			TestFraction: p.run.Train.TestFraction,
			DatasetRows:  tr.Dataset.Len(),
			BestModel:    tr.BestName,
		},
		Features: FeatureNames(src, tr.Features),
		Rankings: make([]db.Ranking, len(tr.Rankings)),
	}
	for i, res := range tr.Rankings {
		r.Rankings[i] = db.Ranking{
			Rank:    i + 1,
			Model:   res.Name,
			TestF1:  res.TestF1,
			TrainF1: res.TrainF1,
		}
	}
	return r
}

// PredictReport converts a forecast into a storable report.
func (p *Pipeline) PredictReport(src *Sources, tr *TrainResult, fc *Forecast) *db.Report {
	r := p.TrainReport(src, tr)
	r.Run.Kind = db.KindPredict
	r.Predictions = make([]db.Prediction, len(fc.Districts))
	for i, id := range fc.Districts {
		r.Predictions[i] = db.Prediction{DistrictID: id, Winner: fc.Winners[i]}
	}
	return r
}

// FeatureNames maps selected columns to readable names. Party columns and
// columns without a known characteristic keep their column name.
func FeatureNames(src *Sources, columns []string) []string {
	out := make([]string, len(columns))
	for i, col := range columns {
		out[i] = col
		if name, ok := src.Features[col]; ok && name != "" {
			out[i] = name
		}
	}
	return out
}
