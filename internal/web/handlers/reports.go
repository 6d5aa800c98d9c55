package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ridingcast/internal/db"
	"github.com/ridingcast/internal/debug"
	"github.com/ridingcast/internal/frame"
)

// ReportStore is the read side of the report database.
type ReportStore interface {
	ListRuns(ctx context.Context) ([]db.Run, error)
	LatestRunID(ctx context.Context, kind string) (string, error)
	LoadReport(ctx context.Context, runID string) (*db.Report, error)
	LoadDataset(ctx context.Context, runID string) (*frame.Frame, error)
}

// ReportHandler serves stored training and prediction reports.
type ReportHandler struct {
	Store ReportStore
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ModelsResponse lists a training run's model ranking.
type ModelsResponse struct {
	RunID     string       `json:"run_id"`
	BestModel string       `json:"best_model"`
	Rankings  []db.Ranking `json:"rankings"`
}

// FeaturesResponse lists the features a training run selected.
type FeaturesResponse struct {
	RunID    string   `json:"run_id"`
	Features []string `json:"features"`
}

// PredictionsResponse lists a prediction run's district winners and the
// seat count per party.
type PredictionsResponse struct {
	RunID       string          `json:"run_id"`
	Seats       map[string]int  `json:"seats"`
	Predictions []db.Prediction `json:"predictions"`
}

// DatasetResponse is the merged training dataset stored with a run.
type DatasetResponse struct {
	RunID   string      `json:"run_id"`
	Columns []string    `json:"columns"`
	IDs     []string    `json:"district_ids"`
	Labels  []string    `json:"labels"`
	Rows    [][]float64 `json:"rows"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		debug.Warn("failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	if errors.Is(err, db.ErrNotFound) {
		status = http.StatusNotFound
		msg = err.Error()
	} else {
		debug.Warn("request failed", "err", err)
	}
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// report loads the run named by the "run" route variable or query parameter,
// falling back to the newest run of kind.
func (h *ReportHandler) report(r *http.Request, kind string) (*db.Report, error) {
	runID := mux.Vars(r)["run"]
	if runID == "" {
		runID = r.URL.Query().Get("run")
	}
	if runID == "" || runID == "latest" {
		id, err := h.Store.LatestRunID(r.Context(), kind)
		if err != nil {
			return nil, err
		}
		runID = id
	}
	return h.Store.LoadReport(r.Context(), runID)
}

// ListRuns returns every stored run, newest first.
func (h *ReportHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListRuns(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun returns a full report.
func (h *ReportHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	rep, err := h.report(r, "")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// GetDataset returns the training dataset stored with a run.
func (h *ReportHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	rep, err := h.report(r, db.KindTrain)
	if err != nil {
		writeError(w, err)
		return
	}
	f, err := h.Store.LoadDataset(r.Context(), rep.Run.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DatasetResponse{
		RunID:   rep.Run.ID,
		Columns: f.Columns,
		IDs:     f.IDs,
		Labels:  nonNil(f.Labels),
		Rows:    f.Data,
	})
}

// GetModels returns the model ranking of a training run.
func (h *ReportHandler) GetModels(w http.ResponseWriter, r *http.Request) {
	rep, err := h.report(r, db.KindTrain)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ModelsResponse{
		RunID:     rep.Run.ID,
		BestModel: rep.Run.BestModel,
		Rankings:  nonNil(rep.Rankings),
	})
}

// GetFeatures returns the selected features of a training run.
func (h *ReportHandler) GetFeatures(w http.ResponseWriter, r *http.Request) {
	rep, err := h.report(r, db.KindTrain)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FeaturesResponse{RunID: rep.Run.ID, Features: nonNil(rep.Features)})
}

// GetPredictions returns every district winner of a prediction run.
func (h *ReportHandler) GetPredictions(w http.ResponseWriter, r *http.Request) {
	rep, err := h.report(r, db.KindPredict)
	if err != nil {
		writeError(w, err)
		return
	}
	seats := make(map[string]int)
	for _, p := range rep.Predictions {
		seats[p.Winner]++
	}
	writeJSON(w, http.StatusOK, PredictionsResponse{
		RunID:       rep.Run.ID,
		Seats:       seats,
		Predictions: nonNil(rep.Predictions),
	})
}

// GetPrediction returns one district's predicted winner.
func (h *ReportHandler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	rep, err := h.report(r, db.KindPredict)
	if err != nil {
		writeError(w, err)
		return
	}
	district := mux.Vars(r)["district"]
	for _, p := range rep.Predictions {
		if p.DistrictID == district {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "no prediction for district " + district})
}

// Health reports that the server is up.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
