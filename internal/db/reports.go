package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ridingcast/internal/frame"
)

// ErrNotFound is returned when a run id has no stored report.
var ErrNotFound = errors.New("run not found")

// timeLayout has fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const (
	KindTrain   = "train"
	KindPredict = "predict"
)

// Run is the header row of a stored report.
type Run struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	CreatedAt    time.Time `json:"created_at"`
	Seed         int64     `json:"seed"`
	TestFraction float64   `json:"test_fraction"`
	DatasetRows  int       `json:"dataset_rows"`
	BestModel    string    `json:"best_model"`
}

type Ranking struct {
	Rank    int     `json:"rank"`
	Model   string  `json:"model"`
	TestF1  float64 `json:"test_f1"`
	TrainF1 float64 `json:"train_f1"`
}

type Prediction struct {
	DistrictID string `json:"district_id"`
	Winner     string `json:"winner"`
}

// Report is everything recorded for one run.
type Report struct {
	Run         Run          `json:"run"`
	Features    []string     `json:"features"`
	Rankings    []Ranking    `json:"rankings"`
	Predictions []Prediction `json:"predictions"`
}

// SaveReport writes a report in one transaction. A run without an id gets a
// fresh UUID, and a zero CreatedAt is set to now. The id is returned.
func (c *Connection) SaveReport(ctx context.Context, r *Report) (string, error) {
	if r.Run.ID == "" {
		r.Run.ID = uuid.NewString()
	}
	if r.Run.CreatedAt.IsZero() {
		r.Run.CreatedAt = time.Now().UTC()
	}

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	run := r.Run
	_, err = tx.ExecContext(ctx, c.Rebind(`
		INSERT INTO runs (id, kind, created_at, seed, test_fraction, dataset_rows, best_model)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		run.ID, run.Kind, run.CreatedAt.UTC().Format(timeLayout), run.Seed, run.TestFraction, run.DatasetRows, run.BestModel)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	for i, name := range r.Features {
		if _, err := tx.ExecContext(ctx, c.Rebind(`INSERT INTO run_features (run_id, ord, name) VALUES (?, ?, ?)`),
			run.ID, i, name); err != nil {
			return "", fmt.Errorf("failed to insert feature: %w", err)
		}
	}
	for _, rk := range r.Rankings {
		if _, err := tx.ExecContext(ctx, c.Rebind(`
			INSERT INTO run_rankings (run_id, rank_no, model, test_f1, train_f1) VALUES (?, ?, ?, ?, ?)`),
			run.ID, rk.Rank, rk.Model, rk.TestF1, rk.TrainF1); err != nil {
			return "", fmt.Errorf("failed to insert ranking: %w", err)
		}
	}

	if len(r.Predictions) > 0 {
		stmt, err := tx.PrepareContext(ctx, c.Rebind(`INSERT INTO run_predictions (run_id, district_id, winner) VALUES (?, ?, ?)`))
		if err != nil {
			return "", fmt.Errorf("failed to prepare prediction insert: %w", err)
		}
		defer stmt.Close()
		for _, p := range r.Predictions {
			if _, err := stmt.ExecContext(ctx, run.ID, p.DistrictID, p.Winner); err != nil {
				return "", fmt.Errorf("failed to insert prediction for %s: %w", p.DistrictID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit report: %w", err)
	}
	return run.ID, nil
}

// SaveDataset writes a training dataset in long form, one row per cell.
// The run must already exist.
func (c *Connection) SaveDataset(ctx context.Context, runID string, f *frame.Frame) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, c.Rebind(`
		INSERT INTO dataset_cells (run_id, row_no, col_no, district_id, label, feature, value)
		VALUES (?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare dataset insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range f.Data {
		label := ""
		if f.HasLabels() {
			label = f.Labels[i]
		}
		for j, v := range row {
			if _, err := stmt.ExecContext(ctx, runID, i, j, f.IDs[i], label, f.Columns[j], v); err != nil {
				return fmt.Errorf("failed to insert dataset row %d: %w", i, err)
			}
		}
	}
	return tx.Commit()
}

// LoadDataset rebuilds a dataset saved with SaveDataset.
func (c *Connection) LoadDataset(ctx context.Context, runID string) (*frame.Frame, error) {
	rows, err := c.DB.QueryContext(ctx, c.Rebind(`
		SELECT row_no, col_no, district_id, label, feature, value FROM dataset_cells
		WHERE run_id = ? ORDER BY row_no, col_no`), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset: %w", err)
	}
	defer rows.Close()

	type cell struct {
		row, col        int
		id, label, name string
		value           float64
	}
	var cells []cell
	var columns []string
	for rows.Next() {
		var cl cell
		if err := rows.Scan(&cl.row, &cl.col, &cl.id, &cl.label, &cl.name, &cl.value); err != nil {
			return nil, fmt.Errorf("failed to scan dataset cell: %w", err)
		}
		// the first row lists every column in order
		if cl.row == 0 {
			columns = append(columns, cl.name)
		}
		cells = append(cells, cl)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("%w: no dataset for %s", ErrNotFound, runID)
	}

	f := frame.NewLabelled(columns)
	for start := 0; start < len(cells); start += len(columns) {
		end := start + len(columns)
		if end > len(cells) {
			return nil, fmt.Errorf("dataset for %s has a truncated row", runID)
		}
		values := make([]float64, len(columns))
		for _, cl := range cells[start:end] {
			values[cl.col] = cl.value
		}
		f.AppendLabelled(cells[start].id, values, cells[start].label)
	}
	return f, nil
}

// ListRuns returns every stored run, newest first.
func (c *Connection) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := c.DB.QueryContext(ctx, `
		SELECT id, kind, created_at, seed, test_fraction, dataset_rows, best_model
		FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LatestRunID returns the newest run of the given kind, or any kind if
// kind is empty.
func (c *Connection) LatestRunID(ctx context.Context, kind string) (string, error) {
	query := `SELECT id FROM runs ORDER BY created_at DESC, id LIMIT 1`
	args := []interface{}{}
	if kind != "" {
		query = `SELECT id FROM runs WHERE kind = ? ORDER BY created_at DESC, id LIMIT 1`
		args = append(args, kind)
	}
	var id string
	err := c.DB.QueryRowContext(ctx, c.Rebind(query), args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query latest run: %w", err)
	}
	return id, nil
}

// LoadReport reads back a stored report.
func (c *Connection) LoadReport(ctx context.Context, runID string) (*Report, error) {
	row := c.DB.QueryRowContext(ctx, c.Rebind(`
		SELECT id, kind, created_at, seed, test_fraction, dataset_rows, best_model
		FROM runs WHERE id = ?`), runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, err
	}

	r := &Report{Run: run}

	features, err := c.DB.QueryContext(ctx, c.Rebind(`SELECT name FROM run_features WHERE run_id = ? ORDER BY ord`), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query features: %w", err)
	}
	defer features.Close()
	for features.Next() {
		var name string
		if err := features.Scan(&name); err != nil {
			return nil, err
		}
		r.Features = append(r.Features, name)
	}
	if err := features.Err(); err != nil {
		return nil, err
	}

	rankings, err := c.DB.QueryContext(ctx, c.Rebind(`
		SELECT rank_no, model, test_f1, train_f1 FROM run_rankings WHERE run_id = ? ORDER BY rank_no`), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rankings: %w", err)
	}
	defer rankings.Close()
	for rankings.Next() {
		var rk Ranking
		if err := rankings.Scan(&rk.Rank, &rk.Model, &rk.TestF1, &rk.TrainF1); err != nil {
			return nil, err
		}
		r.Rankings = append(r.Rankings, rk)
	}
	if err := rankings.Err(); err != nil {
		return nil, err
	}

	preds, err := c.DB.QueryContext(ctx, c.Rebind(`
		SELECT district_id, winner FROM run_predictions WHERE run_id = ? ORDER BY district_id`), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer preds.Close()
	for preds.Next() {
		var p Prediction
		if err := preds.Scan(&p.DistrictID, &p.Winner); err != nil {
			return nil, err
		}
		r.Predictions = append(r.Predictions, p)
	}
	return r, preds.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (Run, error) {
	var run Run
	var created string
	if err := s.Scan(&run.ID, &run.Kind, &created, &run.Seed, &run.TestFraction, &run.DatasetRows, &run.BestModel); err != nil {
		return Run{}, err
	}
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return Run{}, fmt.Errorf("failed to parse run timestamp %q: %w", created, err)
	}
	run.CreatedAt = t
	return run, nil
}
