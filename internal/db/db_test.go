package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridingcast/internal/frame"
)

func memoryDB(t *testing.T) *Connection {
	t.Helper()
	conn, err := NewConnection(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestRebind(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{"sqlite", "SELECT * FROM runs WHERE id = ? AND kind = ?"},
		{"postgres", "SELECT * FROM runs WHERE id = $1 AND kind = $2"},
	}
	for _, tt := range tests {
		c := &Connection{Driver: tt.driver}
		assert.Equal(t, tt.want, c.Rebind("SELECT * FROM runs WHERE id = ? AND kind = ?"))
	}
}

func TestNewConnectionRejectsDriver(t *testing.T) {
	_, err := NewConnection(context.Background(), "mysql", "x")
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestSaveAndLoadReport(t *testing.T) {
	conn := memoryDB(t)
	ctx := context.Background()

	report := &Report{
		Run: Run{
			Kind:         KindTrain,
			Seed:         42,
			TestFraction: 0.2,
			DatasetRows:  2700,
			BestModel:    "rf",
		},
		Features: []string{"LIB", "CON", "1402"},
		Rankings: []Ranking{
			{Rank: 1, Model: "rf", TestF1: 0.91, TrainF1: 0.99},
			{Rank: 2, Model: "ridge", TestF1: 0.84},
		},
		Predictions: []Prediction{
			{DistrictID: "35002", Winner: "CON"},
			{DistrictID: "35001", Winner: "LIB"},
		},
	}

	id, err := conn.SaveReport(ctx, report)
	require.NoError(t, err)
	assert.Len(t, id, 36)

	got, err := conn.LoadReport(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.Run.ID)
	assert.Equal(t, "rf", got.Run.BestModel)
	assert.Equal(t, int64(42), got.Run.Seed)
	assert.WithinDuration(t, report.Run.CreatedAt, got.Run.CreatedAt, time.Microsecond)
	assert.Equal(t, report.Features, got.Features)
	assert.Equal(t, report.Rankings, got.Rankings)
	// predictions come back ordered by district
	assert.Equal(t, []Prediction{{"35001", "LIB"}, {"35002", "CON"}}, got.Predictions)
}

func TestLoadReportNotFound(t *testing.T) {
	conn := memoryDB(t)
	_, err := conn.LoadReport(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = conn.LatestRunID(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRunsAndLatest(t *testing.T) {
	conn := memoryDB(t)
	ctx := context.Background()
	base := time.Date(2025, 4, 28, 12, 0, 0, 0, time.UTC)

	for i, kind := range []string{KindTrain, KindPredict, KindTrain} {
		_, err := conn.SaveReport(ctx, &Report{Run: Run{
			ID:        []string{"a", "b", "c"}[i],
			Kind:      kind,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			BestModel: "rf",
		}})
		require.NoError(t, err)
	}

	runs, err := conn.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{runs[0].ID, runs[1].ID, runs[2].ID})

	latest, err := conn.LatestRunID(ctx, KindPredict)
	require.NoError(t, err)
	assert.Equal(t, "b", latest)

	latest, err = conn.LatestRunID(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "c", latest)
}

func TestSaveAndLoadDataset(t *testing.T) {
	conn := memoryDB(t)
	ctx := context.Background()

	id, err := conn.SaveReport(ctx, &Report{Run: Run{Kind: KindTrain, BestModel: "knn"}})
	require.NoError(t, err)

	f := frame.NewLabelled([]string{"LIB", "CON", "1402"})
	f.AppendLabelled("10001", []float64{0.5, 0.3, -0.2}, "LIB")
	f.AppendLabelled("10002", []float64{0.2, 0.6, 1.4}, "CON")
	require.NoError(t, conn.SaveDataset(ctx, id, f))

	got, err := conn.LoadDataset(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, f, got)

	_, err = conn.LoadDataset(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
