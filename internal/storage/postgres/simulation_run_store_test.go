package postgres

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-montecarlo/internal/domain"
	"portfolio-montecarlo/internal/storage"
)

func newTestRun(id string, created time.Time) *domain.SimulationRun {
	return &domain.SimulationRun{
		RunID:       id,
		Assets:      []string{"AAPL", "MSFT"},
		Weights:     []float64{0.6, 0.4},
		Trials:      500,
		HorizonDays: 252,
		Seed:        math.MaxUint64 - 3, // above int64 range
		HistoryFrom: time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC),
		HistoryTo:   time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		Summary: domain.Summary{
			Count: 500, Mean: 1.08, Std: 0.21, Min: 0.55,
			P25: 0.93, P50: 1.06, P75: 1.21, Max: 1.92,
			CI: domain.ConfidenceInterval{Lower: 0.71, Upper: 1.52},
		},
		DurationMs: 1234,
		CreatedAt:  created,
	}
}

func TestSimulationRunStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSimulationRunStore(pool)
	ctx := context.Background()

	run := newTestRun("run-001", time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, store.Insert(ctx, run))

	got, err := store.GetByID(ctx, "run-001")
	require.NoError(t, err)

	assert.Equal(t, run.RunID, got.RunID)
	assert.Equal(t, run.Assets, got.Assets)
	assert.Equal(t, run.Weights, got.Weights)
	assert.Equal(t, run.Trials, got.Trials)
	assert.Equal(t, run.HorizonDays, got.HorizonDays)
	assert.Equal(t, run.Seed, got.Seed)
	assert.True(t, run.HistoryFrom.Equal(got.HistoryFrom))
	assert.True(t, run.HistoryTo.Equal(got.HistoryTo))
	assert.Equal(t, run.Summary, got.Summary)
	assert.Equal(t, run.DurationMs, got.DurationMs)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
}

func TestSimulationRunStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSimulationRunStore(pool)
	ctx := context.Background()

	run := newTestRun("run-dup", time.Now().UTC())
	require.NoError(t, store.Insert(ctx, run))

	err := store.Insert(ctx, run)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestSimulationRunStore_GetByID_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSimulationRunStore(pool)

	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSimulationRunStore_List(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSimulationRunStore(pool)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		require.NoError(t, store.Insert(ctx, newTestRun(id, base.Add(time.Duration(i)*time.Hour))))
	}

	runs, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-c", runs[0].RunID)
	assert.Equal(t, "run-b", runs[1].RunID)

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
