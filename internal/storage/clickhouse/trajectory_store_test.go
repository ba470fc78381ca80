package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-montecarlo/internal/domain"
	"portfolio-montecarlo/internal/storage"
)

func TestTrajectoryStore_InsertAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTrajectoryStore(conn)
	ctx := context.Background()

	ens := &domain.Ensemble{Trials: [][]float64{
		{1, 1.01, 1.03, 1.02},
		{1, 0.98, 0.97, 0.99},
		{1, 1.00, 1.05, 1.10},
	}}
	require.NoError(t, store.InsertEnsemble(ctx, "run-1", ens))

	got, err := store.GetEnsemble(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, ens.Trials, got.Trials)
}

func TestTrajectoryStore_Duplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTrajectoryStore(conn)
	ctx := context.Background()

	ens := &domain.Ensemble{Trials: [][]float64{{1, 1.1}}}
	require.NoError(t, store.InsertEnsemble(ctx, "run-1", ens))

	err := store.InsertEnsemble(ctx, "run-1", ens)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestTrajectoryStore_NotFound(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTrajectoryStore(conn)

	_, err := store.GetEnsemble(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
