package memory

import (
	"context"
	"errors"
	"testing"

	"portfolio-montecarlo/internal/domain"
	"portfolio-montecarlo/internal/storage"
)

func TestTrajectoryStore_InsertAndGet(t *testing.T) {
	store := NewTrajectoryStore()
	ctx := context.Background()

	ens := &domain.Ensemble{Trials: [][]float64{
		{1, 1.01, 1.02},
		{1, 0.99, 0.97},
	}}
	if err := store.InsertEnsemble(ctx, "run-1", ens); err != nil {
		t.Fatalf("InsertEnsemble failed: %v", err)
	}
	ens.Trials[0][2] = 5

	got, err := store.GetEnsemble(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetEnsemble failed: %v", err)
	}
	if got.TrialCount() != 2 || got.Steps() != 3 {
		t.Fatalf("Expected 2x3 ensemble, got %dx%d", got.TrialCount(), got.Steps())
	}
	if got.Trials[0][2] != 1.02 {
		t.Errorf("Expected stored value 1.02, got %v", got.Trials[0][2])
	}
}

func TestTrajectoryStore_Errors(t *testing.T) {
	store := NewTrajectoryStore()
	ctx := context.Background()

	ens := &domain.Ensemble{Trials: [][]float64{{1, 1.1}}}
	if err := store.InsertEnsemble(ctx, "run-1", ens); err != nil {
		t.Fatalf("InsertEnsemble failed: %v", err)
	}
	if err := store.InsertEnsemble(ctx, "run-1", ens); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
	if err := store.InsertEnsemble(ctx, "run-2", &domain.Ensemble{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if _, err := store.GetEnsemble(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
