package memory

import (
	"context"
	"sync"

	"portfolio-montecarlo/internal/domain"
	"portfolio-montecarlo/internal/storage"
)

// TrajectoryStore is an in-memory implementation of storage.TrajectoryStore.
type TrajectoryStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Ensemble
}

// NewTrajectoryStore creates a new in-memory trajectory store.
func NewTrajectoryStore() *TrajectoryStore {
	return &TrajectoryStore{
		data: make(map[string]*domain.Ensemble),
	}
}

// InsertEnsemble stores every trajectory of a run. Returns ErrDuplicateKey if run_id exists.
func (s *TrajectoryStore) InsertEnsemble(_ context.Context, runID string, ens *domain.Ensemble) error {
	if runID == "" || ens == nil || ens.TrialCount() == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[runID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[runID] = copyEnsemble(ens)
	return nil
}

// GetEnsemble rebuilds the ensemble of a run. Returns ErrNotFound if not exists.
func (s *TrajectoryStore) GetEnsemble(_ context.Context, runID string) (*domain.Ensemble, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ens, ok := s.data[runID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyEnsemble(ens), nil
}

func copyEnsemble(ens *domain.Ensemble) *domain.Ensemble {
	out := &domain.Ensemble{Trials: make([][]float64, len(ens.Trials))}
	for i, tr := range ens.Trials {
		out.Trials[i] = append([]float64(nil), tr...)
	}
	return out
}

var _ storage.TrajectoryStore = (*TrajectoryStore)(nil)
