package memory

import (
	"context"
	"sort"
	"sync"

	"portfolio-montecarlo/internal/domain"
	"portfolio-montecarlo/internal/storage"
)

// SimulationRunStore is an in-memory implementation of storage.SimulationRunStore.
type SimulationRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SimulationRun
}

// NewSimulationRunStore creates a new in-memory simulation run store.
func NewSimulationRunStore() *SimulationRunStore {
	return &SimulationRunStore{
		data: make(map[string]*domain.SimulationRun),
	}
}

// Insert adds a run. Returns ErrDuplicateKey if run_id exists.
func (s *SimulationRunStore) Insert(_ context.Context, run *domain.SimulationRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[run.RunID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[run.RunID] = copyRun(run)
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *SimulationRunStore) GetByID(_ context.Context, runID string) (*domain.SimulationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.data[runID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyRun(run), nil
}

// List returns the most recent runs, newest first.
func (s *SimulationRunStore) List(_ context.Context, limit int) ([]*domain.SimulationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.SimulationRun, 0, len(s.data))
	for _, run := range s.data {
		result = append(result, copyRun(run))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].RunID < result[j].RunID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func copyRun(run *domain.SimulationRun) *domain.SimulationRun {
	runCopy := *run
	runCopy.Assets = append([]string(nil), run.Assets...)
	runCopy.Weights = append([]float64(nil), run.Weights...)
	return &runCopy
}

var _ storage.SimulationRunStore = (*SimulationRunStore)(nil)
