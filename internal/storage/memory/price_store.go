package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"portfolio-montecarlo/internal/domain"
	"portfolio-montecarlo/internal/storage"
)

// PriceStore is an in-memory implementation of storage.PriceStore.
type PriceStore struct {
	mu   sync.RWMutex
	data map[priceKey]*domain.PricePoint
}

type priceKey struct {
	asset string
	day   int64 // unix seconds of the UTC date
}

// NewPriceStore creates a new in-memory price store.
func NewPriceStore() *PriceStore {
	return &PriceStore{
		data: make(map[priceKey]*domain.PricePoint),
	}
}

func keyOf(p *domain.PricePoint) priceKey {
	return priceKey{asset: p.Asset, day: p.Date.UTC().Unix()}
}

// InsertBulk adds multiple bars. Fails entire batch on duplicate.
func (s *PriceStore) InsertBulk(_ context.Context, points []*domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[priceKey]struct{}, len(points))

	// First pass: check for duplicates (existing + intra-batch)
	for _, p := range points {
		if p == nil || p.Asset == "" || p.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		key := keyOf(p)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, p := range points {
		pointCopy := *p
		s.data[keyOf(p)] = &pointCopy
	}

	return nil
}

// GetByAsset retrieves all bars for an asset, ordered by date ASC.
func (s *PriceStore) GetByAsset(_ context.Context, asset string) ([]*domain.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PricePoint
	for _, p := range s.data {
		if p.Asset == asset {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sortPoints(result)
	return result, nil
}

// GetByAssetsInRange retrieves bars for the assets within [start, end] (inclusive).
func (s *PriceStore) GetByAssetsInRange(_ context.Context, assets []string, start, end time.Time) ([]*domain.PricePoint, error) {
	wanted := make(map[string]struct{}, len(assets))
	for _, a := range assets {
		wanted[a] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PricePoint
	for _, p := range s.data {
		if _, ok := wanted[p.Asset]; !ok {
			continue
		}
		if !start.IsZero() && p.Date.Before(start) {
			continue
		}
		if !end.IsZero() && p.Date.After(end) {
			continue
		}
		pointCopy := *p
		result = append(result, &pointCopy)
	}

	sortPoints(result)
	return result, nil
}

// ListAssets returns the distinct stored assets in ascending order.
func (s *PriceStore) ListAssets(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for k := range s.data {
		seen[k.asset] = struct{}{}
	}

	assets := make([]string, 0, len(seen))
	for a := range seen {
		assets = append(assets, a)
	}
	sort.Strings(assets)
	return assets, nil
}

func sortPoints(points []*domain.PricePoint) {
	sort.Slice(points, func(i, j int) bool {
		if !points[i].Date.Equal(points[j].Date) {
			return points[i].Date.Before(points[j].Date)
		}
		return points[i].Asset < points[j].Asset
	})
}

var _ storage.PriceStore = (*PriceStore)(nil)
