package ingestion

import (
	"errors"
	"sort"

	"portfolio-montecarlo/internal/domain"
)

// ErrInvalidOrdering is returned when price points are not properly ordered.
var ErrInvalidOrdering = errors.New("price points are not in deterministic order")

// SortPricePoints orders bars by (date ASC, asset ASC).
func SortPricePoints(points []*domain.PricePoint) {
	sort.SliceStable(points, func(i, j int) bool {
		return comparePricePoints(points[i], points[j]) < 0
	})
}

// ValidatePriceOrdering checks that bars are strictly ordered by (date, asset).
// Returns ErrInvalidOrdering if not; equal keys are duplicates and also fail.
func ValidatePriceOrdering(points []*domain.PricePoint) error {
	for i := 1; i < len(points); i++ {
		if comparePricePoints(points[i-1], points[i]) >= 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// comparePricePoints returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
//
// Order: (date ASC, asset ASC)
func comparePricePoints(a, b *domain.PricePoint) int {
	if !a.Date.Equal(b.Date) {
		if a.Date.Before(b.Date) {
			return -1
		}
		return 1
	}
	if a.Asset != b.Asset {
		if a.Asset < b.Asset {
			return -1
		}
		return 1
	}
	return 0
}
