package ingestion

import (
	"errors"
	"testing"
	"time"

	"portfolio-montecarlo/internal/domain"
)

func d(day int) time.Time {
	return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
}

func TestSortPricePoints(t *testing.T) {
	// Intentionally unordered bars
	points := []*domain.PricePoint{
		{Asset: "MSFT", Date: d(3)},
		{Asset: "AAPL", Date: d(3)},
		{Asset: "MSFT", Date: d(2)},
		{Asset: "AAPL", Date: d(4)},
		{Asset: "AAPL", Date: d(2)},
	}

	SortPricePoints(points)

	expected := []struct {
		asset string
		day   int
	}{
		{"AAPL", 2},
		{"MSFT", 2},
		{"AAPL", 3},
		{"MSFT", 3},
		{"AAPL", 4},
	}

	for i, exp := range expected {
		if points[i].Asset != exp.asset || !points[i].Date.Equal(d(exp.day)) {
			t.Errorf("Index %d: got (%s, %v), want (%s, %v)",
				i, points[i].Asset, points[i].Date, exp.asset, d(exp.day))
		}
	}
}

func TestSortPricePoints_Empty(t *testing.T) {
	var points []*domain.PricePoint
	SortPricePoints(points) // Should not panic
}

func TestValidatePriceOrdering(t *testing.T) {
	ordered := []*domain.PricePoint{
		{Asset: "AAPL", Date: d(2)},
		{Asset: "MSFT", Date: d(2)},
		{Asset: "AAPL", Date: d(3)},
	}
	if err := ValidatePriceOrdering(ordered); err != nil {
		t.Errorf("Expected ordered bars to pass, got %v", err)
	}

	unordered := []*domain.PricePoint{
		{Asset: "AAPL", Date: d(3)},
		{Asset: "AAPL", Date: d(2)},
	}
	if err := ValidatePriceOrdering(unordered); !errors.Is(err, ErrInvalidOrdering) {
		t.Errorf("Expected ErrInvalidOrdering, got %v", err)
	}

	duplicate := []*domain.PricePoint{
		{Asset: "AAPL", Date: d(2)},
		{Asset: "AAPL", Date: d(2)},
	}
	if err := ValidatePriceOrdering(duplicate); !errors.Is(err, ErrInvalidOrdering) {
		t.Errorf("Expected ErrInvalidOrdering for duplicate, got %v", err)
	}
}
