package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"portfolio-montecarlo/internal/domain"
)

// Report represents a simulation report.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Run         *domain.SimulationRun

	// Portfolio composition, in run asset order
	Holdings []HoldingRow

	// Projection of an initial investment through the confidence interval.
	// Nil when no investment was given.
	Projection *ProjectionSection
}

// HoldingRow represents one asset in the portfolio table.
type HoldingRow struct {
	Asset      string
	Weight     float64
	LastClose  float64 // 0 if parameters are unknown (run loaded from storage)
	MeanReturn float64 // mean daily return
	StdDev     float64 // daily return volatility
	Samples    int
}

// ProjectionSection contains the projected portfolio value range.
type ProjectionSection struct {
	Currency string
	Initial  decimal.Decimal
	Lower    decimal.Decimal
	Upper    decimal.Decimal
}
