package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"portfolio-montecarlo/internal/domain"
	"portfolio-montecarlo/internal/simulation"
	"portfolio-montecarlo/internal/storage"
)

// DefaultCurrency is used for projections when none is set.
const DefaultCurrency = "USD"

// Generator produces reports from simulation results or stored runs.
type Generator struct {
	runStore   storage.SimulationRunStore
	initial    decimal.Decimal
	currency   string
	hasInitial bool
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. runStore may be nil
// if reports are only built from in-memory results.
func NewGenerator(runStore storage.SimulationRunStore) *Generator {
	return &Generator{
		runStore: runStore,
		currency: DefaultCurrency,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithInvestment adds a projected value section for the given initial amount.
func (g *Generator) WithInvestment(amount decimal.Decimal, currency string) *Generator {
	g.initial = amount
	g.hasInitial = true
	if currency != "" {
		g.currency = currency
	}
	return g
}

// FromResult builds a report from a finished simulation.
func (g *Generator) FromResult(res *simulation.RunResult) *Report {
	return g.build(res.Run, res.Parameters)
}

// Generate builds a report for a stored run.
// Return parameters are not stored, so the holdings table only carries weights.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	if g.runStore == nil {
		return nil, fmt.Errorf("no run store configured")
	}
	run, err := g.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	return g.build(run, nil), nil
}

func (g *Generator) build(run *domain.SimulationRun, params []domain.ReturnParameters) *Report {
	byAsset := make(map[string]domain.ReturnParameters, len(params))
	for _, p := range params {
		byAsset[p.Asset] = p
	}

	holdings := make([]HoldingRow, len(run.Assets))
	for i, a := range run.Assets {
		row := HoldingRow{Asset: a}
		if i < len(run.Weights) {
			row.Weight = run.Weights[i]
		}
		if p, ok := byAsset[a]; ok {
			row.LastClose = p.LastClose
			row.MeanReturn = p.Mean
			row.StdDev = p.StdDev
			row.Samples = p.Samples
		}
		holdings[i] = row
	}

	r := &Report{
		GeneratedAt: g.now(),
		Run:         run,
		Holdings:    holdings,
	}

	if g.hasInitial {
		v := simulation.ProjectValue(g.initial, run.Summary.CI)
		r.Projection = &ProjectionSection{
			Currency: g.currency,
			Initial:  v.Initial,
			Lower:    v.Lower,
			Upper:    v.Upper,
		}
	}

	return r
}
