package api

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"portfolio-montecarlo/internal/domain"
	"portfolio-montecarlo/internal/reporting"
	"portfolio-montecarlo/internal/simulation"
)

// SimulationRequest is the body of POST /v1/simulations and the first
// WebSocket message of a streamed simulation.
type SimulationRequest struct {
	Assets            []string  `json:"assets,omitempty"`             // empty = all stored assets
	Weights           []float64 `json:"weights,omitempty"`            // empty = equal weights
	From              string    `json:"from,omitempty"`               // YYYY-MM-DD, inclusive
	To                string    `json:"to,omitempty"`                 // YYYY-MM-DD, inclusive
	Trials            int       `json:"trials,omitempty"`             // 0 = server default
	HorizonDays       int       `json:"horizon_days,omitempty"`       // 0 = server default
	Seed              *uint64   `json:"seed,omitempty"`               // nil = random
	InitialInvestment string    `json:"initial_investment,omitempty"` // decimal string
	Currency          string    `json:"currency,omitempty"`           // ISO 4217, default USD
}

// toRunRequest validates the request against server limits and fills defaults.
func (r SimulationRequest) toRunRequest(defaults domain.SimulationConfig, maxTrials int) (simulation.RunRequest, error) {
	from, err := parseDay(r.From)
	if err != nil {
		return simulation.RunRequest{}, fmt.Errorf("from: %w", err)
	}
	to, err := parseDay(r.To)
	if err != nil {
		return simulation.RunRequest{}, fmt.Errorf("to: %w", err)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return simulation.RunRequest{}, fmt.Errorf("to %s is before from %s", r.To, r.From)
	}

	cfg := defaults
	if r.Trials != 0 {
		cfg.Trials = r.Trials
	}
	if r.HorizonDays != 0 {
		cfg.HorizonDays = r.HorizonDays
	}
	if r.Seed != nil {
		cfg.Seed = r.Seed
	}
	if cfg.Trials > maxTrials {
		return simulation.RunRequest{}, fmt.Errorf("trials %d exceeds limit %d", cfg.Trials, maxTrials)
	}
	if r.InitialInvestment != "" {
		if _, err := decimal.NewFromString(r.InitialInvestment); err != nil {
			return simulation.RunRequest{}, fmt.Errorf("initial_investment: %w", err)
		}
	}

	var weights []float64
	if len(r.Weights) > 0 {
		weights = r.Weights
	}

	return simulation.RunRequest{
		Assets:  r.Assets,
		From:    from,
		To:      to,
		Weights: weights,
		Config:  cfg,
	}, nil
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, s)
}

// SummaryResponse carries the summary statistics of final cumulative returns.
type SummaryResponse struct {
	Count   int     `json:"count"`
	Mean    float64 `json:"mean"`
	Std     float64 `json:"std"`
	Min     float64 `json:"min"`
	P25     float64 `json:"p25"`
	P50     float64 `json:"p50"`
	P75     float64 `json:"p75"`
	Max     float64 `json:"max"`
	CILower float64 `json:"ci_lower"`
	CIUpper float64 `json:"ci_upper"`
}

// ProjectionResponse is the projected value range of an initial investment.
type ProjectionResponse struct {
	Currency string          `json:"currency"`
	Initial  decimal.Decimal `json:"initial"`
	Lower    decimal.Decimal `json:"lower"`
	Upper    decimal.Decimal `json:"upper"`
	Display  string          `json:"display"`
}

// RunResponse describes a simulation run.
type RunResponse struct {
	RunID       string              `json:"run_id"`
	Assets      []string            `json:"assets"`
	Weights     []float64           `json:"weights"`
	Trials      int                 `json:"trials"`
	HorizonDays int                 `json:"horizon_days"`
	Seed        uint64              `json:"seed"`
	HistoryFrom string              `json:"history_from"`
	HistoryTo   string              `json:"history_to"`
	Summary     SummaryResponse     `json:"summary"`
	Projection  *ProjectionResponse `json:"projection,omitempty"`
	DurationMs  int64               `json:"duration_ms"`
	CreatedAt   time.Time           `json:"created_at"`
	Cached      bool                `json:"cached"`
}

func newRunResponse(run *domain.SimulationRun, cached bool) RunResponse {
	s := run.Summary
	return RunResponse{
		RunID:       run.RunID,
		Assets:      run.Assets,
		Weights:     run.Weights,
		Trials:      run.Trials,
		HorizonDays: run.HorizonDays,
		Seed:        run.Seed,
		HistoryFrom: run.HistoryFrom.Format(time.DateOnly),
		HistoryTo:   run.HistoryTo.Format(time.DateOnly),
		Summary: SummaryResponse{
			Count:   s.Count,
			Mean:    s.Mean,
			Std:     s.Std,
			Min:     s.Min,
			P25:     s.P25,
			P50:     s.P50,
			P75:     s.P75,
			Max:     s.Max,
			CILower: s.CI.Lower,
			CIUpper: s.CI.Upper,
		},
		DurationMs: run.DurationMs,
		CreatedAt:  run.CreatedAt,
		Cached:     cached,
	}
}

// withProjection adds the projected value range when the request asked for one.
func (resp RunResponse) withProjection(req SimulationRequest, ci domain.ConfidenceInterval) RunResponse {
	if req.InitialInvestment == "" {
		return resp
	}
	initial, err := decimal.NewFromString(req.InitialInvestment)
	if err != nil {
		return resp
	}
	currency := req.Currency
	if currency == "" {
		currency = reporting.DefaultCurrency
	}
	v := simulation.ProjectValue(initial, ci)
	resp.Projection = &ProjectionResponse{
		Currency: currency,
		Initial:  v.Initial,
		Lower:    v.Lower,
		Upper:    v.Upper,
		Display: fmt.Sprintf("%s to %s",
			reporting.FormatMoney(v.Lower, currency), reporting.FormatMoney(v.Upper, currency)),
	}
	return resp
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WebSocket message types.
const (
	TypeProgress = "progress"
	TypeResult   = "result"
	TypeError    = "error"
)

// Message is one WebSocket frame.
type Message struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id"`
	Data      interface{} `json:"data"`
}

// ProgressData reports completed trials.
type ProgressData struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}
