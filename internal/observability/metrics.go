// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run status labels.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusCached  = "cached"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Simulation metrics
	SimulationRunsTotal *prometheus.CounterVec
	SimulationDuration  prometheus.Histogram
	TrialsSimulated     prometheus.Counter
	StepsSimulated      prometheus.Counter
	ActiveSimulations   prometheus.Gauge

	// Ingestion metrics
	PricePointsIngested prometheus.Counter

	// Reporting metrics
	ReportsGenerated *prometheus.CounterVec

	// API metrics
	HTTPRequestDuration *prometheus.HistogramVec
	WSClients           prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered with the default registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith creates a Metrics instance registered with reg.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "portfolio_montecarlo"
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Simulation metrics
		SimulationRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "runs_total",
			Help:      "Total number of simulation runs by status",
		}, []string{"status"}),
		SimulationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "duration_seconds",
			Help:      "Simulation run duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
		TrialsSimulated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "trials_total",
			Help:      "Total number of Monte Carlo trials simulated",
		}),
		StepsSimulated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "steps_total",
			Help:      "Total number of simulated trading days across all trials",
		}),
		ActiveSimulations: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "active",
			Help:      "Number of simulations currently running",
		}),

		// Ingestion metrics
		PricePointsIngested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "price_points_total",
			Help:      "Total number of daily price points stored",
		}),

		// Reporting metrics
		ReportsGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporting",
			Name:      "generated_total",
			Help:      "Total number of reports and charts generated by kind",
		}, []string{"kind"}),

		// API metrics
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "code"}),
		WSClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "websocket_clients",
			Help:      "Number of connected WebSocket clients",
		}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful simulation run",
		}),
	}
}

// RecordSimulationRun records a finished simulation run.
func (m *Metrics) RecordSimulationRun(status string, trials, horizonDays int, durationSeconds float64, unixTime int64) {
	m.SimulationRunsTotal.WithLabelValues(status).Inc()
	if status != StatusSuccess {
		return
	}
	m.SimulationDuration.Observe(durationSeconds)
	m.TrialsSimulated.Add(float64(trials))
	m.StepsSimulated.Add(float64(trials * horizonDays))
	m.LastSuccessfulRun.Set(float64(unixTime))
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSimulationRun records a finished run on DefaultMetrics.
func RecordSimulationRun(status string, trials, horizonDays int, durationSeconds float64, unixTime int64) {
	DefaultMetrics.RecordSimulationRun(status, trials, horizonDays, durationSeconds, unixTime)
}

// SimulationStarted increments the active simulations gauge.
// The returned func decrements it.
func SimulationStarted() func() {
	DefaultMetrics.ActiveSimulations.Inc()
	return DefaultMetrics.ActiveSimulations.Dec
}

// RecordPricePointsIngested adds n to the ingested price points counter.
func RecordPricePointsIngested(n int) {
	DefaultMetrics.PricePointsIngested.Add(float64(n))
}

// RecordReportGenerated increments the reports counter for kind (markdown, csv, chart).
func RecordReportGenerated(kind string) {
	DefaultMetrics.ReportsGenerated.WithLabelValues(kind).Inc()
}

// RecordHTTPRequest records an API request.
func RecordHTTPRequest(route, code string, seconds float64) {
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(route, code).Observe(seconds)
}

// WSClientConnected increments the WebSocket client gauge.
// The returned func decrements it.
func WSClientConnected() func() {
	DefaultMetrics.WSClients.Inc()
	return DefaultMetrics.WSClients.Dec
}

// RecordDBQuery records database query metrics on DefaultMetrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.RecordDBQuery(database, operation, seconds, err)
}
