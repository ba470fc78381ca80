package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSimulationRun(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry(), "test")

	m.RecordSimulationRun(StatusSuccess, 100, 10, 0.5, 1700000000)
	m.RecordSimulationRun(StatusFailed, 100, 10, 0.1, 1700000001)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SimulationRunsTotal.WithLabelValues(StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SimulationRunsTotal.WithLabelValues(StatusFailed)))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.TrialsSimulated))
	assert.Equal(t, 1000.0, testutil.ToFloat64(m.StepsSimulated))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.LastSuccessfulRun))
}

func TestRecordDBQuery(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry(), "test")

	m.RecordDBQuery("postgres", "insert_run", 0.01, nil)
	m.RecordDBQuery("postgres", "insert_run", 0.02, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBQueryErrors.WithLabelValues("postgres", "insert_run")))
}

func TestSimulationStarted(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.ActiveSimulations)

	done := SimulationStarted()
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.ActiveSimulations))

	done()
	assert.Equal(t, before, testutil.ToFloat64(DefaultMetrics.ActiveSimulations))
}
