package simulation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-montecarlo/internal/domain"
)

func TestEstimateParameters(t *testing.T) {
	table := domain.NewPriceTable(dates(3))
	require.NoError(t, table.SetColumn("AAA", domain.FieldClose, []float64{100, 101, 103}))
	require.NoError(t, table.SetColumn("AAA", domain.FieldDailyReturn, []float64{math.NaN(), 0.01, 0.03}))

	params, err := EstimateParameters(table)
	require.NoError(t, err)
	require.Len(t, params, 1)

	p := params[0]
	assert.Equal(t, "AAA", p.Asset)
	assert.Equal(t, 103.0, p.LastClose)
	assert.Equal(t, 2, p.Samples)
	assert.InDelta(t, 0.02, p.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(0.0002), p.StdDev, 1e-12)
}

func TestEstimateParameters_MissingReturns(t *testing.T) {
	table := domain.NewPriceTable(dates(3))
	require.NoError(t, table.SetColumn("AAA", domain.FieldClose, []float64{100, 101, 103}))

	_, err := EstimateParameters(table)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEstimateParameters_TooFewSamples(t *testing.T) {
	table := domain.NewPriceTable(dates(3))
	require.NoError(t, table.SetColumn("AAA", domain.FieldClose, []float64{100, 101, 103}))
	require.NoError(t, table.SetColumn("AAA", domain.FieldDailyReturn, []float64{math.NaN(), math.NaN(), 0.03}))

	_, err := EstimateParameters(table)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}
