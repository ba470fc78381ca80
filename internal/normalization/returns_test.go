package normalization

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-montecarlo/internal/domain"
)

func makeDates(n int) []time.Time {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	return dates
}

func TestDailyReturns(t *testing.T) {
	got := DailyReturns([]float64{100, 110, 99})

	require.Len(t, got, 3)
	assert.True(t, math.IsNaN(got[0]), "first return must be NaN")
	assert.InDelta(t, 0.10, got[1], 1e-12)
	assert.InDelta(t, 99.0/110.0-1, got[2], 1e-12)
}

func TestDailyReturns_Empty(t *testing.T) {
	assert.Empty(t, DailyReturns(nil))
}

func TestWithDailyReturns_DerivesMissing(t *testing.T) {
	table := domain.NewPriceTable(makeDates(4))
	require.NoError(t, table.SetColumn("AAA", domain.FieldClose, []float64{100, 101, 102, 103}))
	require.NoError(t, table.SetColumn("BBB", domain.FieldClose, []float64{50, 49, 51, 52}))

	out, err := WithDailyReturns(table)
	require.NoError(t, err)

	assert.True(t, out.HasField(domain.FieldDailyReturn))
	assert.False(t, table.HasField(domain.FieldDailyReturn), "input table must not be mutated")

	ret, ok := out.Column("BBB", domain.FieldDailyReturn)
	require.True(t, ok)
	assert.True(t, math.IsNaN(ret[0]))
	for k := 1; k < 4; k++ {
		closes, _ := out.Column("BBB", domain.FieldClose)
		assert.InDelta(t, closes[k]/closes[k-1]-1, ret[k], 1e-15)
	}

	// grouping: close then daily_return for each asset, asset order kept
	assert.Equal(t, []string{"AAA", "BBB"}, out.Assets())
	assert.Equal(t, []domain.Field{domain.FieldClose, domain.FieldDailyReturn}, out.Fields("AAA"))
}

func TestWithDailyReturns_KeepsExisting(t *testing.T) {
	table := domain.NewPriceTable(makeDates(3))
	require.NoError(t, table.SetColumn("AAA", domain.FieldClose, []float64{10, 11, 12}))
	require.NoError(t, table.SetColumn("AAA", domain.FieldDailyReturn, []float64{math.NaN(), 0.5, 0.5}))

	out, err := WithDailyReturns(table)
	require.NoError(t, err)

	ret, _ := out.Column("AAA", domain.FieldDailyReturn)
	assert.Equal(t, 0.5, ret[1])
}

func TestWithDailyReturns_MissingClose(t *testing.T) {
	table := domain.NewPriceTable(makeDates(3))
	require.NoError(t, table.SetColumn("AAA", domain.FieldVolume, []float64{1, 2, 3}))

	_, err := WithDailyReturns(table)
	assert.ErrorIs(t, err, domain.ErrMalformedTable)
}
