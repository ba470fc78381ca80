package ingestion

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPriceCSV_LongFormat(t *testing.T) {
	input := `date,asset,close,open,high,low,volume
2024-01-02,aapl,185.64,187.15,188.44,183.89,82488700
2024-01-02,MSFT,370.87,373.86,375.90,366.77,25258600
2024-01-03,AAPL,184.25,184.22,185.88,183.43,58414500
`
	points, err := ReadPriceCSV(strings.NewReader(input), CSVOptions{})
	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.Equal(t, "AAPL", points[0].Asset)
	assert.True(t, d(2).Equal(points[0].Date))
	assert.Equal(t, 185.64, points[0].Close)
	assert.Equal(t, 187.15, points[0].Open)
	assert.Equal(t, 188.44, points[0].High)
	assert.Equal(t, 183.89, points[0].Low)
	assert.Equal(t, 82488700.0, points[0].Volume)
	assert.Equal(t, "MSFT", points[1].Asset)
}

func TestReadPriceCSV_PerAssetFile(t *testing.T) {
	input := `timestamp,open,high,low,close,volume,trade_count
2020-07-14 00:00:00-04:00,97.26,99.96,96.49,97.06,112460040,12
2020-07-15 00:00:00-04:00,98.99,99.24,96.49,97.72,118046416,15
`
	points, err := ReadPriceCSV(strings.NewReader(input), CSVOptions{Asset: "AAPL"})
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, "AAPL", points[0].Asset)
	assert.Equal(t, 14, points[0].Date.Day())
	assert.Equal(t, 0, points[0].Date.Hour())
	assert.Equal(t, 97.72, points[1].Close)
}

func TestReadPriceCSV_DefaultAssetMatchesColumnCase(t *testing.T) {
	perAsset, err := ReadPriceCSV(strings.NewReader("date,close\n2024-01-02,10\n"), CSVOptions{Asset: " aaa "})
	require.NoError(t, err)
	long, err := ReadPriceCSV(strings.NewReader("date,asset,close\n2024-01-03,aaa,11\n"), CSVOptions{})
	require.NoError(t, err)

	require.Len(t, perAsset, 1)
	require.Len(t, long, 1)
	assert.Equal(t, "AAA", perAsset[0].Asset)
	assert.Equal(t, perAsset[0].Asset, long[0].Asset)
}

func TestReadPriceCSV_SkipsEmptyClose(t *testing.T) {
	input := "Date,Ticker,Adj Close\n2024-01-02,SPY,470.1\n2024-01-03,SPY,\n"
	points, err := ReadPriceCSV(strings.NewReader(input), CSVOptions{})
	require.NoError(t, err)
	assert.Len(t, points, 1)
}

func TestReadPriceCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  CSVOptions
	}{
		{"empty", "", CSVOptions{}},
		{"missing close", "date,asset\n2024-01-02,AAPL\n", CSVOptions{}},
		{"missing asset", "date,close\n2024-01-02,1\n", CSVOptions{}},
		{"bad date", "date,asset,close\nyesterday,AAPL,1\n", CSVOptions{}},
		{"bad number", "date,asset,close\n2024-01-02,AAPL,abc\n", CSVOptions{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadPriceCSV(strings.NewReader(tt.input), tt.opts)
			assert.True(t, errors.Is(err, ErrInvalidCSV), "got %v", err)
		})
	}
}
