package simulation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"portfolio-montecarlo/internal/domain"
)

func TestProjectValue(t *testing.T) {
	r := ProjectValue(decimal.NewFromInt(10000), domain.ConfidenceInterval{Lower: 0.8731, Upper: 1.45678})

	assert.True(t, r.Initial.Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, "8731", r.Lower.String())
	assert.Equal(t, "14567.8", r.Upper.String())
}

func TestProjectValue_RoundsToCents(t *testing.T) {
	r := ProjectValue(decimal.RequireFromString("333.33"), domain.ConfidenceInterval{Lower: 1.0001, Upper: 1.5})

	assert.Equal(t, "333.36", r.Lower.StringFixed(2))
	assert.Equal(t, "500", r.Upper.String())
}
