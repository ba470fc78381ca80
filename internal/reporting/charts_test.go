package reporting

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-montecarlo/internal/domain"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestRenderTrajectoryChart(t *testing.T) {
	img, err := RenderTrajectoryChart(testEnsemble())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngMagic))
}

func TestRenderTrajectoryChart_NotEnoughData(t *testing.T) {
	_, err := RenderTrajectoryChart(&domain.Ensemble{Trials: [][]float64{{1}}})
	assert.Error(t, err)

	_, err = RenderTrajectoryChart(nil)
	assert.Error(t, err)
}

func TestRenderDistributionChart(t *testing.T) {
	final := []float64{0.9, 0.95, 1.0, 1.02, 1.05, 1.1, 1.2}
	img, err := RenderDistributionChart(final, domain.ConfidenceInterval{Lower: 0.9, Upper: 1.2})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngMagic))

	_, err = RenderDistributionChart(nil, domain.ConfidenceInterval{})
	assert.Error(t, err)
}

func TestSampleTrials(t *testing.T) {
	ens := domain.NewEnsemble(250, 1)
	for i := range ens.Trials {
		ens.Trials[i][1] = float64(i)
	}

	sampled := sampleTrials(ens, 100)
	require.Len(t, sampled, 100)
	assert.Equal(t, 0.0, sampled[0][1])
	assert.Equal(t, 247.0, sampled[99][1])

	assert.Len(t, sampleTrials(ens, 300), 250)
}
