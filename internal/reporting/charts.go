package reporting

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	charts "github.com/vicanso/go-charts/v2"

	"portfolio-montecarlo/internal/domain"
	"portfolio-montecarlo/internal/metrics"
)

// Chart sizes in pixels.
const (
	ChartWidth  = 1000
	ChartHeight = 600
)

// MaxChartTrajectories caps the number of paths drawn in the fan chart.
const MaxChartTrajectories = 100

// RenderTrajectoryChart draws the simulated cumulative return paths as a PNG.
// Large ensembles are thinned to MaxChartTrajectories evenly spaced trials.
func RenderTrajectoryChart(ens *domain.Ensemble) ([]byte, error) {
	if ens == nil || ens.TrialCount() == 0 || ens.Steps() < 2 {
		return nil, errors.New("not enough data points")
	}

	values := sampleTrials(ens, MaxChartTrajectories)

	yMin, yMax := math.Inf(1), math.Inf(-1)
	for _, tr := range values {
		for _, v := range tr {
			yMin = math.Min(yMin, v)
			yMax = math.Max(yMax, v)
		}
	}
	pad := (yMax - yMin) * 0.05
	if pad == 0 {
		pad = 0.01
	}
	yMin -= pad
	yMax += pad

	steps := ens.Steps()
	xLabels := make([]string, steps)
	for t := range xLabels {
		xLabels[t] = strconv.Itoa(t)
	}

	trials := ens.TrialCount()
	p, err := charts.LineRender(values,
		charts.TitleTextOptionFunc(TrajectoryChartTitle(trials, steps-1)),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: xLabels, BoundaryGap: charts.FalseFlag(), SplitNumber: 10}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(ChartWidth),
		charts.HeightOptionFunc(ChartHeight),
	)
	if err != nil {
		return nil, err
	}
	return p.Bytes()
}

// RenderDistributionChart draws a density histogram of final cumulative returns as a PNG.
// The confidence interval bounds appear in the subtitle.
func RenderDistributionChart(final []float64, ci domain.ConfidenceInterval) ([]byte, error) {
	if len(final) == 0 {
		return nil, errors.New("no final values")
	}

	h := metrics.ComputeHistogram(final, metrics.DefaultHistogramBins, true)
	centers := h.BinCenters()
	xLabels := make([]string, len(centers))
	for i, c := range centers {
		xLabels[i] = strconv.FormatFloat(c, 'f', 3, 64)
	}

	p, err := charts.BarRender([][]float64{h.Counts},
		charts.TitleTextOptionFunc(DistributionChartTitle(len(final)),
			fmt.Sprintf("95%% CI: %.4f to %.4f", ci.Lower, ci.Upper)),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: xLabels}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(ChartWidth),
		charts.HeightOptionFunc(ChartHeight),
	)
	if err != nil {
		return nil, err
	}
	return p.Bytes()
}

// sampleTrials picks at most limit evenly spaced trials.
func sampleTrials(ens *domain.Ensemble, limit int) [][]float64 {
	n := ens.TrialCount()
	if n <= limit {
		return ens.Trials
	}
	out := make([][]float64, limit)
	for i := range out {
		out[i] = ens.Trials[i*n/limit]
	}
	return out
}
