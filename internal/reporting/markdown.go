package reporting

import (
	"fmt"
	"strings"
	"time"

	"portfolio-montecarlo/internal/domain"
)

// TrajectoryChartTitle is the title of the fan chart of simulated paths.
func TrajectoryChartTitle(trials, horizonDays int) string {
	return fmt.Sprintf("%d Simulations of Cumulative Portfolio Return Trajectories Over the Next %d Trading Days.",
		trials, horizonDays)
}

// DistributionChartTitle is the title of the final return histogram.
func DistributionChartTitle(trials int) string {
	return fmt.Sprintf("Distribution of Final Cumulative Returns Across All %d Simulations", trials)
}

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder
	run := r.Run

	// Header
	sb.WriteString("# Monte Carlo Portfolio Forecast\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: `%s` | Trials: %d | Horizon: %d trading days | Seed: %d\n\n",
		run.RunID, run.Trials, run.HorizonDays, run.Seed))
	sb.WriteString(fmt.Sprintf("History: %s to %s\n\n",
		run.HistoryFrom.Format(time.DateOnly), run.HistoryTo.Format(time.DateOnly)))

	// Portfolio
	sb.WriteString("## Portfolio\n\n")
	sb.WriteString("| Asset | Weight | Last Close | Mean Daily Return | Daily Volatility | Samples |\n")
	sb.WriteString("|-------|--------|------------|-------------------|------------------|---------|\n")
	for _, h := range r.Holdings {
		if h.Samples == 0 {
			sb.WriteString(fmt.Sprintf("| %s | %.4f | - | - | - | - |\n", h.Asset, h.Weight))
			continue
		}
		sb.WriteString(fmt.Sprintf("| %s | %.4f | %.4f | %.6f | %.6f | %d |\n",
			h.Asset, h.Weight, h.LastClose, h.MeanReturn, h.StdDev, h.Samples))
	}
	sb.WriteString("\n")

	// Summary
	sb.WriteString("## Final Cumulative Return\n\n")
	sb.WriteString("| Statistic | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	for _, e := range run.Summary.Entries() {
		if e.Name == domain.SummaryCount {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", e.Name, int(e.Value)))
			continue
		}
		sb.WriteString(fmt.Sprintf("| %s | %.6f |\n", e.Name, e.Value))
	}
	sb.WriteString("\n")

	ci := run.Summary.CI
	sb.WriteString(fmt.Sprintf("There is a 95%% chance that the portfolio's cumulative return over the next %d trading days "+
		"will end within the range of %.4f to %.4f.\n\n", run.HorizonDays, ci.Lower, ci.Upper))

	// Projection
	if p := r.Projection; p != nil {
		sb.WriteString("## Projected Value\n\n")
		sb.WriteString(fmt.Sprintf("An initial investment of %s is expected to be worth between %s and %s "+
			"after %d trading days (95%% confidence).\n\n",
			FormatMoney(p.Initial, p.Currency),
			FormatMoney(p.Lower, p.Currency),
			FormatMoney(p.Upper, p.Currency),
			run.HorizonDays))
	}

	// Charts
	sb.WriteString("## Charts\n\n")
	sb.WriteString(fmt.Sprintf("- %s\n", TrajectoryChartTitle(run.Trials, run.HorizonDays)))
	sb.WriteString(fmt.Sprintf("- %s\n", DistributionChartTitle(run.Trials)))

	return sb.String()
}
