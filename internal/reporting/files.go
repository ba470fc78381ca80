package reporting

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"portfolio-montecarlo/internal/domain"
	"portfolio-montecarlo/internal/observability"
)

// Output file names written by WriteFiles.
const (
	MarkdownFile          = "report.md"
	SummaryCSVFile        = "summary.csv"
	TrajectoriesCSVFile   = "trajectories.csv"
	TrajectoryChartFile   = "trajectories.png"
	DistributionChartFile = "distribution.png"
)

// Files selects which outputs WriteFiles produces.
type Files struct {
	Markdown     bool
	SummaryCSV   bool
	Trajectories bool // full ensemble CSV
	Charts       bool
}

// AllFiles enables every output.
var AllFiles = Files{Markdown: true, SummaryCSV: true, Trajectories: true, Charts: true}

// WriteFiles writes the selected outputs into dir, creating it if needed.
// Returns the written paths in order.
func WriteFiles(dir string, r *Report, ens *domain.Ensemble, which Files) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var written []string
	write := func(name, kind string, data []byte) error {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		observability.RecordReportGenerated(kind)
		written = append(written, path)
		return nil
	}

	if which.Markdown {
		if err := write(MarkdownFile, "markdown", []byte(RenderMarkdown(r))); err != nil {
			return written, err
		}
	}
	if which.SummaryCSV {
		if err := write(SummaryCSVFile, "csv", []byte(RenderSummaryCSV(&r.Run.Summary))); err != nil {
			return written, err
		}
	}
	if ens == nil {
		return written, nil
	}

	if which.Trajectories {
		var buf bytes.Buffer
		if err := WriteEnsembleCSV(&buf, ens); err != nil {
			return written, fmt.Errorf("render trajectories csv: %w", err)
		}
		if err := write(TrajectoriesCSVFile, "csv", buf.Bytes()); err != nil {
			return written, err
		}
	}
	if which.Charts {
		fan, err := RenderTrajectoryChart(ens)
		if err != nil {
			return written, fmt.Errorf("render trajectory chart: %w", err)
		}
		if err := write(TrajectoryChartFile, "chart", fan); err != nil {
			return written, err
		}
		hist, err := RenderDistributionChart(ens.FinalValues(), r.Run.Summary.CI)
		if err != nil {
			return written, fmt.Errorf("render distribution chart: %w", err)
		}
		if err := write(DistributionChartFile, "chart", hist); err != nil {
			return written, err
		}
	}

	return written, nil
}
