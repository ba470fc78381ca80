package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"portfolio-montecarlo/internal/domain"
)

// RenderSummaryCSV renders summary statistics as CSV string, one statistic per row.
func RenderSummaryCSV(s *domain.Summary) string {
	var sb strings.Builder

	// Header
	sb.WriteString("statistic,value\n")

	// Rows
	for _, e := range s.Entries() {
		sb.WriteString(fmt.Sprintf("%s,%.6f\n", e.Name, e.Value))
	}

	return sb.String()
}

// WriteEnsembleCSV writes the ensemble as a step-by-trial grid:
// one row per step, one column per trial.
func WriteEnsembleCSV(w io.Writer, ens *domain.Ensemble) error {
	cw := csv.NewWriter(w)

	header := make([]string, ens.TrialCount()+1)
	header[0] = "step"
	for i := 0; i < ens.TrialCount(); i++ {
		header[i+1] = "trial_" + strconv.Itoa(i)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for t := 0; t < ens.Steps(); t++ {
		record[0] = strconv.Itoa(t)
		for i, tr := range ens.Trials {
			record[i+1] = strconv.FormatFloat(tr[t], 'f', 6, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
