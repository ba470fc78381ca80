package idhash

import (
	"testing"
	"time"

	"github.com/mr-tron/base58"

	"portfolio-montecarlo/internal/domain"
)

func baseInputs() RunInputs {
	return RunInputs{
		Assets:      []string{"AAPL", "MSFT"},
		Weights:     []float64{0.6, 0.4},
		Trials:      500,
		HorizonDays: 252,
		Seed:        42,
		HistoryFrom: time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC),
		HistoryTo:   time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	}
}

func TestComputeRunID_Determinism(t *testing.T) {
	in := baseInputs()

	results := make([]string, 10)
	for i := 0; i < 10; i++ {
		results[i] = ComputeRunID(in)
	}

	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Errorf("Determinism failed: results[%d]=%s != results[0]=%s", i, results[i], results[0])
		}
	}
}

func TestComputeRunID_DecodesToSHA256(t *testing.T) {
	got := ComputeRunID(baseInputs())

	raw, err := base58.Decode(got)
	if err != nil {
		t.Fatalf("ComputeRunID() is not base58: %v", err)
	}
	if len(raw) != 32 {
		t.Errorf("decoded length = %d, want 32", len(raw))
	}
}

func TestComputeRunID_DifferentInputs(t *testing.T) {
	base := ComputeRunID(baseInputs())

	tests := []struct {
		name   string
		mutate func(*RunInputs)
	}{
		{"assets", func(in *RunInputs) { in.Assets = []string{"MSFT", "AAPL"} }},
		{"weights", func(in *RunInputs) { in.Weights = []float64{0.5, 0.5} }},
		{"trials", func(in *RunInputs) { in.Trials = 501 }},
		{"horizon", func(in *RunInputs) { in.HorizonDays = 21 }},
		{"seed", func(in *RunInputs) { in.Seed = 43 }},
		{"history from", func(in *RunInputs) { in.HistoryFrom = in.HistoryFrom.AddDate(0, 0, 1) }},
		{"history to", func(in *RunInputs) { in.HistoryTo = in.HistoryTo.AddDate(0, 0, 1) }},
		{"price digest", func(in *RunInputs) { in.PriceDigest = "ff" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInputs()
			tt.mutate(&in)
			if ComputeRunID(in) == base {
				t.Errorf("different %s should produce different hash", tt.name)
			}
		})
	}
}

func historyTable(t *testing.T, closes map[string][]float64, order ...string) *domain.PriceTable {
	t.Helper()
	dates := make([]time.Time, len(closes[order[0]]))
	for i := range dates {
		dates[i] = time.Date(2024, 1, 2+i, 0, 0, 0, 0, time.UTC)
	}
	table := domain.NewPriceTable(dates)
	for _, a := range order {
		if err := table.SetColumn(a, domain.FieldClose, closes[a]); err != nil {
			t.Fatalf("SetColumn(%s) error = %v", a, err)
		}
	}
	return table
}

func TestHistoryDigest(t *testing.T) {
	assets := []string{"AAA", "BBB"}
	base := historyTable(t, map[string][]float64{"AAA": {10, 11, 12}, "BBB": {20, 21, 22}}, assets...)
	same := historyTable(t, map[string][]float64{"AAA": {10, 11, 12}, "BBB": {20, 21, 22}}, assets...)
	changed := historyTable(t, map[string][]float64{"AAA": {10, 11, 12.5}, "BBB": {20, 21, 22}}, assets...)

	digest := HistoryDigest(base, assets)
	if len(digest) != 64 {
		t.Fatalf("digest length = %d, want 64", len(digest))
	}
	if got := HistoryDigest(same, assets); got != digest {
		t.Errorf("identical history digest = %s, want %s", got, digest)
	}
	if HistoryDigest(changed, assets) == digest {
		t.Error("changed close should change the digest")
	}
	if HistoryDigest(base, []string{"BBB", "AAA"}) == digest {
		t.Error("asset order should change the digest")
	}
}
