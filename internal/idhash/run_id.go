package idhash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mr-tron/base58"

	"portfolio-montecarlo/internal/domain"
)

// RunInputs identifies the inputs of a simulation run.
type RunInputs struct {
	Assets      []string
	Weights     []float64
	Trials      int
	HorizonDays int
	Seed        uint64
	HistoryFrom time.Time
	HistoryTo   time.Time
	PriceDigest string // HistoryDigest of the simulated table
}

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(assets|weights|trials|horizon|seed|from|to|price_digest)
// Weights are formatted with full precision; dates as YYYY-MM-DD.
// Returns base58-encoded hash.
func ComputeRunID(in RunInputs) string {
	weights := make([]string, len(in.Weights))
	for i, w := range in.Weights {
		weights[i] = strconv.FormatFloat(w, 'g', -1, 64)
	}

	data := fmt.Sprintf("%s|%s|%d|%d|%d|%s|%s|%s",
		strings.Join(in.Assets, ","),
		strings.Join(weights, ","),
		in.Trials,
		in.HorizonDays,
		in.Seed,
		in.HistoryFrom.UTC().Format(time.DateOnly),
		in.HistoryTo.UTC().Format(time.DateOnly),
		in.PriceDigest,
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}

// HistoryDigest fingerprints the price history a run was simulated from:
// the row count, every date, and the close column of each asset in the
// given order. Returns hex-encoded SHA256.
func HistoryDigest(table *domain.PriceTable, assets []string) string {
	h := sha256.New()
	var buf [8]byte

	binary.BigEndian.PutUint64(buf[:], uint64(table.Len()))
	h.Write(buf[:])
	for _, d := range table.Dates() {
		binary.BigEndian.PutUint64(buf[:], uint64(d.UTC().Unix()))
		h.Write(buf[:])
	}

	for _, a := range assets {
		h.Write([]byte(a))
		h.Write([]byte{0})
		closes, _ := table.Column(a, domain.FieldClose)
		for _, c := range closes {
			binary.BigEndian.PutUint64(buf[:], math.Float64bits(c))
			h.Write(buf[:])
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}
