package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"portfolio-montecarlo/internal/domain"
)

// ErrInvalidCSV is returned for unreadable or malformed price files.
var ErrInvalidCSV = errors.New("invalid price csv")

// Accepted header names per column, lower-cased.
var headerAliases = map[string]string{
	"date":      "date",
	"timestamp": "date",
	"time":      "date",
	"asset":     "asset",
	"ticker":    "asset",
	"symbol":    "asset",
	"open":      "open",
	"high":      "high",
	"low":       "low",
	"close":     "close",
	"adj close": "close",
	"adj_close": "close",
	"volume":    "volume",
}

// Accepted date layouts, tried in order.
var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07:00",
	"01/02/2006",
}

// CSVOptions configures ReadPriceCSV.
type CSVOptions struct {
	// Asset is used when the file has no asset column (one file per ticker).
	// Like asset column values it is trimmed and upper-cased.
	Asset string
}

// ReadPriceCSV parses daily bars from CSV with a header row.
//
// Required columns: date and close, plus asset unless opts.Asset is set.
// Optional columns: open, high, low, volume. Unknown columns are ignored.
// Dates are normalized to UTC midnight. Rows with an empty close are skipped.
func ReadPriceCSV(r io.Reader, opts CSVOptions) ([]*domain.PricePoint, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrInvalidCSV)
		}
		return nil, fmt.Errorf("%w: read header: %w", ErrInvalidCSV, err)
	}

	cols := make(map[string]int)
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if canon, ok := headerAliases[name]; ok {
			if _, dup := cols[canon]; !dup {
				cols[canon] = i
			}
		}
	}
	for _, required := range []string{"date", "close"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: missing %s column", ErrInvalidCSV, required)
		}
	}
	defaultAsset := strings.ToUpper(strings.TrimSpace(opts.Asset))
	if _, ok := cols["asset"]; !ok && defaultAsset == "" {
		return nil, fmt.Errorf("%w: missing asset column and no default asset", ErrInvalidCSV)
	}

	var points []*domain.PricePoint
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidCSV, line, err)
		}

		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		if field("close") == "" {
			continue
		}

		p := &domain.PricePoint{Asset: defaultAsset}
		if a := field("asset"); a != "" {
			p.Asset = strings.ToUpper(a)
		}
		if p.Asset == "" {
			return nil, fmt.Errorf("%w: line %d: empty asset", ErrInvalidCSV, line)
		}

		p.Date, err = parseDate(field("date"))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidCSV, line, err)
		}

		numbers := []struct {
			name string
			dst  *float64
		}{
			{"close", &p.Close},
			{"open", &p.Open},
			{"high", &p.High},
			{"low", &p.Low},
			{"volume", &p.Volume},
		}
		for _, n := range numbers {
			raw := field(n.name)
			if raw == "" {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %s %q is not a number", ErrInvalidCSV, line, n.name, raw)
			}
			*n.dst = v
		}

		points = append(points, p)
	}

	return points, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			// calendar day as written, regardless of offset
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}
