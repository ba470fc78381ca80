package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Field identifies a per-asset column in a PriceTable.
type Field string

// Known price table fields.
const (
	FieldOpen        Field = "open"
	FieldHigh        Field = "high"
	FieldLow         Field = "low"
	FieldClose       Field = "close"
	FieldVolume      Field = "volume"
	FieldDailyReturn Field = "daily_return"
)

// ErrMalformedTable is returned by PriceTable.Validate for wrong-shaped tables.
var ErrMalformedTable = errors.New("malformed price table")

// PricePoint is one stored daily bar for an asset.
// Corresponds to daily_prices table in ClickHouse.
type PricePoint struct {
	Asset  string    // ticker / asset identifier
	Date   time.Time // trading day (UTC midnight)
	Open   float64
	High   float64
	Low    float64
	Close  float64 // required
	Volume float64
}

// PriceTable holds per-asset columns indexed by ascending dates.
// Columns are keyed by (asset, field); assets keep their insertion order,
// and fields keep their insertion order within an asset.
type PriceTable struct {
	dates   []time.Time
	assets  []string
	fields  map[string][]Field
	columns map[string]map[Field][]float64
}

// NewPriceTable creates an empty table over the given date index.
func NewPriceTable(dates []time.Time) *PriceTable {
	idx := make([]time.Time, len(dates))
	copy(idx, dates)
	return &PriceTable{
		dates:   idx,
		fields:  make(map[string][]Field),
		columns: make(map[string]map[Field][]float64),
	}
}

// SetColumn stores values for (asset, field). The slice is copied.
// The length must match the date index.
func (t *PriceTable) SetColumn(asset string, field Field, values []float64) error {
	if asset == "" {
		return fmt.Errorf("%w: empty asset identifier", ErrMalformedTable)
	}
	if len(values) != len(t.dates) {
		return fmt.Errorf("%w: column (%s, %s) has %d values, index has %d",
			ErrMalformedTable, asset, field, len(values), len(t.dates))
	}

	cols, ok := t.columns[asset]
	if !ok {
		cols = make(map[Field][]float64)
		t.columns[asset] = cols
		t.assets = append(t.assets, asset)
	}
	if _, exists := cols[field]; !exists {
		t.fields[asset] = append(t.fields[asset], field)
	}

	col := make([]float64, len(values))
	copy(col, values)
	cols[field] = col
	return nil
}

// Column returns the values for (asset, field). The returned slice must not be modified.
func (t *PriceTable) Column(asset string, field Field) ([]float64, bool) {
	cols, ok := t.columns[asset]
	if !ok {
		return nil, false
	}
	col, ok := cols[field]
	return col, ok
}

// HasField reports whether every asset carries the field.
func (t *PriceTable) HasField(field Field) bool {
	if len(t.assets) == 0 {
		return false
	}
	for _, a := range t.assets {
		if _, ok := t.columns[a][field]; !ok {
			return false
		}
	}
	return true
}

// Assets returns asset identifiers in column order.
func (t *PriceTable) Assets() []string {
	out := make([]string, len(t.assets))
	copy(out, t.assets)
	return out
}

// Fields returns the fields present for an asset, in insertion order.
func (t *PriceTable) Fields(asset string) []Field {
	out := make([]Field, len(t.fields[asset]))
	copy(out, t.fields[asset])
	return out
}

// Dates returns the date index.
func (t *PriceTable) Dates() []time.Time {
	out := make([]time.Time, len(t.dates))
	copy(out, t.dates)
	return out
}

// Len returns the number of rows.
func (t *PriceTable) Len() int {
	return len(t.dates)
}

// LastClose returns the final close price of an asset.
func (t *PriceTable) LastClose(asset string) (float64, bool) {
	col, ok := t.Column(asset, FieldClose)
	if !ok || len(col) == 0 {
		return 0, false
	}
	return col[len(col)-1], true
}

// Clone returns a deep copy of the table.
func (t *PriceTable) Clone() *PriceTable {
	c := NewPriceTable(t.dates)
	for _, a := range t.assets {
		for _, f := range t.fields[a] {
			// lengths already validated on insert
			_ = c.SetColumn(a, f, t.columns[a][f])
		}
	}
	return c
}

// Validate checks the structural invariants of the table:
// non-empty, strictly ascending dates, and a finite positive close column per asset.
func (t *PriceTable) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: nil table", ErrMalformedTable)
	}
	if len(t.dates) == 0 {
		return fmt.Errorf("%w: empty date index", ErrMalformedTable)
	}
	if len(t.assets) == 0 {
		return fmt.Errorf("%w: no asset columns", ErrMalformedTable)
	}
	for i := 1; i < len(t.dates); i++ {
		if !t.dates[i].After(t.dates[i-1]) {
			return fmt.Errorf("%w: dates not strictly ascending at row %d", ErrMalformedTable, i)
		}
	}
	for _, a := range t.assets {
		closes, ok := t.columns[a][FieldClose]
		if !ok {
			return fmt.Errorf("%w: asset %s has no %s column", ErrMalformedTable, a, FieldClose)
		}
		for i, c := range closes {
			if math.IsNaN(c) || math.IsInf(c, 0) || c <= 0 {
				return fmt.Errorf("%w: asset %s has invalid close %v at row %d", ErrMalformedTable, a, c, i)
			}
		}
	}
	return nil
}
