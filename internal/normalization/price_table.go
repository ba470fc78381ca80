package normalization

import (
	"fmt"
	"sort"
	"time"

	"portfolio-montecarlo/internal/domain"
)

// BuildPriceTable assembles a PriceTable from stored daily bars.
//
// Alignment rules:
//   - dates are normalized to UTC midnight
//   - only dates where every requested asset has a bar are kept (inner join)
//   - duplicate (asset, date) bars: LAST one in input order wins
//   - assets appear in the requested order; open/high/low/volume columns are
//     carried alongside close
//
// If assets is empty, every asset in points is used in order of first appearance.
func BuildPriceTable(points []*domain.PricePoint, assets []string) (*domain.PriceTable, error) {
	if len(assets) == 0 {
		seen := make(map[string]struct{})
		for _, p := range points {
			if _, ok := seen[p.Asset]; !ok {
				seen[p.Asset] = struct{}{}
				assets = append(assets, p.Asset)
			}
		}
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("%w: no price points", domain.ErrMalformedTable)
	}

	byAsset := make(map[string]map[time.Time]*domain.PricePoint, len(assets))
	for _, a := range assets {
		byAsset[a] = make(map[time.Time]*domain.PricePoint)
	}
	for _, p := range points {
		bars, ok := byAsset[p.Asset]
		if !ok {
			continue
		}
		bars[TradingDay(p.Date)] = p
	}

	// Inner join on dates
	var dates []time.Time
	for d := range byAsset[assets[0]] {
		inAll := true
		for _, a := range assets[1:] {
			if _, ok := byAsset[a][d]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			dates = append(dates, d)
		}
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("%w: no dates shared by all assets %v", domain.ErrMalformedTable, assets)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	table := domain.NewPriceTable(dates)
	for _, a := range assets {
		open := make([]float64, len(dates))
		high := make([]float64, len(dates))
		low := make([]float64, len(dates))
		closes := make([]float64, len(dates))
		volume := make([]float64, len(dates))
		for i, d := range dates {
			bar := byAsset[a][d]
			open[i] = bar.Open
			high[i] = bar.High
			low[i] = bar.Low
			closes[i] = bar.Close
			volume[i] = bar.Volume
		}
		// close first so it leads the asset's column group
		columns := []struct {
			field  domain.Field
			values []float64
		}{
			{domain.FieldClose, closes},
			{domain.FieldOpen, open},
			{domain.FieldHigh, high},
			{domain.FieldLow, low},
			{domain.FieldVolume, volume},
		}
		for _, c := range columns {
			if err := table.SetColumn(a, c.field, c.values); err != nil {
				return nil, err
			}
		}
	}

	return table, nil
}

// TradingDay truncates a timestamp to UTC midnight.
func TradingDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
