package ingestion

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"portfolio-montecarlo/internal/domain"
	"portfolio-montecarlo/internal/observability"
	"portfolio-montecarlo/internal/storage"
)

// Loader moves daily bars from CSV sources into a price store.
// It enforces deterministic ordering and relies on the store for duplicate rejection.
type Loader struct {
	store  storage.PriceStore
	logger *zap.Logger
}

// LoaderOptions contains configuration for creating a Loader.
type LoaderOptions struct {
	Store  storage.PriceStore
	Logger *zap.Logger
}

// NewLoader creates a new loader.
func NewLoader(opts LoaderOptions) *Loader {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		store:  opts.Store,
		logger: logger,
	}
}

// Load parses CSV from r and stores the bars.
// Returns count of stored bars. Duplicates fail the whole batch (storage.ErrDuplicateKey).
func (l *Loader) Load(ctx context.Context, r io.Reader, opts CSVOptions) (int, error) {
	points, err := ReadPriceCSV(r, opts)
	if err != nil {
		return 0, err
	}
	return l.Store(ctx, points)
}

// LoadFile loads one CSV file. Without an asset column the file name
// (minus extension) is used as the asset, e.g. AAPL.csv.
func (l *Loader) LoadFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	asset := strings.ToUpper(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	n, err := l.Load(ctx, f, CSVOptions{Asset: asset})
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", path, err)
	}
	return n, nil
}

// Store sorts bars by (date, asset) and inserts them in one batch.
func (l *Loader) Store(ctx context.Context, points []*domain.PricePoint) (int, error) {
	if l.store == nil || len(points) == 0 {
		return 0, nil
	}

	SortPricePoints(points)

	start := time.Now()
	err := l.store.InsertBulk(ctx, points)
	observability.RecordDBQuery("prices", "insert_bulk", time.Since(start).Seconds(), err)
	if err != nil {
		return 0, err
	}

	observability.RecordPricePointsIngested(len(points))
	l.logger.Info("stored daily prices",
		zap.Int("points", len(points)),
		zap.Time("from", points[0].Date),
		zap.Time("to", points[len(points)-1].Date),
	)
	return len(points), nil
}

// Merge stores the bars whose (asset, date) is not stored yet and returns
// how many were inserted and how many were already present. Stored bars
// are never overwritten; a stored close that differs from the new one is logged.
func (l *Loader) Merge(ctx context.Context, points []*domain.PricePoint) (inserted, existing int, err error) {
	if l.store == nil || len(points) == 0 {
		return 0, 0, nil
	}

	SortPricePoints(points)

	assetSet := make(map[string]struct{})
	for _, p := range points {
		assetSet[p.Asset] = struct{}{}
	}
	assets := make([]string, 0, len(assetSet))
	for a := range assetSet {
		assets = append(assets, a)
	}

	start := time.Now()
	stored, err := l.store.GetByAssetsInRange(ctx, assets, points[0].Date, points[len(points)-1].Date)
	observability.RecordDBQuery("prices", "get_by_assets_in_range", time.Since(start).Seconds(), err)
	if err != nil {
		return 0, 0, fmt.Errorf("load stored prices: %w", err)
	}

	type key struct {
		asset string
		day   int64
	}
	closes := make(map[key]float64, len(stored))
	for _, p := range stored {
		closes[key{p.Asset, p.Date.UTC().Unix()}] = p.Close
	}

	fresh := make([]*domain.PricePoint, 0, len(points))
	for _, p := range points {
		c, ok := closes[key{p.Asset, p.Date.UTC().Unix()}]
		if !ok {
			fresh = append(fresh, p)
			continue
		}
		existing++
		if c != p.Close {
			l.logger.Warn("stored close differs from input, keeping stored bar",
				zap.String("asset", p.Asset),
				zap.Time("date", p.Date),
				zap.Float64("stored", c),
				zap.Float64("input", p.Close),
			)
		}
	}

	inserted, err = l.Store(ctx, fresh)
	if err != nil {
		return 0, existing, err
	}
	return inserted, existing, nil
}
