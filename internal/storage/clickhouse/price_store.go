package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"portfolio-montecarlo/internal/domain"
	"portfolio-montecarlo/internal/storage"
)

// PriceStore implements storage.PriceStore using ClickHouse.
type PriceStore struct {
	conn *Conn
}

// NewPriceStore creates a new PriceStore.
func NewPriceStore(conn *Conn) *PriceStore {
	return &PriceStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceStore = (*PriceStore)(nil)

const selectPriceColumns = `
	SELECT asset, date, open, high, low, close, volume
	FROM daily_prices
`

// InsertBulk adds multiple bars. Fails entire batch on duplicate (asset, date).
func (s *PriceStore) InsertBulk(ctx context.Context, points []*domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		asset string
		date  string
	}
	seen := make(map[key]struct{})
	for _, p := range points {
		if p == nil || p.Asset == "" || p.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		k := key{p.Asset, dateString(p.Date)}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, p := range points {
		exists, err := s.exists(ctx, p.Asset, p.Date)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO daily_prices (
			asset, date, open, high, low, close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.Asset, p.Date.UTC(),
			p.Open, p.High, p.Low, p.Close, p.Volume,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByAsset retrieves all bars for an asset, ordered by date ASC.
func (s *PriceStore) GetByAsset(ctx context.Context, asset string) ([]*domain.PricePoint, error) {
	query := selectPriceColumns + `
		WHERE asset = ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, asset)
	if err != nil {
		return nil, fmt.Errorf("query by asset: %w", err)
	}
	defer rows.Close()

	return scanPricePoints(rows)
}

// GetByAssetsInRange retrieves bars for the assets within [start, end] (inclusive).
// A zero start or end leaves that side unbounded.
func (s *PriceStore) GetByAssetsInRange(ctx context.Context, assets []string, start, end time.Time) ([]*domain.PricePoint, error) {
	if len(assets) == 0 {
		return nil, nil
	}

	conds := []string{"asset IN (?)"}
	args := []any{assets}
	if !start.IsZero() {
		conds = append(conds, "date >= toDate(?)")
		args = append(args, dateString(start))
	}
	if !end.IsZero() {
		conds = append(conds, "date <= toDate(?)")
		args = append(args, dateString(end))
	}

	query := selectPriceColumns +
		" WHERE " + strings.Join(conds, " AND ") +
		" ORDER BY date ASC, asset ASC"

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query by assets in range: %w", err)
	}
	defer rows.Close()

	return scanPricePoints(rows)
}

// ListAssets returns the distinct stored assets in ascending order.
func (s *PriceStore) ListAssets(ctx context.Context) ([]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT DISTINCT asset FROM daily_prices ORDER BY asset ASC`)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	var assets []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("scan asset row: %w", err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate asset rows: %w", err)
	}
	return assets, nil
}

// exists checks if a bar with the given key exists.
func (s *PriceStore) exists(ctx context.Context, asset string, date time.Time) (bool, error) {
	query := `
		SELECT count(*) FROM daily_prices
		WHERE asset = ? AND date = toDate(?)
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, asset, dateString(date)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func dateString(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// scanPricePoints scans multiple rows.
func scanPricePoints(rows chRows) ([]*domain.PricePoint, error) {
	var points []*domain.PricePoint

	for rows.Next() {
		var p domain.PricePoint

		err := rows.Scan(
			&p.Asset, &p.Date,
			&p.Open, &p.High, &p.Low, &p.Close, &p.Volume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan daily price row: %w", err)
		}

		p.Date = p.Date.UTC()
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily price rows: %w", err)
	}

	return points, nil
}
