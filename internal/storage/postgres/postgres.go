// Package postgres stores simulation run metadata in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"portfolio-montecarlo/internal/storage"
)

const (
	applicationName = "portfolio-montecarlo"
	maxConnIdleTime = 5 * time.Minute

	// unique_violation
	codeUniqueViolation = "23505"
)

// Pool is the connection pool shared by the PostgreSQL stores.
type Pool struct {
	*pgxpool.Pool
}

// NewPool connects to PostgreSQL and pings the server.
// Pool size and timeouts may be set in the DSN (pool_max_conns etc.).
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
	if cfg.MaxConnIdleTime == 0 || cfg.MaxConnIdleTime > maxConnIdleTime {
		cfg.MaxConnIdleTime = maxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Pool{Pool: pool}, nil
}

// translateError maps driver errors to storage sentinel errors.
// Other errors are wrapped with op.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return storage.ErrDuplicateKey
	}
	return fmt.Errorf("%s: %w", op, err)
}
