package postgres

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// migrationsGlob points at the SQL files embedded by the migrations package,
// which imports this one and so cannot be used here.
const migrationsGlob = "../migrations/postgres/*.sql"

// setupTestDB starts a PostgreSQL container with the simulation_runs schema.
// The returned cleanup stops the container.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("runs"),
		postgres.WithUsername("sim"),
		postgres.WithPassword("sim"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)

	applySchema(t, ctx, pool)

	return pool, func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	}
}

// applySchema runs the migration files in name order.
func applySchema(t *testing.T, ctx context.Context, pool *Pool) {
	t.Helper()

	files, err := filepath.Glob(migrationsGlob)
	require.NoError(t, err)
	require.NotEmpty(t, files, "no migrations matched %s", migrationsGlob)

	for _, file := range files {
		sql, err := os.ReadFile(file)
		require.NoError(t, err)

		_, err = pool.Exec(ctx, string(sql))
		require.NoError(t, err, "apply %s", filepath.Base(file))
	}
}
