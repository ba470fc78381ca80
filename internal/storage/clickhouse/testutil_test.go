package clickhouse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// migrationsGlob points at the SQL files embedded by the migrations package,
// which imports this one and so cannot be used here.
const migrationsGlob = "../migrations/clickhouse/*.sql"

// setupTestDB starts a ClickHouse container with the daily_prices and
// simulation_trajectories tables. The returned cleanup stops the container.
func setupTestDB(t *testing.T) (*Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "clickhouse/clickhouse-server:24.8-alpine",
			ExposedPorts: []string{"9000/tcp"},
			Env:          map[string]string{"CLICKHOUSE_DB": "sim"},
			WaitingFor: wait.ForListeningPort("9000/tcp").
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "start clickhouse container")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	conn, err := NewConn(ctx, fmt.Sprintf("clickhouse://default@%s:%s/sim", host, port.Port()))
	require.NoError(t, err)

	applySchema(t, ctx, conn)

	return conn, func() {
		_ = conn.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate clickhouse container: %v", err)
		}
	}
}

// applySchema runs the migration files in name order, one statement per Exec.
func applySchema(t *testing.T, ctx context.Context, conn *Conn) {
	t.Helper()

	files, err := filepath.Glob(migrationsGlob)
	require.NoError(t, err)
	require.NotEmpty(t, files, "no migrations matched %s", migrationsGlob)

	for _, file := range files {
		data, err := os.ReadFile(file)
		require.NoError(t, err)

		for _, stmt := range strings.Split(string(data), ";") {
			if !hasSQL(stmt) {
				continue
			}
			require.NoError(t, conn.Exec(ctx, stmt), "apply %s", filepath.Base(file))
		}
	}
}

// hasSQL reports whether stmt holds anything besides blanks and -- comments.
func hasSQL(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return true
		}
	}
	return false
}
