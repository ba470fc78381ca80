// Package app wires configuration, logging and storage for the commands.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"portfolio-montecarlo/internal/config"
	"portfolio-montecarlo/internal/logging"
	"portfolio-montecarlo/internal/storage"
	chstore "portfolio-montecarlo/internal/storage/clickhouse"
	"portfolio-montecarlo/internal/storage/memory"
	"portfolio-montecarlo/internal/storage/migrations"
	pgstore "portfolio-montecarlo/internal/storage/postgres"
)

// Stores holds the storage implementations used by the commands.
type Stores struct {
	Prices       storage.PriceStore
	Runs         storage.SimulationRunStore
	Trajectories storage.TrajectoryStore
}

// Setup loads the .env file and configuration, then builds the logger.
func Setup(configPath, envFile string) (*config.Config, *zap.Logger, error) {
	envErr := config.LoadEnvFile(envFile)

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	if envErr != nil {
		logger.Warn("ignoring env file", zap.Error(envErr))
	}
	return cfg, logger, nil
}

// OpenStores creates the stores for the configured backend.
// The returned cleanup closes database connections.
//
// Database backend: PostgreSQL for simulation_runs,
// ClickHouse for daily_prices and simulation_trajectories.
func OpenStores(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*Stores, func(), error) {
	if cfg.Backend == config.BackendMemory {
		logger.Info("using in-memory storage")
		return &Stores{
			Prices:       memory.NewPriceStore(),
			Runs:         memory.NewSimulationRunStore(),
			Trajectories: memory.NewTrajectoryStore(),
		}, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if cfg.Migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
	}

	// ClickHouse
	var chConn *chstore.Conn
	if cfg.Migrate {
		chConn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN, logger)
	} else {
		chConn, err = chstore.NewConn(ctx, cfg.ClickhouseDSN)
	}
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	stores := &Stores{
		Prices:       chstore.NewPriceStore(chConn),
		Runs:         pgstore.NewSimulationRunStore(pool),
		Trajectories: chstore.NewTrajectoryStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	logger.Info("using database storage", zap.Bool("migrated", cfg.Migrate))
	return stores, cleanup, nil
}
