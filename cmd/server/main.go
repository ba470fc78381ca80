// Command server serves the simulation API:
// - POST /v1/simulations, GET /v1/simulations[/{id}]
// - GET /v1/simulations/{id}/trajectories.png, distribution.png
// - GET /ws/simulations (streamed progress)
// - GET /health, /metrics
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"portfolio-montecarlo/internal/api"
	"portfolio-montecarlo/internal/app"
	"portfolio-montecarlo/internal/simulation"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	envFile := flag.String("env-file", ".env", "Env file loaded before config")
	addr := flag.String("addr", "", "HTTP listen address (default: config server.addr)")
	flag.Parse()

	cfg, logger, err := app.Setup(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stores, cleanup, err := app.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("open stores", zap.Error(err))
	}
	defer cleanup()

	runner := simulation.NewRunner(simulation.RunnerOptions{
		PriceStore:      stores.Prices,
		RunStore:        stores.Runs,
		TrajectoryStore: stores.Trajectories,
		Logger:          logger,
	})

	server := api.NewServer(api.Options{
		Runner:          runner,
		RunStore:        stores.Runs,
		TrajectoryStore: stores.Trajectories,
		Logger:          logger,
		Defaults:        cfg.SimulationDefaults(),
		MaxTrials:       cfg.Server.MaxTrials,
		RateLimit:       cfg.Server.RateLimit,
		RateBurst:       cfg.Server.RateBurst,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx, cfg.Server.Addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		cleanup()
		os.Exit(1)
	}
}
