// Command verify re-simulates stored runs and checks that the stored
// summaries and trajectories are reproduced from the stored seed.
//
// Usage:
//
//	verify [flags] [RUN_ID ...]
//
// Without run IDs every stored run is verified.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"portfolio-montecarlo/internal/app"
	"portfolio-montecarlo/internal/verification"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	envFile := flag.String("env-file", ".env", "Env file loaded before config")
	summaryOnly := flag.Bool("summary-only", false, "Skip trajectory comparison")
	flag.Parse()

	cfg, logger, err := app.Setup(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "verify: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stores, cleanup, err := app.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("open stores", zap.Error(err))
	}
	defer cleanup()

	opts := verification.ReplayVerifierOptions{
		RunStore:        stores.Runs,
		PriceStore:      stores.Prices,
		TrajectoryStore: stores.Trajectories,
		Workers:         cfg.Simulation.Workers,
	}
	if *summaryOnly {
		opts.TrajectoryStore = nil
	}
	verifier := verification.NewReplayVerifier(opts)

	report, err := verify(ctx, verifier, flag.Args())
	if err != nil {
		logger.Error("verification failed", zap.Error(err))
		cleanup()
		os.Exit(1)
	}

	for _, r := range report.Results {
		if r.Match {
			logger.Info("run reproduced",
				zap.String("run_id", r.RunID),
				zap.Bool("paths_compared", r.PathsCompared),
			)
			continue
		}
		for _, d := range r.Divergences {
			logger.Warn("run diverged",
				zap.String("run_id", r.RunID),
				zap.String("field", d.Field),
				zap.Any("stored", d.Expected),
				zap.Any("replayed", d.Actual),
			)
		}
	}

	logger.Info("verification complete",
		zap.Int("total", report.TotalRuns),
		zap.Int("matched", report.MatchedRuns),
		zap.Int("divergent", report.DivergentRuns),
	)
	if report.DivergentRuns > 0 {
		cleanup()
		os.Exit(2)
	}
}

func verify(ctx context.Context, v *verification.ReplayVerifier, runIDs []string) (*verification.VerificationReport, error) {
	if len(runIDs) == 0 {
		return v.VerifyAll(ctx)
	}

	report := &verification.VerificationReport{TotalRuns: len(runIDs)}
	for _, id := range runIDs {
		result, err := v.VerifyRun(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("verify %s: %w", id, err)
		}
		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedRuns++
		} else {
			report.DivergentRuns++
		}
	}
	return report, nil
}
