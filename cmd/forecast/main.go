// Command forecast runs a Monte Carlo portfolio simulation over daily price
// history and prints the summary report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"portfolio-montecarlo/internal/app"
	"portfolio-montecarlo/internal/domain"
	"portfolio-montecarlo/internal/ingestion"
	"portfolio-montecarlo/internal/reporting"
	"portfolio-montecarlo/internal/simulation"
	"portfolio-montecarlo/internal/storage"
	"portfolio-montecarlo/internal/storage/memory"
)

func main() {
	// Config
	configPath := flag.String("config", "", "YAML config file")
	envFile := flag.String("env-file", ".env", "Env file loaded before config")

	// Input
	csvFiles := flag.String("csv", "", "Comma-separated price CSV files (default: read from storage)")
	assets := flag.String("assets", "", "Comma-separated assets (default: all)")
	weights := flag.String("weights", "", "Comma-separated weights in asset order (default: equal)")
	from := flag.String("from", "", "First history date YYYY-MM-DD")
	to := flag.String("to", "", "Last history date YYYY-MM-DD")

	// Simulation (0 = config value)
	trials := flag.Int("trials", 0, "Number of simulated trajectories")
	horizon := flag.Int("horizon", 0, "Trading days to simulate")
	workers := flag.Int("workers", 0, "Parallel trial workers")
	seed := flag.String("seed", "", "Random seed for reproducible runs")

	// Output
	investment := flag.String("investment", "", "Initial investment for the projected value range")
	currency := flag.String("currency", "", "ISO 4217 currency of the investment")
	outputDir := flag.String("output-dir", "", "Directory for report files (default: config report.output_dir)")
	noFiles := flag.Bool("no-files", false, "Do not write report files")
	outputJSON := flag.Bool("json", false, "Print the run as JSON instead of Markdown")
	plain := flag.Bool("plain", false, "Print raw Markdown without terminal styling")
	persist := flag.Bool("persist", false, "Persist the run and trajectories to storage")

	flag.Parse()

	cfg, logger, err := app.Setup(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "forecast: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Create context with cancellation on signals
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	req, err := buildRequest(cfg.SimulationDefaults(), *assets, *weights, *from, *to, *trials, *horizon, *workers, *seed)
	if err != nil {
		logger.Fatal("invalid flags", zap.Error(err))
	}

	// Storage is only opened when it is read from or written to
	var (
		prices       storage.PriceStore
		runs         storage.SimulationRunStore
		trajectories storage.TrajectoryStore
	)
	if *csvFiles == "" || *persist {
		stores, cleanup, err := app.OpenStores(ctx, cfg.Storage, logger)
		if err != nil {
			logger.Fatal("open stores", zap.Error(err))
		}
		defer cleanup()
		prices = stores.Prices
		if *persist {
			runs = stores.Runs
			trajectories = stores.Trajectories
		}
	}

	if *csvFiles != "" {
		// Persisted runs keep their bars in storage so they can be replayed later
		var persistTo storage.PriceStore
		if *persist {
			persistTo = prices
		}
		prices, err = loadCSV(ctx, splitList(*csvFiles), persistTo, logger)
		if err != nil {
			logger.Fatal("load csv", zap.Error(err))
		}
	}

	runner := simulation.NewRunner(simulation.RunnerOptions{
		PriceStore:      prices,
		RunStore:        runs,
		TrajectoryStore: trajectories,
		Logger:          logger,
	})

	res, err := runner.Run(ctx, req)
	if err != nil {
		logger.Fatal("simulation failed", zap.Error(err))
	}

	gen := reporting.NewGenerator(nil)
	amount, ok := cfg.InitialInvestment()
	if *investment != "" {
		amount, err = decimal.NewFromString(*investment)
		if err != nil {
			logger.Fatal("invalid --investment", zap.Error(err))
		}
		ok = true
	}
	if ok {
		cur := cfg.Report.Currency
		if *currency != "" {
			cur = strings.ToUpper(*currency)
		}
		gen = gen.WithInvestment(amount, cur)
	}
	report := gen.FromResult(res)

	if !*noFiles {
		dir := cfg.Report.OutputDir
		if *outputDir != "" {
			dir = *outputDir
		}
		paths, err := reporting.WriteFiles(dir, report, res.Ensemble, reporting.AllFiles)
		if err != nil {
			logger.Fatal("write report files", zap.Error(err))
		}
		logger.Info("wrote report files", zap.Strings("paths", paths))
	}

	// Output result
	if *outputJSON {
		output, _ := json.MarshalIndent(res.Run, "", "  ")
		fmt.Println(string(output))
		return
	}
	printMarkdown(reporting.RenderMarkdown(report), *plain)
}

// loadCSV reads the CSV files into an in-memory price store. With persistTo
// set, bars not yet in persistTo are added to it as well.
func loadCSV(ctx context.Context, paths []string, persistTo storage.PriceStore, logger *zap.Logger) (storage.PriceStore, error) {
	csvStore := memory.NewPriceStore()
	loader := ingestion.NewLoader(ingestion.LoaderOptions{Store: csvStore, Logger: logger})
	for _, path := range paths {
		if _, err := loader.LoadFile(ctx, path); err != nil {
			return nil, err
		}
	}
	if persistTo == nil {
		return csvStore, nil
	}

	assets, err := csvStore.ListAssets(ctx)
	if err != nil {
		return nil, err
	}
	points, err := csvStore.GetByAssetsInRange(ctx, assets, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	inserted, existing, err := ingestion.NewLoader(ingestion.LoaderOptions{Store: persistTo, Logger: logger}).Merge(ctx, points)
	if err != nil {
		return nil, fmt.Errorf("persist csv prices: %w", err)
	}
	logger.Info("persisted csv prices", zap.Int("inserted", inserted), zap.Int("already_stored", existing))
	return csvStore, nil
}

// buildRequest converts CLI flags into a run request over the config defaults.
func buildRequest(defaults domain.SimulationConfig, assets, weights, from, to string, trials, horizon, workers int, seed string) (simulation.RunRequest, error) {
	req := simulation.RunRequest{Config: defaults}

	for _, a := range splitList(assets) {
		req.Assets = append(req.Assets, strings.ToUpper(a))
	}
	for _, w := range splitList(weights) {
		v, err := strconv.ParseFloat(w, 64)
		if err != nil {
			return req, fmt.Errorf("weight %q: %w", w, err)
		}
		req.Weights = append(req.Weights, v)
	}

	var err error
	if from != "" {
		if req.From, err = time.Parse(time.DateOnly, from); err != nil {
			return req, fmt.Errorf("--from: %w", err)
		}
	}
	if to != "" {
		if req.To, err = time.Parse(time.DateOnly, to); err != nil {
			return req, fmt.Errorf("--to: %w", err)
		}
	}

	if trials != 0 {
		req.Config.Trials = trials
	}
	if horizon != 0 {
		req.Config.HorizonDays = horizon
	}
	if workers != 0 {
		req.Config.Workers = workers
	}
	if seed != "" {
		s, err := strconv.ParseUint(seed, 10, 64)
		if err != nil {
			return req, fmt.Errorf("--seed: %w", err)
		}
		req.Config.Seed = &s
	}
	return req, nil
}

// printMarkdown renders Markdown for the terminal, falling back to raw text.
func printMarkdown(md string, plain bool) {
	if !plain {
		if out, err := glamour.Render(md, "auto"); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Print(md)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
