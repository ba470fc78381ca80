// Command ingest loads daily price CSV files into the price store.
//
// Usage:
//
//	ingest [flags] FILE.csv [FILE.csv ...]
//
// Files with an asset column may hold many assets; otherwise the asset is
// taken from --asset or the file name (AAPL.csv -> AAPL).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"portfolio-montecarlo/internal/app"
	"portfolio-montecarlo/internal/ingestion"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	envFile := flag.String("env-file", ".env", "Env file loaded before config")
	dir := flag.String("dir", "", "Load every *.csv file in this directory")
	asset := flag.String("asset", "", "Asset for files without an asset column (single file only)")
	flag.Parse()

	cfg, logger, err := app.Setup(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ingest: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	files := flag.Args()
	if *dir != "" {
		matches, err := filepath.Glob(filepath.Join(*dir, "*.csv"))
		if err != nil {
			logger.Fatal("list csv files", zap.Error(err))
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		logger.Fatal("no input files; pass CSV paths or --dir")
	}
	if *asset != "" && len(files) != 1 {
		logger.Fatal("--asset requires exactly one file")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stores, cleanup, err := app.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("open stores", zap.Error(err))
	}
	defer cleanup()

	loader := ingestion.NewLoader(ingestion.LoaderOptions{Store: stores.Prices, Logger: logger})

	total := 0
	for _, path := range files {
		n, err := loadOne(ctx, loader, path, *asset)
		if err != nil {
			logger.Error("ingest failed", zap.String("file", path), zap.Error(err))
			cleanup()
			os.Exit(1)
		}
		total += n
	}

	logger.Info("ingestion complete", zap.Int("files", len(files)), zap.Int("points", total))
}

func loadOne(ctx context.Context, loader *ingestion.Loader, path, asset string) (int, error) {
	if asset == "" {
		return loader.LoadFile(ctx, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return loader.Load(ctx, f, ingestion.CSVOptions{Asset: strings.ToUpper(asset)})
}
