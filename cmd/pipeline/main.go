// Package main runs the feature pipeline once:
// ingestion → normalization → aggregation → features → split → training → reporting
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"revenue-feature-lab/internal/config"
	"revenue-feature-lab/internal/ingestion"
	"revenue-feature-lab/internal/logger"
	"revenue-feature-lab/internal/observability"
	"revenue-feature-lab/internal/pipeline"
	"revenue-feature-lab/internal/stores"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (yaml, json or toml)")
	outputDir := flag.String("output-dir", "", "Output directory for generated files (overrides config)")
	inputDir := flag.String("input-dir", "", "Directory of daily CSV files (overrides config, fixtures when empty)")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *inputDir != "" {
		cfg.InputDir = *inputDir
	}

	log, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("pipeline failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	set, err := stores.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer set.Close()

	manager := ingestion.NewManager(ingestion.ManagerOptions{
		Source:    source(cfg),
		RateStore: set.Rates,
		Logger:    log,
	})

	runner := pipeline.NewRunner(set.Metrics, set.Features, pipeline.Options{
		Normalization: cfg.Normalization(),
		Features:      cfg.Features(),
		TrainFraction: cfg.TrainFraction,
	}).
		WithRunStore(set.Runs).
		WithLogger(log).
		WithMetrics(observability.NewMetrics(cfg.MetricsNamespace)).
		WithOutputDir(cfg.OutputDir)

	res, err := runner.RunFrom(ctx, manager)
	if err != nil {
		return err
	}

	fmt.Println("Pipeline completed successfully:")
	fmt.Printf("  Run:          %s\n", res.RunID)
	fmt.Printf("  Input rows:   %d\n", res.InputRows)
	fmt.Printf("  Transactions: %d\n", len(res.Transactions))
	fmt.Printf("  Metric rows:  %d\n", len(res.Metrics))
	fmt.Printf("  Feature rows: %d (fit %d, eval %d)\n", len(res.Features), res.Run.FitRows, res.Run.EvalRows)
	if res.EvalScore != nil {
		fmt.Printf("  Eval MAE:     %.4f\n", res.EvalScore.MAE)
	}
	for _, path := range res.Reports {
		fmt.Printf("  - %s\n", path)
	}
	return nil
}

// source reads daily CSV files from the input directory when one is set and
// falls back to the built-in fixtures otherwise.
func source(cfg *config.Config) ingestion.Source {
	if cfg.InputDir != "" {
		return ingestion.NewDirSource(cfg.InputDir)
	}
	return pipeline.Fixtures()
}
