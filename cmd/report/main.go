// Package main regenerates the CSV and Markdown reports from persisted
// metrics and feature rows.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"revenue-feature-lab/internal/config"
	"revenue-feature-lab/internal/ingestion"
	"revenue-feature-lab/internal/logger"
	"revenue-feature-lab/internal/pipeline"
	"revenue-feature-lab/internal/reporting"
	"revenue-feature-lab/internal/stores"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (yaml, json or toml)")
	outputDir := flag.String("output-dir", "", "Output directory for generated files (overrides config)")
	useFixtures := flag.Bool("use-fixtures", false, "Run the pipeline over in-memory fixtures instead of reading databases")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}

	// Validate flags
	if !*useFixtures && (cfg.PostgresDSN == "" || cfg.ClickhouseDSN == "") {
		fmt.Fprintln(os.Stderr, "Error: postgres_dsn and clickhouse_dsn are required when not using fixtures")
		fmt.Fprintln(os.Stderr, "Use --use-fixtures to run with demo data instead")
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	var set *stores.Set
	if *useFixtures {
		set = stores.Memory()
		if err := seed(ctx, cfg, set, log); err != nil {
			fmt.Fprintf(os.Stderr, "Error running fixtures: %v\n", err)
			os.Exit(1)
		}
	} else {
		set, err = stores.Open(ctx, cfg, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to databases: %v\n", err)
			os.Exit(1)
		}
	}
	defer set.Close()

	report, err := reporting.NewGenerator(set.Metrics, set.Features, set.Runs).Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	paths, err := reporting.WriteFiles(cfg.OutputDir, report)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing reports: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Report generation completed:")
	for _, p := range paths {
		fmt.Printf("  - %s\n", p)
	}
}

// seed fills the memory stores with one pipeline run over the fixtures.
// Reports are written afterwards by the generator, not by the run.
func seed(ctx context.Context, cfg *config.Config, set *stores.Set, log *zap.Logger) error {
	fixedTime := time.Date(2024, 10, 12, 12, 0, 0, 0, time.UTC)
	manager := ingestion.NewManager(ingestion.ManagerOptions{
		Source:    pipeline.Fixtures(),
		RateStore: set.Rates,
		Logger:    log,
	})
	_, err := pipeline.NewRunner(set.Metrics, set.Features, pipeline.Options{
		Normalization: cfg.Normalization(),
		Features:      cfg.Features(),
		TrainFraction: cfg.TrainFraction,
	}).
		WithRunStore(set.Runs).
		WithLogger(log).
		WithClock(func() time.Time { return fixedTime }).
		RunFrom(ctx, manager)
	return err
}
