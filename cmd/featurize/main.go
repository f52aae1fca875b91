// Package main prints the prediction-time feature vector of one entity and
// day, built only from metric history strictly before that day.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"revenue-feature-lab/internal/config"
	"revenue-feature-lab/internal/domain"
	"revenue-feature-lab/internal/features"
	"revenue-feature-lab/internal/forecast"
	"revenue-feature-lab/internal/ingestion"
	"revenue-feature-lab/internal/logger"
	"revenue-feature-lab/internal/pipeline"
	"revenue-feature-lab/internal/stores"
)

type output struct {
	EntityID       string             `json:"entity_id"`
	Day            string             `json:"day"`
	FeatureDay     string             `json:"feature_day"`
	HistoricalDays int                `json:"historical_days"`
	Recent7dAvg    float64            `json:"recent_7d_avg"`
	Recent7dStd    float64            `json:"recent_7d_std"`
	LastObservedOn string             `json:"last_observed_on"`
	Features       map[string]float64 `json:"features"`
	PredictedNet   *float64           `json:"predicted_net,omitempty"`
}

func main() {
	configPath := flag.String("config", "", "Path to config file (yaml, json or toml)")
	entityID := flag.String("entity", "", "Entity (customer) id")
	dayFlag := flag.String("day", "", "Prediction day, YYYY-MM-DD")
	useFixtures := flag.Bool("use-fixtures", false, "Run the pipeline over in-memory fixtures first")
	flag.Parse()

	if *entityID == "" || *dayFlag == "" {
		fmt.Fprintln(os.Stderr, "Error: --entity and --day are required")
		flag.Usage()
		os.Exit(2)
	}
	day, err := time.Parse(time.DateOnly, *dayFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid --day: %v\n", err)
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	set := stores.Memory()
	var res *pipeline.Result
	if *useFixtures {
		manager := ingestion.NewManager(ingestion.ManagerOptions{
			Source:    pipeline.Fixtures(),
			RateStore: set.Rates,
			Logger:    log,
		})
		res, err = pipeline.NewRunner(set.Metrics, set.Features, pipeline.Options{
			Normalization: cfg.Normalization(),
			Features:      cfg.Features(),
			TrainFraction: cfg.TrainFraction,
		}).WithLogger(log).RunFrom(ctx, manager)
		if err != nil {
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

	history, err := set.Metrics.GetByEntityBefore(ctx, *entityID, day)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading metric history: %v\n", err)
		os.Exit(1)
	}

	in, err := forecast.BuildFeatures(history, *entityID, day, cfg.Features())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, domain.ErrInsufficientHistory) {
			os.Exit(3)
		}
		os.Exit(1)
	}

	columns := features.Columns(cfg.Features())
	values := features.Values(in.Row)
	out := output{
		EntityID:       *entityID,
		Day:            day.Format(time.DateOnly),
		FeatureDay:     in.Row.Day.Format(time.DateOnly),
		HistoricalDays: in.HistoryDays,
		Recent7dAvg:    in.RecentMeanNet,
		Recent7dStd:    in.RecentStdNet,
		LastObservedOn: in.LastObservedOn.Format(time.DateOnly),
		Features:       make(map[string]float64, len(columns)),
	}
	for i, col := range columns {
		out.Features[col] = values[i]
	}
	if res != nil && res.Model != nil {
		if y, err := res.Model.Predict(values); err == nil {
			out.PredictedNet = &y
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
		os.Exit(1)
	}
}
