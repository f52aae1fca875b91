package reporting

import (
	"context"
	"errors"
	"time"

	"revenue-feature-lab/internal/features"
	"revenue-feature-lab/internal/storage"
	"revenue-feature-lab/internal/training"
)

// Generator produces reports from stored data.
type Generator struct {
	metricStore  storage.DailyMetricStore
	featureStore storage.FeatureRowStore
	runStore     storage.RunStore // optional
	now          func() time.Time
}

// NewGenerator creates a new report generator.
func NewGenerator(
	metricStore storage.DailyMetricStore,
	featureStore storage.FeatureRowStore,
	runStore storage.RunStore,
) *Generator {
	return &Generator{
		metricStore:  metricStore,
		featureStore: featureStore,
		runStore:     runStore,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate rebuilds the report of the last persisted run.
// Normalization and model sections are not persisted and stay nil.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	metrics, err := g.metricStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := g.featureStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	r := &Report{
		GeneratedAt: g.now(),
		DataSummary: Summarize(metrics, rows),
		Metrics:     metrics,
		Features:    rows,
		Targets:     training.NextDayTargets(rows),
	}
	if len(rows) > 0 {
		r.Columns = features.Columns(features.ConfigOf(rows[0]))
	}

	if g.runStore != nil {
		run, err := g.runStore.Latest(ctx)
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			return nil, err
		default:
			r.Run = run
			r.Split = &SplitSummary{FitRows: run.FitRows, EvalRows: run.EvalRows}
		}
	}
	return r, nil
}
