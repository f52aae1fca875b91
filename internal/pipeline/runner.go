// Package pipeline runs the full batch: normalization, aggregation, feature
// derivation, temporal split, training and evaluation.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"revenue-feature-lab/internal/aggregation"
	"revenue-feature-lab/internal/domain"
	"revenue-feature-lab/internal/features"
	"revenue-feature-lab/internal/ingestion"
	"revenue-feature-lab/internal/normalization"
	"revenue-feature-lab/internal/observability"
	"revenue-feature-lab/internal/reporting"
	"revenue-feature-lab/internal/split"
	"revenue-feature-lab/internal/storage"
	"revenue-feature-lab/internal/training"
)

// Stage names used in logs and metrics.
const (
	StageNormalize = "normalize"
	StageAggregate = "aggregate"
	StageFeatures  = "features"
	StageSplit     = "split"
	StageTrain     = "train"
)

// Options holds the tunable parameters of a run.
type Options struct {
	Normalization normalization.Options
	Features      features.Config
	TrainFraction float64
}

// DefaultOptions returns the reference-domain defaults with an 80/20 split.
func DefaultOptions() Options {
	return Options{
		Normalization: normalization.DefaultOptions(),
		Features:      features.DefaultConfig(),
		TrainFraction: 0.8,
	}
}

// Result is everything one run produced.
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	InputRows     int
	TrainFraction float64
	Normalization *normalization.Report
	Transactions  []*domain.Transaction
	Metrics       []*domain.DailyEntityMetric // ordered by (day, entity_id)
	Features      []*domain.FeatureRow        // ordered by (entity_id, day)
	Columns       []string
	Targets       map[domain.MetricKey]float64

	Split   *split.Result
	FitSet  *training.Dataset
	EvalSet *training.Dataset

	Trainer   string
	Model     training.Predictor   // nil when the fit set had no labeled rows
	FitScore  *training.Evaluation // nil when not evaluated
	EvalScore *training.Evaluation // nil when not evaluated
	Reports   []string             // written report paths
	Run       *storage.RunRecord
}

// Runner wires the stages together and persists their artifacts.
type Runner struct {
	metricStore  storage.DailyMetricStore
	featureStore storage.FeatureRowStore
	runStore     storage.RunStore // optional
	opts         Options
	trainer      training.Trainer
	logger       *zap.Logger
	metrics      *observability.Metrics // optional
	outputDir    string                 // optional, reports are skipped when empty
	clock        func() time.Time
	newID        func() string
}

// NewRunner creates a runner persisting into the given stores.
func NewRunner(
	metricStore storage.DailyMetricStore,
	featureStore storage.FeatureRowStore,
	opts Options,
) *Runner {
	return &Runner{
		metricStore:  metricStore,
		featureStore: featureStore,
		opts:         opts,
		trainer:      training.MeanTrainer{},
		logger:       zap.NewNop(),
		clock:        func() time.Time { return time.Now().UTC() },
		newID:        func() string { return uuid.NewString() },
	}
}

// WithRunStore records every run in store.
func (r *Runner) WithRunStore(store storage.RunStore) *Runner {
	r.runStore = store
	return r
}

// WithTrainer replaces the baseline mean trainer.
func (r *Runner) WithTrainer(t training.Trainer) *Runner {
	r.trainer = t
	return r
}

// WithLogger sets the logger. Stage entries carry the run id.
func (r *Runner) WithLogger(logger *zap.Logger) *Runner {
	r.logger = logger
	return r
}

// WithMetrics publishes stage counts and durations.
func (r *Runner) WithMetrics(m *observability.Metrics) *Runner {
	r.metrics = m
	return r
}

// WithOutputDir writes the CSV and Markdown reports into dir after each run.
func (r *Runner) WithOutputDir(dir string) *Runner {
	r.outputDir = dir
	return r
}

// WithClock sets a custom clock function for deterministic output.
func (r *Runner) WithClock(clock func() time.Time) *Runner {
	r.clock = clock
	return r
}

// WithIDGenerator sets the run id source.
func (r *Runner) WithIDGenerator(newID func() string) *Runner {
	r.newID = newID
	return r
}

// Run executes every stage over raw and rates.
// Stages fail fast: a MissingRateError or ValidationError stops the run
// before anything is persisted for the failing stage. The run record, when a
// RunStore is configured, is saved as running first and then as succeeded
// or failed.
func (r *Runner) Run(ctx context.Context, raw []*domain.RawTransaction, rates domain.RateTable) (*Result, error) {
	res := &Result{
		RunID:         r.newID(),
		StartedAt:     r.clock(),
		InputRows:     len(raw),
		TrainFraction: r.opts.TrainFraction,
		Trainer:       r.trainer.Name(),
	}
	log := r.logger.With(zap.String("run_id", res.RunID))
	res.Run = &storage.RunRecord{
		RunID:     res.RunID,
		StartedAt: res.StartedAt,
		Status:    storage.RunStatusRunning,
		InputRows: len(raw),
	}
	if err := r.saveRun(ctx, res.Run); err != nil {
		return nil, err
	}
	log.Info("pipeline started", zap.Int("input_rows", len(raw)), zap.Int("rates", len(rates)))

	err := r.run(ctx, log, res, raw, rates)
	if err = r.finish(ctx, log, res, err); err != nil {
		return res, err
	}
	return res, nil
}

// Loader supplies the input of a run.
type Loader interface {
	Load(ctx context.Context) (*ingestion.Batch, error)
}

// RunFrom loads a batch from l and runs it.
func (r *Runner) RunFrom(ctx context.Context, l Loader) (*Result, error) {
	batch, err := l.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load input: %w", err)
	}
	return r.Run(ctx, batch.Raw, batch.Rates)
}

func (r *Runner) run(ctx context.Context, log *zap.Logger, res *Result, raw []*domain.RawTransaction, rates domain.RateTable) error {
	if r.metrics != nil {
		r.metrics.RecordsIn.Add(float64(len(raw)))
	}

	// 1. Normalize
	start := time.Now()
	txs, report, err := normalization.Normalize(raw, rates, r.opts.Normalization)
	res.Normalization = report
	if err != nil {
		return fmt.Errorf("normalize: %w", err)
	}
	res.Transactions = txs
	res.Run.OutputRows = len(txs)
	r.observe(log, StageNormalize, len(txs), time.Since(start),
		zap.Int("nil_rows", report.NilRows),
		zap.Int("duplicates_removed", report.DuplicatesRemoved),
		zap.Int("missing_entity", report.MissingEntity),
		zap.Int("imputed_same_day", report.ImputedSameDay),
		zap.Int("imputed_global", report.ImputedGlobal),
		zap.Int("unimputable", report.Unimputable),
		zap.Int("descriptions_filled", report.DescriptionsFilled),
		zap.Int("invalid_currency", report.InvalidCurrency),
		zap.Int("invalid_price", report.InvalidPrice),
		zap.Int("invalid_timestamp", report.InvalidTimestamp),
	)
	r.recordDrops(report)

	// 2. Aggregate
	if err := ctx.Err(); err != nil {
		return err
	}
	start = time.Now()
	metrics, err := aggregation.Aggregate(txs)
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}
	aggregation.SortMetrics(metrics)
	if err := r.metricStore.ReplaceAll(ctx, metrics); err != nil {
		return fmt.Errorf("persist daily metrics: %w", err)
	}
	res.Metrics = metrics
	res.Run.MetricRows = len(metrics)
	r.observe(log, StageAggregate, len(metrics), time.Since(start))

	// 3. Derive features
	if err := ctx.Err(); err != nil {
		return err
	}
	start = time.Now()
	rows, err := features.Derive(metrics, r.opts.Features)
	if err != nil {
		return fmt.Errorf("derive features: %w", err)
	}
	if err := r.featureStore.ReplaceAll(ctx, rows); err != nil {
		return fmt.Errorf("persist feature rows: %w", err)
	}
	res.Features = rows
	res.Columns = features.Columns(r.opts.Features)
	// Targets span the split; fit rows at the boundary may carry evaluate-period labels.
	res.Targets = training.NextDayTargets(rows)
	res.Run.FeatureRows = len(rows)
	r.observe(log, StageFeatures, len(rows), time.Since(start), zap.Int("columns", len(res.Columns)))

	// 4. Temporal split
	start = time.Now()
	parts, err := split.Split(rows, r.opts.TrainFraction)
	if err != nil {
		return fmt.Errorf("split: %w", err)
	}
	res.Split = parts
	res.Run.FitRows = len(parts.Fit)
	res.Run.EvalRows = len(parts.Evaluate)
	r.observe(log, StageSplit, len(rows), time.Since(start),
		zap.Int("fit_rows", len(parts.Fit)),
		zap.Int("evaluate_rows", len(parts.Evaluate)),
	)

	// 5. Train and evaluate
	start = time.Now()
	if res.FitSet, err = training.NewDataset(parts.Fit, res.Targets, res.Columns); err != nil {
		return fmt.Errorf("fit dataset: %w", err)
	}
	if res.EvalSet, err = training.NewDataset(parts.Evaluate, res.Targets, res.Columns); err != nil {
		return fmt.Errorf("evaluate dataset: %w", err)
	}
	if res.FitSet.Len() == 0 {
		log.Warn("no labeled rows in fit set, skipping training")
		return nil
	}
	if res.Model, err = r.trainer.Train(ctx, res.FitSet); err != nil {
		return fmt.Errorf("train %s: %w", r.trainer.Name(), err)
	}
	if res.FitScore, err = r.score("fit", res.Model, res.FitSet); err != nil {
		return err
	}
	if res.EvalScore, err = r.score("evaluate", res.Model, res.EvalSet); err != nil {
		return err
	}
	fields := []zap.Field{
		zap.String("trainer", r.trainer.Name()),
		zap.Int("fit_samples", res.FitSet.Len()),
		zap.Int("evaluate_samples", res.EvalSet.Len()),
	}
	if res.EvalScore != nil {
		fields = append(fields,
			zap.Float64("evaluate_mae", res.EvalScore.MAE),
			zap.Float64("evaluate_rmse", res.EvalScore.RMSE),
			zap.Float64("evaluate_r2", res.EvalScore.R2),
		)
	}
	r.observe(log, StageTrain, res.FitSet.Len(), time.Since(start), fields...)
	return nil
}

// score evaluates p on ds; an empty dataset is not scored.
func (r *Runner) score(set string, p training.Predictor, ds *training.Dataset) (*training.Evaluation, error) {
	if ds.Len() == 0 {
		return nil, nil
	}
	ev, err := training.Evaluate(p, ds)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s set: %w", set, err)
	}
	if r.metrics != nil {
		r.metrics.SetEvaluation(set, ev.MAE, ev.RMSE, ev.R2)
	}
	return &ev, nil
}

func (r *Runner) observe(log *zap.Logger, stage string, rows int, d time.Duration, fields ...zap.Field) {
	if r.metrics != nil {
		r.metrics.ObserveStage(stage, rows, d)
	}
	log.Info("stage completed", append([]zap.Field{
		zap.String("stage", stage),
		zap.Int("rows", rows),
		zap.Duration("duration", d),
	}, fields...)...)
}

func (r *Runner) recordDrops(report *normalization.Report) {
	if r.metrics == nil {
		return
	}
	r.metrics.RecordDropped("nil_row", report.NilRows)
	r.metrics.RecordDropped("duplicate", report.DuplicatesRemoved)
	r.metrics.RecordDropped("missing_entity", report.MissingEntity)
	r.metrics.RecordDropped("unimputable_price", report.Unimputable)
	r.metrics.RecordDropped("invalid_currency", report.InvalidCurrency)
	r.metrics.RecordDropped("invalid_price", report.InvalidPrice)
	r.metrics.RecordDropped("invalid_timestamp", report.InvalidTimestamp)
}

// finish writes reports on success and stores the terminal run record.
// Returns runErr, or the report write error.
func (r *Runner) finish(ctx context.Context, log *zap.Logger, res *Result, runErr error) error {
	res.FinishedAt = r.clock()
	finished := res.FinishedAt
	res.Run.FinishedAt = &finished
	res.Run.Status = storage.RunStatusSucceeded

	if runErr == nil && r.outputDir != "" {
		paths, err := reporting.WriteFiles(r.outputDir, res.Report())
		if err != nil {
			runErr = fmt.Errorf("write reports: %w", err)
		}
		res.Reports = paths
	}
	if runErr != nil {
		msg := runErr.Error()
		res.Run.Status = storage.RunStatusFailed
		res.Run.Error = &msg
	}

	duration := res.FinishedAt.Sub(res.StartedAt)
	if r.metrics != nil {
		r.metrics.RecordRun(string(res.Run.Status), duration, res.FinishedAt)
	}
	// A cancelled run is still recorded.
	if err := r.saveRun(context.WithoutCancel(ctx), res.Run); err != nil {
		log.Error("save run record", zap.Error(err))
	}

	if runErr != nil {
		log.Error("pipeline failed", zap.Error(runErr), zap.Duration("duration", duration))
		return runErr
	}
	log.Info("pipeline finished",
		zap.Int("metric_rows", res.Run.MetricRows),
		zap.Int("feature_rows", res.Run.FeatureRows),
		zap.Int("reports", len(res.Reports)),
		zap.Duration("duration", duration),
	)
	return nil
}

func (r *Runner) saveRun(ctx context.Context, run *storage.RunRecord) error {
	if r.runStore == nil {
		return nil
	}
	c := *run
	if err := r.runStore.Save(ctx, &c); err != nil {
		return fmt.Errorf("save run %s: %w", run.RunID, err)
	}
	return nil
}

// Report converts the result into the reporting model.
func (res *Result) Report() *reporting.Report {
	rep := &reporting.Report{
		GeneratedAt:   res.FinishedAt,
		Run:           res.Run,
		DataSummary:   reporting.Summarize(res.Metrics, res.Features),
		Normalization: res.Normalization,
		Metrics:       res.Metrics,
		Features:      res.Features,
		Columns:       res.Columns,
		Targets:       res.Targets,
	}
	if rep.GeneratedAt.IsZero() {
		rep.GeneratedAt = res.StartedAt
	}
	if res.Split != nil {
		s := &reporting.SplitSummary{
			TrainFraction: res.TrainFraction,
			FitRows:       len(res.Split.Fit),
			EvalRows:      len(res.Split.Evaluate),
		}
		s.FitFirst, s.FitLast = split.Range(res.Split.Fit)
		s.EvalFirst, s.EvalLast = split.Range(res.Split.Evaluate)
		rep.Split = s
	}
	if res.FitScore != nil {
		m := &reporting.ModelSummary{Trainer: res.Trainer, Fit: *res.FitScore}
		if res.EvalScore != nil {
			m.Eval = *res.EvalScore
		}
		rep.Model = m
	}
	return rep
}
