package postgres

import (
	"context"
	"fmt"

	"revenue-feature-lab/internal/storage"
)

// RunStore implements storage.RunStore using the pipeline_runs table.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

var _ storage.RunStore = (*RunStore)(nil)

// Save upserts the run keyed by run_id.
func (s *RunStore) Save(ctx context.Context, run *storage.RunRecord) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO pipeline_runs (
			run_id, started_at, finished_at, status,
			input_rows, output_rows, metric_rows, feature_rows, fit_rows, eval_rows, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (run_id) DO UPDATE
		SET finished_at = EXCLUDED.finished_at,
		    status = EXCLUDED.status,
		    input_rows = EXCLUDED.input_rows,
		    output_rows = EXCLUDED.output_rows,
		    metric_rows = EXCLUDED.metric_rows,
		    feature_rows = EXCLUDED.feature_rows,
		    fit_rows = EXCLUDED.fit_rows,
		    eval_rows = EXCLUDED.eval_rows,
		    error = EXCLUDED.error
	`,
		run.RunID, run.StartedAt, run.FinishedAt, string(run.Status),
		run.InputRows, run.OutputRows, run.MetricRows, run.FeatureRows, run.FitRows, run.EvalRows, run.Error,
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// Get retrieves a run by id.
func (s *RunStore) Get(ctx context.Context, runID string) (*storage.RunRecord, error) {
	return s.scanOne(ctx, `
		SELECT run_id, started_at, finished_at, status,
		       input_rows, output_rows, metric_rows, feature_rows, fit_rows, eval_rows, error
		FROM pipeline_runs
		WHERE run_id = $1
	`, runID)
}

// Latest returns the most recently started run.
func (s *RunStore) Latest(ctx context.Context) (*storage.RunRecord, error) {
	return s.scanOne(ctx, `
		SELECT run_id, started_at, finished_at, status,
		       input_rows, output_rows, metric_rows, feature_rows, fit_rows, eval_rows, error
		FROM pipeline_runs
		ORDER BY started_at DESC
		LIMIT 1
	`)
}

func (s *RunStore) scanOne(ctx context.Context, query string, args ...any) (*storage.RunRecord, error) {
	var run storage.RunRecord
	var status string
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&run.RunID, &run.StartedAt, &run.FinishedAt, &status,
		&run.InputRows, &run.OutputRows, &run.MetricRows, &run.FeatureRows, &run.FitRows, &run.EvalRows, &run.Error,
	)
	if err != nil {
		return nil, storageError("get run", err)
	}
	run.Status = storage.RunStatus(status)
	return &run, nil
}
