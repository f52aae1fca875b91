package storage

import (
	"context"
	"time"

	"revenue-feature-lab/internal/domain"
)

// DailyMetricStore persists the daily entity metric table.
// The table is an artifact of one pipeline run: ReplaceAll swaps its whole
// content so repeated runs over the same input leave the same table.
type DailyMetricStore interface {
	// ReplaceAll atomically replaces every row. Returns ErrDuplicateKey if the
	// batch holds two rows for the same (day, entity_id).
	ReplaceAll(ctx context.Context, metrics []*domain.DailyEntityMetric) error

	// GetAll retrieves all rows ordered by (day, entity_id) ASC.
	GetAll(ctx context.Context) ([]*domain.DailyEntityMetric, error)

	// GetByEntity retrieves one entity's rows ordered by day ASC.
	GetByEntity(ctx context.Context, entityID string) ([]*domain.DailyEntityMetric, error)

	// GetByEntityBefore retrieves one entity's rows with day < before, ordered by day ASC.
	GetByEntityBefore(ctx context.Context, entityID string, before time.Time) ([]*domain.DailyEntityMetric, error)
}

// FeatureRowStore persists the derived feature table.
type FeatureRowStore interface {
	// ReplaceAll atomically replaces every row. Returns ErrDuplicateKey if the
	// batch holds two rows for the same (day, entity_id).
	ReplaceAll(ctx context.Context, rows []*domain.FeatureRow) error

	// GetAll retrieves all rows ordered by (entity_id, day) ASC.
	GetAll(ctx context.Context) ([]*domain.FeatureRow, error)

	// GetByEntity retrieves one entity's rows ordered by day ASC.
	GetByEntity(ctx context.Context, entityID string) ([]*domain.FeatureRow, error)
}

// RateStore provides access to daily exchange rates.
type RateStore interface {
	// InsertBulk adds multiple rates atomically. Fails entire batch on duplicate (currency, date).
	InsertBulk(ctx context.Context, rates []*domain.ExchangeRate) error

	// GetAll retrieves all rates ordered by (date, currency) ASC.
	GetAll(ctx context.Context) ([]*domain.ExchangeRate, error)
}

// RunStatus is the terminal state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// RunRecord summarizes one pipeline run.
type RunRecord struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  *time.Time // nil while running
	Status      RunStatus
	InputRows   int
	OutputRows  int // normalized transactions
	MetricRows  int
	FeatureRows int
	FitRows     int
	EvalRows    int
	Error       *string
}

// RunStore records pipeline runs so that a later process can inspect them.
type RunStore interface {
	// Save inserts or overwrites the record with the same RunID.
	Save(ctx context.Context, run *RunRecord) error

	// Get retrieves a run by id. Returns ErrNotFound if not exists.
	Get(ctx context.Context, runID string) (*RunRecord, error)

	// Latest returns the most recently started run. Returns ErrNotFound if none.
	Latest(ctx context.Context) (*RunRecord, error)
}
