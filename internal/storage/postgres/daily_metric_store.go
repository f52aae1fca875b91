package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"revenue-feature-lab/internal/domain"
	"revenue-feature-lab/internal/storage"
)

// DailyMetricStore implements storage.DailyMetricStore using PostgreSQL.
type DailyMetricStore struct {
	pool *Pool
}

// NewDailyMetricStore creates a new DailyMetricStore.
func NewDailyMetricStore(pool *Pool) *DailyMetricStore {
	return &DailyMetricStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DailyMetricStore = (*DailyMetricStore)(nil)

var dailyMetricColumns = []string{
	"day", "entity_id", "orders", "items", "gross_value", "return_value", "net_value",
}

// ReplaceAll deletes every row and copies the new batch in one transaction.
func (s *DailyMetricStore) ReplaceAll(ctx context.Context, metrics []*domain.DailyEntityMetric) error {
	seen := make(map[domain.MetricKey]struct{}, len(metrics))
	rows := make([][]any, 0, len(metrics))
	for _, m := range metrics {
		if m == nil || m.EntityID == "" {
			return storage.ErrInvalidInput
		}
		key := domain.MetricKey{Day: domain.TruncateDay(m.Day), EntityID: m.EntityID}
		if _, exists := seen[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
		rows = append(rows, []any{
			key.Day, m.EntityID, m.Orders, m.Items, m.GrossValue, m.ReturnValue, m.NetValue,
		})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM daily_entity_metrics`); err != nil {
		return fmt.Errorf("clear daily metrics: %w", err)
	}

	if len(rows) > 0 {
		_, err = tx.CopyFrom(ctx, pgx.Identifier{"daily_entity_metrics"}, dailyMetricColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return storageError("copy daily metrics", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetAll retrieves all rows ordered by (day, entity_id) ASC.
func (s *DailyMetricStore) GetAll(ctx context.Context) ([]*domain.DailyEntityMetric, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT day, entity_id, orders, items, gross_value, return_value, net_value
		FROM daily_entity_metrics
		ORDER BY day ASC, entity_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("get daily metrics: %w", err)
	}
	defer rows.Close()

	return scanDailyMetrics(rows)
}

// GetByEntity retrieves one entity's rows ordered by day ASC.
func (s *DailyMetricStore) GetByEntity(ctx context.Context, entityID string) ([]*domain.DailyEntityMetric, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT day, entity_id, orders, items, gross_value, return_value, net_value
		FROM daily_entity_metrics
		WHERE entity_id = $1
		ORDER BY day ASC
	`, entityID)
	if err != nil {
		return nil, fmt.Errorf("get daily metrics by entity: %w", err)
	}
	defer rows.Close()

	return scanDailyMetrics(rows)
}

// GetByEntityBefore retrieves one entity's rows with day < before.
func (s *DailyMetricStore) GetByEntityBefore(ctx context.Context, entityID string, before time.Time) ([]*domain.DailyEntityMetric, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT day, entity_id, orders, items, gross_value, return_value, net_value
		FROM daily_entity_metrics
		WHERE entity_id = $1 AND day < $2
		ORDER BY day ASC
	`, entityID, domain.TruncateDay(before))
	if err != nil {
		return nil, fmt.Errorf("get daily metrics before day: %w", err)
	}
	defer rows.Close()

	return scanDailyMetrics(rows)
}

func scanDailyMetrics(rows pgx.Rows) ([]*domain.DailyEntityMetric, error) {
	var metrics []*domain.DailyEntityMetric

	for rows.Next() {
		var m domain.DailyEntityMetric
		if err := rows.Scan(
			&m.Day,
			&m.EntityID,
			&m.Orders,
			&m.Items,
			&m.GrossValue,
			&m.ReturnValue,
			&m.NetValue,
		); err != nil {
			return nil, fmt.Errorf("scan daily metric row: %w", err)
		}
		m.Day = domain.TruncateDay(m.Day)
		metrics = append(metrics, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily metric rows: %w", err)
	}

	return metrics, nil
}
