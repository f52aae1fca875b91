package clickhouse

import (
	"context"
	"fmt"
	"time"

	"revenue-feature-lab/internal/domain"
	"revenue-feature-lab/internal/storage"
)

// FeatureRowStore implements storage.FeatureRowStore using ClickHouse.
// Rolling and lag groups are stored as parallel arrays, one element per
// window size or lag depth.
type FeatureRowStore struct {
	conn *Conn
}

// NewFeatureRowStore creates a new FeatureRowStore.
func NewFeatureRowStore(conn *Conn) *FeatureRowStore {
	return &FeatureRowStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FeatureRowStore = (*FeatureRowStore)(nil)

const featureRowColumns = `
	entity_id, day,
	orders, items, gross_value, return_value, net_value,
	day_of_week, day_of_month, is_weekend,
	rolling_window, rolling_mean_net, rolling_std_net, rolling_max_net, rolling_sum_orders,
	lag_depth, lag_net, lag_orders, lag_items,
	lifetime_orders, lifetime_spend, days_active, avg_order_value,
	items_per_order, returns_ratio`

// ReplaceAll truncates the table and inserts rows in one batch.
// ClickHouse has no multi-statement transactions: a failed send leaves the
// table empty rather than holding the previous content.
func (s *FeatureRowStore) ReplaceAll(ctx context.Context, rows []*domain.FeatureRow) error {
	seen := make(map[domain.MetricKey]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.EntityID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[r.Key()]; exists {
			return storage.ErrDuplicateKey
		}
		seen[r.Key()] = struct{}{}
	}

	if err := s.conn.Exec(ctx, `TRUNCATE TABLE IF EXISTS feature_rows`); err != nil {
		return fmt.Errorf("truncate feature rows: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO feature_rows (`+featureRowColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		if err := batch.Append(appendArgs(r)...); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetAll retrieves all rows ordered by (entity_id, day) ASC.
func (s *FeatureRowStore) GetAll(ctx context.Context) ([]*domain.FeatureRow, error) {
	rows, err := s.conn.Query(ctx, `SELECT `+featureRowColumns+` FROM feature_rows ORDER BY entity_id ASC, day ASC`)
	if err != nil {
		return nil, fmt.Errorf("query feature rows: %w", err)
	}
	defer rows.Close()

	return scanFeatureRows(rows)
}

// GetByEntity retrieves one entity's rows ordered by day ASC.
func (s *FeatureRowStore) GetByEntity(ctx context.Context, entityID string) ([]*domain.FeatureRow, error) {
	if entityID == "" {
		return nil, storage.ErrInvalidInput
	}

	rows, err := s.conn.Query(ctx, `SELECT `+featureRowColumns+` FROM feature_rows WHERE entity_id = ? ORDER BY day ASC`, entityID)
	if err != nil {
		return nil, fmt.Errorf("query feature rows by entity: %w", err)
	}
	defer rows.Close()

	return scanFeatureRows(rows)
}

func appendArgs(r *domain.FeatureRow) []any {
	var weekend uint8
	if r.IsWeekend {
		weekend = 1
	}

	windows := make([]uint16, len(r.Rolling))
	means := make([]float64, len(r.Rolling))
	stds := make([]float64, len(r.Rolling))
	maxes := make([]float64, len(r.Rolling))
	sums := make([]uint32, len(r.Rolling))
	for i, rf := range r.Rolling {
		windows[i] = uint16(rf.Window)
		means[i] = rf.MeanNet
		stds[i] = rf.StdNet
		maxes[i] = rf.MaxNet
		sums[i] = uint32(rf.SumOrders)
	}

	depths := make([]uint16, len(r.Lags))
	lagNet := make([]float64, len(r.Lags))
	lagOrders := make([]uint32, len(r.Lags))
	lagItems := make([]int64, len(r.Lags))
	for i, l := range r.Lags {
		depths[i] = uint16(l.Depth)
		lagNet[i] = l.Net
		lagOrders[i] = uint32(l.Orders)
		lagItems[i] = l.Items
	}

	return []any{
		r.EntityID, r.Day,
		uint32(r.Orders), r.Items, r.GrossValue, r.ReturnValue, r.NetValue,
		uint8(r.DayOfWeek), uint8(r.DayOfMonth), weekend,
		windows, means, stds, maxes, sums,
		depths, lagNet, lagOrders, lagItems,
		uint32(r.LifetimeOrders), r.LifetimeSpend, uint32(r.DaysActive), r.AvgOrderValue,
		r.ItemsPerOrder, r.ReturnsRatio,
	}
}

func scanFeatureRows(rows chRows) ([]*domain.FeatureRow, error) {
	var out []*domain.FeatureRow

	for rows.Next() {
		var (
			r                              domain.FeatureRow
			day                            time.Time
			orders, lifetimeOrders, active uint32
			dow, dom, weekend              uint8
			windows, depths                []uint16
			means, stds, maxes, lagNet     []float64
			sums, lagOrders                []uint32
			lagItems                       []int64
		)

		err := rows.Scan(
			&r.EntityID, &day,
			&orders, &r.Items, &r.GrossValue, &r.ReturnValue, &r.NetValue,
			&dow, &dom, &weekend,
			&windows, &means, &stds, &maxes, &sums,
			&depths, &lagNet, &lagOrders, &lagItems,
			&lifetimeOrders, &r.LifetimeSpend, &active, &r.AvgOrderValue,
			&r.ItemsPerOrder, &r.ReturnsRatio,
		)
		if err != nil {
			return nil, fmt.Errorf("scan feature row: %w", err)
		}

		r.Day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		r.Orders = int(orders)
		r.DayOfWeek = int(dow)
		r.DayOfMonth = int(dom)
		r.IsWeekend = weekend == 1
		r.LifetimeOrders = int(lifetimeOrders)
		r.DaysActive = int(active)

		r.Rolling = make([]domain.RollingFeatures, len(windows))
		for i := range windows {
			r.Rolling[i] = domain.RollingFeatures{
				Window:    int(windows[i]),
				MeanNet:   means[i],
				StdNet:    stds[i],
				MaxNet:    maxes[i],
				SumOrders: int(sums[i]),
			}
		}
		r.Lags = make([]domain.LagFeatures, len(depths))
		for i := range depths {
			r.Lags[i] = domain.LagFeatures{
				Depth:  int(depths[i]),
				Net:    lagNet[i],
				Orders: int(lagOrders[i]),
				Items:  lagItems[i],
			}
		}

		out = append(out, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature rows: %w", err)
	}
	return out, nil
}
