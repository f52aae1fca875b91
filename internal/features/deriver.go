// Package features derives per-entity temporal features from daily metrics.
//
// Every entity is processed independently: its observed days are sorted
// ascending and no feature of the row for day d reads a metric row of a
// later day. Gaps between observed days are kept as gaps; no zero-activity
// days are synthesized.
package features

import (
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"revenue-feature-lab/internal/domain"
)

const stage = "features"

// Derive computes feature rows for all entities.
// Entities are partitioned, derived in parallel and concatenated by
// (entity_id ASC, day ASC).
// Returns *domain.ValidationError on an invalid config, a malformed metric
// row or a duplicate (day, entity) pair.
func Derive(metrics []*domain.DailyEntityMetric, cfg Config) ([]*domain.FeatureRow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	partitions, err := partition(metrics)
	if err != nil {
		return nil, err
	}

	entityIDs := make([]string, 0, len(partitions))
	for id := range partitions {
		entityIDs = append(entityIDs, id)
	}
	sort.Strings(entityIDs)

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([][]*domain.FeatureRow, len(entityIDs))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, id := range entityIDs {
		series := partitions[id]
		g.Go(func() error {
			results[i] = DeriveEntity(series, cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, rows := range results {
		total += len(rows)
	}
	out := make([]*domain.FeatureRow, 0, total)
	for _, rows := range results {
		out = append(out, rows...)
	}
	return out, nil
}

// partition groups metric rows by entity, each group sorted by day.
func partition(metrics []*domain.DailyEntityMetric) (map[string][]*domain.DailyEntityMetric, error) {
	parts := make(map[string][]*domain.DailyEntityMetric)
	seen := make(map[domain.MetricKey]struct{}, len(metrics))

	for i, m := range metrics {
		switch {
		case m == nil:
			return nil, &domain.ValidationError{Stage: stage, Row: i, Field: "record", Reason: "nil metric"}
		case m.EntityID == "":
			return nil, &domain.ValidationError{Stage: stage, Row: i, Field: "entity_id", Reason: "empty"}
		case m.Day.IsZero():
			return nil, &domain.ValidationError{Stage: stage, Row: i, Field: "day", Reason: "zero"}
		}
		key := domain.MetricKey{Day: domain.TruncateDay(m.Day), EntityID: m.EntityID}
		if _, dup := seen[key]; dup {
			return nil, &domain.ValidationError{Stage: stage, Row: i, Field: "day", Reason: "duplicate (day, entity) pair for " + m.EntityID}
		}
		seen[key] = struct{}{}
		parts[m.EntityID] = append(parts[m.EntityID], m)
	}

	for _, series := range parts {
		sort.Slice(series, func(i, j int) bool {
			return series[i].Day.Before(series[j].Day)
		})
	}
	return parts, nil
}

// DeriveEntity computes feature rows for one entity's series.
// series must belong to a single entity and be sorted by day ascending.
//
// Row i reads series[0..i] only:
//   - rolling stats over series[max(0, i-W+1)..i]
//   - lag L from series[i-L], zero-filled when i < L
//   - lifetime sums over series[0..i-1]
func DeriveEntity(series []*domain.DailyEntityMetric, cfg Config) []*domain.FeatureRow {
	if len(series) == 0 {
		return nil
	}

	rows := make([]*domain.FeatureRow, len(series))
	firstDay := domain.TruncateDay(series[0].Day)

	var cumOrders int
	var cumSpend float64

	for i, m := range series {
		day := domain.TruncateDay(m.Day)
		row := &domain.FeatureRow{
			Day:         day,
			EntityID:    m.EntityID,
			Orders:      m.Orders,
			Items:       m.Items,
			GrossValue:  m.GrossValue,
			ReturnValue: m.ReturnValue,
			NetValue:    m.NetValue,
		}

		applyCalendar(row, day)

		row.Rolling = make([]domain.RollingFeatures, len(cfg.RollingWindows))
		for j, w := range cfg.RollingWindows {
			start := i - w + 1
			if start < 0 {
				start = 0
			}
			row.Rolling[j] = rolling(w, series[start:i+1])
		}

		row.Lags = make([]domain.LagFeatures, len(cfg.LagDepths))
		for j, depth := range cfg.LagDepths {
			lag := domain.LagFeatures{Depth: depth}
			if i-depth >= 0 {
				prev := series[i-depth]
				lag.Net = prev.NetValue
				lag.Orders = prev.Orders
				lag.Items = prev.Items
			}
			row.Lags[j] = lag
		}

		// Lifetime values exclude the current day.
		row.LifetimeOrders = cumOrders
		row.LifetimeSpend = cumSpend
		row.DaysActive = domain.DaysBetween(firstDay, day)
		row.AvgOrderValue = safeDiv(cumSpend, float64(cumOrders))

		row.ItemsPerOrder = safeDiv(float64(m.Items), float64(m.Orders))
		row.ReturnsRatio = safeDiv(abs(m.ReturnValue), m.GrossValue)

		cumOrders += m.Orders
		cumSpend += m.NetValue
		rows[i] = row
	}

	return rows
}

func applyCalendar(row *domain.FeatureRow, day time.Time) {
	// time.Weekday is Sunday=0; features use Monday=0.
	row.DayOfWeek = (int(day.Weekday()) + 6) % 7
	row.DayOfMonth = day.Day()
	row.IsWeekend = row.DayOfWeek >= 5
}
