package features

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revenue-feature-lab/internal/domain"
)

// 2024-10-07 is a Monday.
func day(n int) time.Time {
	return time.Date(2024, 10, 6+n, 0, 0, 0, 0, time.UTC)
}

func metric(entity string, d int, net float64, orders int, items int64) *domain.DailyEntityMetric {
	gross := net
	if gross < 0 {
		gross = 0
	}
	return &domain.DailyEntityMetric{
		Day:         day(d),
		EntityID:    entity,
		Orders:      orders,
		Items:       items,
		GrossValue:  gross,
		ReturnValue: net - gross,
		NetValue:    net,
	}
}

func TestDerive_ReferenceScenario(t *testing.T) {
	metrics := []*domain.DailyEntityMetric{
		metric("C1", 1, 10, 1, 2),
		metric("C1", 2, 20, 1, 1),
		metric("C1", 3, 30, 1, 1),
	}

	rows, err := Derive(metrics, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	d3 := rows[2]
	assert.Equal(t, 20.0, d3.Rolling[0].MeanNet)
	assert.Equal(t, 30.0, d3.Rolling[0].MaxNet)
	assert.Equal(t, 3, d3.Rolling[0].SumOrders)
	assert.InDelta(t, 10.0, d3.Rolling[0].StdNet, 1e-12)
	assert.Equal(t, 20.0, d3.Lags[0].Net)
	assert.Equal(t, 10.0, d3.Lags[1].Net)
	assert.Equal(t, 30.0, d3.LifetimeSpend)
	assert.Equal(t, 2, d3.LifetimeOrders)
	assert.Equal(t, 15.0, d3.AvgOrderValue)
	assert.Equal(t, 2, d3.DaysActive)

	d1 := rows[0]
	assert.Equal(t, 2.0, d1.ItemsPerOrder)
}

func TestDerive_FirstObservationBoundary(t *testing.T) {
	rows, err := Derive([]*domain.DailyEntityMetric{metric("C1", 1, 42, 2, 5)}, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	r := rows[0]
	assert.Equal(t, 42.0, r.Rolling[0].MeanNet, "partial window emits a value")
	assert.Equal(t, 0.0, r.Rolling[0].StdNet, "std of one observation is 0")
	for _, lag := range r.Lags {
		assert.Equal(t, domain.LagFeatures{Depth: lag.Depth}, lag, "short history zero-fills lags")
	}
	assert.Equal(t, 0, r.LifetimeOrders)
	assert.Equal(t, 0.0, r.LifetimeSpend)
	assert.Equal(t, 0.0, r.AvgOrderValue)
	assert.Equal(t, 0, r.DaysActive)
}

func TestDerive_GapsUseObservedDays(t *testing.T) {
	metrics := []*domain.DailyEntityMetric{
		metric("C1", 1, 10, 1, 1),
		metric("C1", 5, 50, 1, 1),
		metric("C1", 20, 200, 1, 1),
	}

	rows, err := Derive(metrics, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, rows, 3, "no fabricated days")

	last := rows[2]
	// Window covers the last 3 observed days, not 3 calendar days.
	assert.InDelta(t, (10.0+50+200)/3, last.Rolling[0].MeanNet, 1e-9)
	assert.Equal(t, 50.0, last.Lags[0].Net, "lag 1 is the previous observed day")
	assert.Equal(t, 10.0, last.Lags[1].Net)
	assert.Equal(t, 19, last.DaysActive)
}

func TestDerive_RatioFloors(t *testing.T) {
	zeroOrders := &domain.DailyEntityMetric{Day: day(1), EntityID: "C1", Orders: 0, Items: 3}
	returnsOnly := &domain.DailyEntityMetric{Day: day(2), EntityID: "C1", Orders: 1, Items: 1, ReturnValue: -5, NetValue: -5}
	mixed := &domain.DailyEntityMetric{Day: day(3), EntityID: "C1", Orders: 2, Items: 6, GrossValue: 20, ReturnValue: -5, NetValue: 15}

	rows, err := Derive([]*domain.DailyEntityMetric{zeroOrders, returnsOnly, mixed}, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, 0.0, rows[0].ItemsPerOrder)
	assert.Equal(t, 0.0, rows[1].ReturnsRatio)
	assert.Equal(t, 3.0, rows[2].ItemsPerOrder)
	assert.Equal(t, 0.25, rows[2].ReturnsRatio)

	for _, r := range rows {
		for _, v := range Values(r) {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		}
	}
}

func TestDerive_CalendarFeatures(t *testing.T) {
	rows, err := Derive([]*domain.DailyEntityMetric{
		metric("C1", 1, 1, 1, 1), // Monday 7th
		metric("C1", 6, 1, 1, 1), // Saturday 12th
		metric("C1", 7, 1, 1, 1), // Sunday 13th
	}, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, 0, rows[0].DayOfWeek)
	assert.Equal(t, 7, rows[0].DayOfMonth)
	assert.False(t, rows[0].IsWeekend)
	assert.Equal(t, 5, rows[1].DayOfWeek)
	assert.True(t, rows[1].IsWeekend)
	assert.Equal(t, 6, rows[2].DayOfWeek)
	assert.True(t, rows[2].IsWeekend)
}

func TestDerive_EntitiesIndependentAndOrdered(t *testing.T) {
	metrics := []*domain.DailyEntityMetric{
		metric("C2", 2, 7, 1, 1),
		metric("C1", 3, 30, 1, 1),
		metric("C2", 1, 5, 1, 1),
		metric("C1", 1, 10, 1, 1),
	}

	rows, err := Derive(metrics, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, []string{"C1", "C1", "C2", "C2"}, []string{rows[0].EntityID, rows[1].EntityID, rows[2].EntityID, rows[3].EntityID})
	assert.True(t, rows[0].Day.Before(rows[1].Day))
	assert.Equal(t, 10.0, rows[1].Lags[0].Net, "C1 lag never reads C2")
	assert.Equal(t, 5.0, rows[3].Lags[0].Net)
}

func TestDerive_DuplicateKeyRejected(t *testing.T) {
	_, err := Derive([]*domain.DailyEntityMetric{
		metric("C1", 1, 1, 1, 1),
		metric("C1", 1, 2, 1, 1),
	}, DefaultConfig())

	var vErr *domain.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, 1, vErr.Row)
}

func TestDerive_InvalidConfig(t *testing.T) {
	_, err := Derive(nil, Config{RollingWindows: []int{0}, LagDepths: []int{1}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = Derive(nil, Config{RollingWindows: []int{3}, LagDepths: []int{1, 1}})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDerive_ParallelMatchesSequential(t *testing.T) {
	metrics := generateMetrics(12, 30)

	seq, err := Derive(metrics, Config{RollingWindows: []int{3, 7}, LagDepths: []int{1, 2, 3}, Workers: 1})
	require.NoError(t, err)
	par, err := Derive(metrics, Config{RollingWindows: []int{3, 7}, LagDepths: []int{1, 2, 3}, Workers: 8})
	require.NoError(t, err)

	assert.Equal(t, seq, par)
}

func TestDerive_NoLeakageUnderFutureMutation(t *testing.T) {
	cfg := Config{RollingWindows: []int{3, 5}, LagDepths: []int{1, 2}}
	base := generateMetrics(5, 25)

	baseline, err := Derive(base, cfg)
	require.NoError(t, err)

	for _, cut := range []int{1, 4, 10, 17, 24} {
		for _, entity := range []string{"E00", "E03"} {
			mutated := mutateAfter(base, entity, day(cut))

			got, err := Derive(mutated, cfg)
			require.NoError(t, err)

			want := rowsUpTo(baseline, entity, day(cut))
			have := rowsUpTo(got, entity, day(cut))
			assert.Equal(t, want, have, "entity %s cut %d", entity, cut)
		}
	}
}

func TestColumns_MatchValues(t *testing.T) {
	cfg := Config{RollingWindows: []int{3, 7}, LagDepths: []int{1, 2, 4}}
	rows, err := Derive(generateMetrics(2, 10), cfg)
	require.NoError(t, err)

	cols := Columns(cfg)
	assert.Len(t, cols, 11+4*2+3*3)
	for _, r := range rows {
		assert.Len(t, Values(r), len(cols))
	}
	assert.Equal(t, "orders", cols[0])
	assert.Equal(t, "rolling_3d_mean_net", cols[5])
	assert.Equal(t, "lag_1d_net", cols[13])
	assert.Equal(t, "returns_ratio", cols[len(cols)-1])
}

// generateMetrics builds a deterministic sparse history for n entities.
func generateMetrics(entities, days int) []*domain.DailyEntityMetric {
	var out []*domain.DailyEntityMetric
	seed := uint32(7)
	next := func() uint32 {
		seed = seed*1664525 + 1013904223
		return seed >> 8
	}
	for e := 0; e < entities; e++ {
		id := entityName(e)
		for d := 1; d <= days; d++ {
			if next()%3 == 0 {
				continue
			}
			orders := int(next()%4) + 1
			net := float64(int(next()%20000)-4000) / 100
			out = append(out, metric(id, d, net, orders, int64(orders)*int64(next()%5+1)))
		}
	}
	return out
}

func entityName(i int) string {
	return "E" + string(rune('0'+i/10)) + string(rune('0'+i%10))
}

// mutateAfter rewrites, drops and adds rows of entity strictly after cut.
func mutateAfter(in []*domain.DailyEntityMetric, entity string, cut time.Time) []*domain.DailyEntityMetric {
	out := make([]*domain.DailyEntityMetric, 0, len(in)+1)
	dropped := false
	for _, m := range in {
		c := *m
		if c.EntityID == entity && c.Day.After(cut) {
			if !dropped {
				dropped = true
				continue
			}
			c.NetValue = c.NetValue*3 + 1000
			c.Orders += 5
			c.Items += 9
		}
		out = append(out, &c)
	}
	out = append(out, metric(entity, 99, 12345, 9, 9))
	return out
}

func rowsUpTo(rows []*domain.FeatureRow, entity string, cut time.Time) []*domain.FeatureRow {
	var out []*domain.FeatureRow
	for _, r := range rows {
		if r.EntityID == entity && !r.Day.After(cut) {
			out = append(out, r)
		}
	}
	return out
}
