package forecast

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revenue-feature-lab/internal/domain"
	"revenue-feature-lab/internal/features"
	"revenue-feature-lab/internal/training"
)

func day(d int) time.Time {
	return time.Date(2024, 10, d, 0, 0, 0, 0, time.UTC)
}

func m(entity string, d int, net float64) *domain.DailyEntityMetric {
	return &domain.DailyEntityMetric{Day: day(d), EntityID: entity, Orders: 1, Items: 2, GrossValue: net, NetValue: net}
}

func history() []*domain.DailyEntityMetric {
	return []*domain.DailyEntityMetric{
		m("C1", 3, 30),
		m("C1", 1, 10),
		m("C2", 2, 999),
		m("C1", 2, 20),
		m("C1", 9, 500), // on or after the target day, ignored
	}
}

func TestBuildFeatures(t *testing.T) {
	in, err := BuildFeatures(history(), "C1", day(4), features.DefaultConfig())
	require.NoError(t, err)

	// Row of the last observed day (3), not a synthetic row for day 4.
	r := in.Row
	assert.Equal(t, day(3), r.Day)
	assert.Equal(t, "C1", r.EntityID)
	assert.Equal(t, 1, r.Orders)
	assert.Equal(t, int64(2), r.Items)
	assert.Equal(t, 20.0, r.Lags[0].Net)
	assert.Equal(t, 10.0, r.Lags[1].Net)
	assert.Equal(t, 30.0, r.LifetimeSpend)
	assert.Equal(t, 2, r.LifetimeOrders)
	assert.Equal(t, 2, r.DaysActive)
	// window of 3: 10, 20, 30
	assert.InDelta(t, 20.0, r.Rolling[0].MeanNet, 1e-9)

	assert.Equal(t, 3, in.HistoryDays)
	assert.Equal(t, 20.0, in.RecentMeanNet)
	assert.InDelta(t, 10.0, in.RecentStdNet, 1e-12)
	assert.Equal(t, day(3), in.LastObservedOn)
}

// The served row is the training row whose label is the net value of the
// day being predicted.
func TestBuildFeatures_MatchesLabeledTrainingRow(t *testing.T) {
	all := []*domain.DailyEntityMetric{m("C1", 1, 10), m("C1", 2, 20), m("C1", 3, 30), m("C1", 4, 40)}
	rows, err := features.Derive(all, features.DefaultConfig())
	require.NoError(t, err)
	targets := training.NextDayTargets(rows)

	in, err := BuildFeatures(all, "C1", day(4), features.DefaultConfig())
	require.NoError(t, err)

	var labeled *domain.FeatureRow
	for _, r := range rows {
		if y, ok := targets[r.Key()]; ok && y == 40 {
			labeled = r
		}
	}
	require.NotNil(t, labeled)
	assert.Equal(t, labeled, in.Row)
	assert.Equal(t, features.Values(labeled), features.Values(in.Row))
}

func TestBuildFeatures_GapBeforeTargetDay(t *testing.T) {
	// Days 5..8 have no activity; nothing is filled in for them or for day 9.
	in, err := BuildFeatures(history(), "C1", day(9), features.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, day(3), in.Row.Day)
	assert.InDelta(t, 20.0, in.Row.Rolling[0].MeanNet, 1e-9)
	assert.Equal(t, day(3), in.LastObservedOn)
}

func TestBuildFeatures_InsufficientHistory(t *testing.T) {
	_, err := BuildFeatures(history(), "C1", day(1), features.DefaultConfig())

	var hErr *domain.InsufficientHistoryError
	require.True(t, errors.As(err, &hErr))
	assert.Equal(t, "C1", hErr.EntityID)
	assert.ErrorIs(t, err, domain.ErrInsufficientHistory)

	_, err = BuildFeatures(history(), "C404", day(10), features.DefaultConfig())
	assert.ErrorIs(t, err, domain.ErrInsufficientHistory)
}

func TestBuildFeatures_DoesNotMutateHistory(t *testing.T) {
	hist := history()
	before := make([]*domain.DailyEntityMetric, len(hist))
	copy(before, hist)

	_, err := BuildFeatures(hist, "C1", day(4), features.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, before, hist)
}

func TestBuildFeatures_InvalidConfig(t *testing.T) {
	_, err := BuildFeatures(history(), "C1", day(4), features.Config{RollingWindows: []int{-1}})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
