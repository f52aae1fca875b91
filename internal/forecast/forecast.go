// Package forecast builds the feature row used to predict one entity's
// activity on a future day.
package forecast

import (
	"math"
	"sort"
	"time"

	"revenue-feature-lab/internal/domain"
	"revenue-feature-lab/internal/features"
)

// RecentDays is the number of trailing observed days summarized in Input.
const RecentDays = 7

// Input is the feature row a model fit on next-observed-day targets consumes
// to predict the target day, plus a summary of the history it was built from.
type Input struct {
	Row            *domain.FeatureRow
	HistoryDays    int
	RecentMeanNet  float64
	RecentStdNet   float64
	LastObservedOn time.Time
}

// BuildFeatures derives the features used to predict entityID on day from
// metric history. Only the entity's rows strictly before day are used. The
// result is the feature row of the last observed day before day: training
// labels that row with the net value of the entity's next observed day, so it
// is the row the model was fit on. No activity is invented for day itself.
// Returns *domain.InsufficientHistoryError when no prior row exists.
func BuildFeatures(history []*domain.DailyEntityMetric, entityID string, day time.Time, cfg features.Config) (*Input, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	day = domain.TruncateDay(day)

	var series []*domain.DailyEntityMetric
	for _, m := range history {
		if m.EntityID == entityID && domain.TruncateDay(m.Day).Before(day) {
			series = append(series, m)
		}
	}
	if len(series) == 0 {
		return nil, &domain.InsufficientHistoryError{EntityID: entityID, Day: day}
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Day.Before(series[j].Day)
	})

	rows := features.DeriveEntity(series, cfg)

	mean, std := recent(series)
	return &Input{
		Row:            rows[len(rows)-1],
		HistoryDays:    len(series),
		RecentMeanNet:  mean,
		RecentStdNet:   std,
		LastObservedOn: domain.TruncateDay(series[len(series)-1].Day),
	}, nil
}

// recent returns the mean and sample std of net value over the last
// RecentDays observed rows.
func recent(series []*domain.DailyEntityMetric) (mean, std float64) {
	tail := series
	if len(tail) > RecentDays {
		tail = tail[len(tail)-RecentDays:]
	}
	for _, m := range tail {
		mean += m.NetValue
	}
	mean /= float64(len(tail))
	if len(tail) < 2 {
		return mean, 0
	}
	var sq float64
	for _, m := range tail {
		d := m.NetValue - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(tail)-1))
}
