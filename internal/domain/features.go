package domain

import "time"

// RollingFeatures holds window statistics over the last Window observed days
// of an entity, current day included.
type RollingFeatures struct {
	Window    int     // window size in observed days
	MeanNet   float64 // mean of net value
	StdNet    float64 // sample standard deviation of net value, 0 for one observation
	MaxNet    float64 // max of net value
	SumOrders int     // sum of order counts
}

// LagFeatures holds the values of the entity's Depth-th previous observed day.
// All values are 0 when the entity has fewer than Depth prior observations.
type LagFeatures struct {
	Depth  int
	Net    float64
	Orders int
	Items  int64
}

// FeatureRow extends a daily entity metric with derived columns.
// Corresponds to feature_rows table in ClickHouse.
type FeatureRow struct {
	Day      time.Time // calendar day, midnight UTC
	EntityID string

	// Same-day metric values. Orders and Items are base features; the money
	// values are carried for ratios, reports and target labeling.
	Orders      int
	Items       int64
	GrossValue  float64
	ReturnValue float64
	NetValue    float64

	// Calendar features.
	DayOfWeek  int  // 0=Monday .. 6=Sunday
	DayOfMonth int  // 1..31
	IsWeekend  bool // Saturday or Sunday

	Rolling []RollingFeatures // one per configured window, config order
	Lags    []LagFeatures     // one per configured depth, config order

	// Lifetime features over strictly prior observed days.
	LifetimeOrders int     // cumulative order count
	LifetimeSpend  float64 // cumulative net value
	DaysActive     int     // calendar days since first observed day
	AvgOrderValue  float64 // LifetimeSpend / LifetimeOrders, 0 when no orders

	// Same-day ratios, 0 on degenerate divisors.
	ItemsPerOrder float64
	ReturnsRatio  float64
}

// Key returns the (day, entity) key of the row.
func (f *FeatureRow) Key() MetricKey {
	return MetricKey{Day: f.Day, EntityID: f.EntityID}
}
