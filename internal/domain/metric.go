package domain

import "time"

// DailyEntityMetric is one aggregated row per (day, entity).
// Corresponds to daily_entity_metrics table in PostgreSQL.
type DailyEntityMetric struct {
	Day         time.Time // calendar day, midnight UTC
	EntityID    string    // customer identifier
	Orders      int       // distinct invoice ids
	Items       int64     // sum of |quantity|
	GrossValue  float64   // sum of quantity*price over quantity > 0
	ReturnValue float64   // sum of quantity*price over quantity < 0 (<= 0)
	NetValue    float64   // GrossValue + ReturnValue
}

// MetricKey identifies a metric row.
type MetricKey struct {
	Day      time.Time
	EntityID string
}

// Key returns the (day, entity) key of the row.
func (m *DailyEntityMetric) Key() MetricKey {
	return MetricKey{Day: m.Day, EntityID: m.EntityID}
}
