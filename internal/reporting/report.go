package reporting

import (
	"time"

	"revenue-feature-lab/internal/domain"
	"revenue-feature-lab/internal/normalization"
	"revenue-feature-lab/internal/storage"
	"revenue-feature-lab/internal/training"
)

// Report is the rendered outcome of one pipeline run.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Run         *storage.RunRecord // nil when no run was recorded

	DataSummary DataSummary

	// Optional sections. Nil when the source of the report did not have them,
	// e.g. a report regenerated from stores has no normalization counts.
	Normalization *normalization.Report
	Split         *SplitSummary
	Model         *ModelSummary

	// Tables
	Metrics  []*domain.DailyEntityMetric // ordered by (day, entity_id)
	Features []*domain.FeatureRow
	Columns  []string                     // feature column order
	Targets  map[domain.MetricKey]float64 // next-day labels
}

// DataSummary describes the aggregated table.
type DataSummary struct {
	MetricRows  int
	FeatureRows int
	Entities    int
	FirstDay    time.Time // zero when empty
	LastDay     time.Time
	TotalNet    float64
}

// SplitSummary describes the temporal split.
type SplitSummary struct {
	TrainFraction float64
	FitRows       int
	EvalRows      int
	FitFirst      time.Time
	FitLast       time.Time
	EvalFirst     time.Time
	EvalLast      time.Time
}

// ModelSummary holds the trainer name and its scores on both sets.
type ModelSummary struct {
	Trainer string
	Fit     training.Evaluation
	Eval    training.Evaluation
}

// Summarize computes the data summary of a run.
func Summarize(metrics []*domain.DailyEntityMetric, rows []*domain.FeatureRow) DataSummary {
	s := DataSummary{MetricRows: len(metrics), FeatureRows: len(rows)}
	entities := make(map[string]struct{})
	for _, m := range metrics {
		entities[m.EntityID] = struct{}{}
		s.TotalNet += m.NetValue
		if s.FirstDay.IsZero() || m.Day.Before(s.FirstDay) {
			s.FirstDay = m.Day
		}
		if m.Day.After(s.LastDay) {
			s.LastDay = m.Day
		}
	}
	s.Entities = len(entities)
	return s
}
