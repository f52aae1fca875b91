// Package training defines the contract between the feature table and an
// external learner, and evaluates predictors on a held-out set.
package training

import (
	"fmt"
	"sort"

	"revenue-feature-lab/internal/domain"
	"revenue-feature-lab/internal/features"
)

// TargetColumn names the label paired with each feature row.
const TargetColumn = "target_next_net"

// NextDayTargets maps each feature row to the net value of its entity's next
// observed day. Rows on an entity's last observed day get no entry.
func NextDayTargets(rows []*domain.FeatureRow) map[domain.MetricKey]float64 {
	byEntity := make(map[string][]*domain.FeatureRow)
	for _, r := range rows {
		byEntity[r.EntityID] = append(byEntity[r.EntityID], r)
	}

	targets := make(map[domain.MetricKey]float64, len(rows))
	for _, series := range byEntity {
		sort.Slice(series, func(i, j int) bool {
			return series[i].Day.Before(series[j].Day)
		})
		for i := 0; i+1 < len(series); i++ {
			targets[series[i].Key()] = series[i+1].NetValue
		}
	}
	return targets
}

// Dataset is a feature matrix with one target per row.
type Dataset struct {
	Columns []string
	Keys    []domain.MetricKey
	X       [][]float64
	Y       []float64
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.Y)
}

// NewDataset builds a dataset from rows that have a target.
// Row order is preserved; rows without a target are skipped.
// Returns *domain.ValidationError when a row does not flatten to len(columns)
// values.
func NewDataset(rows []*domain.FeatureRow, targets map[domain.MetricKey]float64, columns []string) (*Dataset, error) {
	ds := &Dataset{Columns: columns}
	for i, r := range rows {
		y, ok := targets[r.Key()]
		if !ok {
			continue
		}
		x := features.Values(r)
		if len(x) != len(columns) {
			return nil, &domain.ValidationError{
				Stage:  "dataset",
				Row:    i,
				Field:  "features",
				Reason: fmt.Sprintf("row has %d values, expected %d columns", len(x), len(columns)),
			}
		}
		ds.Keys = append(ds.Keys, r.Key())
		ds.X = append(ds.X, x)
		ds.Y = append(ds.Y, y)
	}
	return ds, nil
}
