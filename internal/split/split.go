// Package split partitions feature rows into fit and evaluate sets by time.
package split

import (
	"fmt"
	"math"
	"sort"
	"time"

	"revenue-feature-lab/internal/domain"
)

// Result holds both partitions of a split.
type Result struct {
	Fit      []*domain.FeatureRow
	Evaluate []*domain.FeatureRow
}

// Range returns the first and last day covered by rows.
// Both are zero when rows is empty.
func Range(rows []*domain.FeatureRow) (first, last time.Time) {
	for i, r := range rows {
		if i == 0 || r.Day.Before(first) {
			first = r.Day
		}
		if i == 0 || r.Day.After(last) {
			last = r.Day
		}
	}
	return first, last
}

// Split orders rows by (day, entity) and puts the first
// floor(trainFraction * N) rows into the fit set and the rest into the
// evaluate set. The input slice is not modified.
// Returns *domain.ValidationError when trainFraction is outside [0, 1].
func Split(rows []*domain.FeatureRow, trainFraction float64) (*Result, error) {
	if math.IsNaN(trainFraction) || trainFraction < 0 || trainFraction > 1 {
		return nil, &domain.ValidationError{
			Stage:  "split",
			Row:    -1,
			Field:  "train_fraction",
			Reason: fmt.Sprintf("%v is outside [0, 1]", trainFraction),
		}
	}

	ordered := make([]*domain.FeatureRow, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Day.Equal(ordered[j].Day) {
			return ordered[i].Day.Before(ordered[j].Day)
		}
		return ordered[i].EntityID < ordered[j].EntityID
	})

	cut := int(math.Floor(trainFraction * float64(len(ordered))))
	return &Result{
		Fit:      ordered[:cut:cut],
		Evaluate: ordered[cut:],
	}, nil
}
