package features

import (
	"fmt"

	"revenue-feature-lab/internal/domain"
)

// Config controls which temporal features are derived.
type Config struct {
	RollingWindows []int // window sizes in observed days
	LagDepths      []int // lag depths in observed days
	Workers        int   // parallel entity partitions, <= 0 means GOMAXPROCS
}

// DefaultConfig returns a 3-day rolling window and lags 1 and 2.
func DefaultConfig() Config {
	return Config{
		RollingWindows: []int{3},
		LagDepths:      []int{1, 2},
	}
}

// Validate checks that every window and depth is positive and unique.
func (c Config) Validate() error {
	if err := checkSizes("rolling_windows", c.RollingWindows); err != nil {
		return err
	}
	return checkSizes("lag_depths", c.LagDepths)
}

func checkSizes(field string, sizes []int) error {
	seen := make(map[int]struct{}, len(sizes))
	for _, s := range sizes {
		if s <= 0 {
			return &domain.ValidationError{Stage: stage, Row: -1, Field: field, Reason: fmt.Sprintf("size %d is not positive", s)}
		}
		if _, dup := seen[s]; dup {
			return &domain.ValidationError{Stage: stage, Row: -1, Field: field, Reason: fmt.Sprintf("size %d repeated", s)}
		}
		seen[s] = struct{}{}
	}
	return nil
}
