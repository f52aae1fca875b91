package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"revenue-feature-lab/internal/domain"
	"revenue-feature-lab/internal/storage"
)

// DailyMetricStore is an in-memory implementation of storage.DailyMetricStore.
type DailyMetricStore struct {
	mu   sync.RWMutex
	data map[domain.MetricKey]*domain.DailyEntityMetric
}

// NewDailyMetricStore creates a new in-memory daily metric store.
func NewDailyMetricStore() *DailyMetricStore {
	return &DailyMetricStore{
		data: make(map[domain.MetricKey]*domain.DailyEntityMetric),
	}
}

// ReplaceAll atomically replaces every row.
func (s *DailyMetricStore) ReplaceAll(_ context.Context, metrics []*domain.DailyEntityMetric) error {
	next := make(map[domain.MetricKey]*domain.DailyEntityMetric, len(metrics))
	for _, m := range metrics {
		if m == nil || m.EntityID == "" {
			return storage.ErrInvalidInput
		}
		key := domain.MetricKey{Day: domain.TruncateDay(m.Day), EntityID: m.EntityID}
		if _, exists := next[key]; exists {
			return storage.ErrDuplicateKey
		}
		c := *m
		c.Day = key.Day
		next[key] = &c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = next
	return nil
}

// GetAll retrieves all rows ordered by (day, entity_id) ASC.
func (s *DailyMetricStore) GetAll(_ context.Context) ([]*domain.DailyEntityMetric, error) {
	return s.filter(func(*domain.DailyEntityMetric) bool { return true }), nil
}

// GetByEntity retrieves one entity's rows ordered by day ASC.
func (s *DailyMetricStore) GetByEntity(_ context.Context, entityID string) ([]*domain.DailyEntityMetric, error) {
	return s.filter(func(m *domain.DailyEntityMetric) bool {
		return m.EntityID == entityID
	}), nil
}

// GetByEntityBefore retrieves one entity's rows with day < before.
func (s *DailyMetricStore) GetByEntityBefore(_ context.Context, entityID string, before time.Time) ([]*domain.DailyEntityMetric, error) {
	return s.filter(func(m *domain.DailyEntityMetric) bool {
		return m.EntityID == entityID && m.Day.Before(before)
	}), nil
}

func (s *DailyMetricStore) filter(keep func(*domain.DailyEntityMetric) bool) []*domain.DailyEntityMetric {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DailyEntityMetric
	for _, m := range s.data {
		if keep(m) {
			c := *m
			result = append(result, &c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Day.Equal(result[j].Day) {
			return result[i].Day.Before(result[j].Day)
		}
		return result[i].EntityID < result[j].EntityID
	})
	return result
}

var _ storage.DailyMetricStore = (*DailyMetricStore)(nil)
