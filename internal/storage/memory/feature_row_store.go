package memory

import (
	"context"
	"sort"
	"sync"

	"revenue-feature-lab/internal/domain"
	"revenue-feature-lab/internal/storage"
)

// FeatureRowStore is an in-memory implementation of storage.FeatureRowStore.
type FeatureRowStore struct {
	mu   sync.RWMutex
	data map[domain.MetricKey]*domain.FeatureRow
}

// NewFeatureRowStore creates a new in-memory feature row store.
func NewFeatureRowStore() *FeatureRowStore {
	return &FeatureRowStore{
		data: make(map[domain.MetricKey]*domain.FeatureRow),
	}
}

// ReplaceAll atomically replaces every row.
func (s *FeatureRowStore) ReplaceAll(_ context.Context, rows []*domain.FeatureRow) error {
	next := make(map[domain.MetricKey]*domain.FeatureRow, len(rows))
	for _, r := range rows {
		if r == nil || r.EntityID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := next[r.Key()]; exists {
			return storage.ErrDuplicateKey
		}
		next[r.Key()] = copyRow(r)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = next
	return nil
}

// GetAll retrieves all rows ordered by (entity_id, day) ASC.
func (s *FeatureRowStore) GetAll(_ context.Context) ([]*domain.FeatureRow, error) {
	return s.filter(""), nil
}

// GetByEntity retrieves one entity's rows ordered by day ASC.
func (s *FeatureRowStore) GetByEntity(_ context.Context, entityID string) ([]*domain.FeatureRow, error) {
	if entityID == "" {
		return nil, storage.ErrInvalidInput
	}
	return s.filter(entityID), nil
}

// filter returns copies of the rows of entityID, or all rows when empty.
func (s *FeatureRowStore) filter(entityID string) []*domain.FeatureRow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FeatureRow
	for _, r := range s.data {
		if entityID == "" || r.EntityID == entityID {
			result = append(result, copyRow(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].EntityID != result[j].EntityID {
			return result[i].EntityID < result[j].EntityID
		}
		return result[i].Day.Before(result[j].Day)
	})
	return result
}

func copyRow(r *domain.FeatureRow) *domain.FeatureRow {
	c := *r
	c.Rolling = append([]domain.RollingFeatures(nil), r.Rolling...)
	c.Lags = append([]domain.LagFeatures(nil), r.Lags...)
	return &c
}

var _ storage.FeatureRowStore = (*FeatureRowStore)(nil)
