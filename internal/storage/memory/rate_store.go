package memory

import (
	"context"
	"sort"
	"sync"

	"revenue-feature-lab/internal/domain"
	"revenue-feature-lab/internal/storage"
)

// RateStore is an in-memory implementation of storage.RateStore.
type RateStore struct {
	mu   sync.RWMutex
	data map[domain.RateKey]*domain.ExchangeRate
}

// NewRateStore creates a new in-memory rate store.
func NewRateStore() *RateStore {
	return &RateStore{
		data: make(map[domain.RateKey]*domain.ExchangeRate),
	}
}

// InsertBulk adds multiple rates. Fails entire batch on duplicate.
func (s *RateStore) InsertBulk(_ context.Context, rates []*domain.ExchangeRate) error {
	if len(rates) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[domain.RateKey]struct{}, len(rates))
	for _, r := range rates {
		if r == nil || r.Currency == "" || r.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		key := domain.RateKey{Currency: r.Currency, Date: domain.TruncateDay(r.Date)}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, r := range rates {
		c := *r
		c.Date = domain.TruncateDay(r.Date)
		s.data[domain.RateKey{Currency: c.Currency, Date: c.Date}] = &c
	}
	return nil
}

// GetAll retrieves all rates ordered by (date, currency) ASC.
func (s *RateStore) GetAll(_ context.Context) ([]*domain.ExchangeRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ExchangeRate, 0, len(s.data))
	for _, r := range s.data {
		c := *r
		result = append(result, &c)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].Currency < result[j].Currency
	})
	return result, nil
}

var _ storage.RateStore = (*RateStore)(nil)
