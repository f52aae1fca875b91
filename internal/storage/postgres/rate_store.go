package postgres

import (
	"context"
	"fmt"

	"revenue-feature-lab/internal/domain"
	"revenue-feature-lab/internal/storage"
)

// RateStore implements storage.RateStore using PostgreSQL.
type RateStore struct {
	pool *Pool
}

// NewRateStore creates a new RateStore.
func NewRateStore(pool *Pool) *RateStore {
	return &RateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RateStore = (*RateStore)(nil)

// InsertBulk adds multiple rates atomically. Fails entire batch on any duplicate.
func (s *RateStore) InsertBulk(ctx context.Context, rates []*domain.ExchangeRate) error {
	if len(rates) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO fx_rates (currency, rate_date, rate) VALUES ($1, $2, $3)`

	for _, r := range rates {
		if r == nil || r.Currency == "" || r.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, query, r.Currency, domain.TruncateDay(r.Date), r.Rate); err != nil {
			return storageError("insert rate in bulk", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetAll retrieves all rates ordered by (date, currency) ASC.
func (s *RateStore) GetAll(ctx context.Context) ([]*domain.ExchangeRate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT currency, rate_date, rate
		FROM fx_rates
		ORDER BY rate_date ASC, currency ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("get rates: %w", err)
	}
	defer rows.Close()

	var rates []*domain.ExchangeRate
	for rows.Next() {
		var r domain.ExchangeRate
		if err := rows.Scan(&r.Currency, &r.Date, &r.Rate); err != nil {
			return nil, fmt.Errorf("scan rate row: %w", err)
		}
		r.Date = domain.TruncateDay(r.Date)
		rates = append(rates, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rate rows: %w", err)
	}
	return rates, nil
}
