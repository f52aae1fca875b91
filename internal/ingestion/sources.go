package ingestion

import (
	"context"

	"revenue-feature-lab/internal/domain"
)

// TransactionSource provides raw transaction lines.
type TransactionSource interface {
	// Transactions returns every raw line in delivery order.
	// Lines are returned unvalidated; normalization handles repairs.
	Transactions(ctx context.Context) ([]*domain.RawTransaction, error)
}

// RateSource provides daily exchange rates.
type RateSource interface {
	// Rates returns every known rate row. Later rows for the same
	// (currency, date) replace earlier ones.
	Rates(ctx context.Context) ([]*domain.ExchangeRate, error)
}

// Source provides both inputs of a pipeline run.
type Source interface {
	TransactionSource
	RateSource
}

// StaticSource serves fixed in-memory slices. Used for fixtures and tests.
type StaticSource struct {
	Raw      []*domain.RawTransaction
	RateRows []*domain.ExchangeRate
}

// Transactions returns a shallow copy of the raw slice.
func (s *StaticSource) Transactions(ctx context.Context) ([]*domain.RawTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]*domain.RawTransaction(nil), s.Raw...), nil
}

// Rates returns a shallow copy of the rate slice.
func (s *StaticSource) Rates(ctx context.Context) ([]*domain.ExchangeRate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]*domain.ExchangeRate(nil), s.RateRows...), nil
}

var _ Source = (*StaticSource)(nil)
