package ingestion

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"revenue-feature-lab/internal/domain"
	"revenue-feature-lab/internal/storage"
)

// Batch is the loaded input of one pipeline run.
type Batch struct {
	Raw   []*domain.RawTransaction
	Rates domain.RateTable

	RatesAdded int // rate rows newly registered in the rate store
}

// Manager loads pipeline input from a Source.
// When a RateStore is configured, rates are registered there and the run
// uses every rate the store knows, so rates delivered by earlier runs stay
// available.
type Manager struct {
	source    Source
	rateStore storage.RateStore
	logger    *zap.Logger
}

// ManagerOptions contains configuration for creating a Manager.
type ManagerOptions struct {
	Source    Source
	RateStore storage.RateStore // optional
	Logger    *zap.Logger       // optional
}

// NewManager creates a new ingestion manager.
func NewManager(opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		source:    opts.Source,
		rateStore: opts.RateStore,
		logger:    logger,
	}
}

// Load reads transactions and rates from the source.
func (m *Manager) Load(ctx context.Context) (*Batch, error) {
	if m.source == nil {
		return nil, fmt.Errorf("ingestion: no source configured")
	}

	raw, err := m.source.Transactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	rates, err := m.source.Rates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rates: %w", err)
	}

	batch := &Batch{Raw: raw}
	if m.rateStore == nil {
		batch.Rates = domain.NewRateTable(rates)
	} else {
		added, err := m.registerRates(ctx, rates)
		if err != nil {
			return nil, err
		}
		stored, err := m.rateStore.GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("get rates: %w", err)
		}
		batch.RatesAdded = added
		batch.Rates = domain.NewRateTable(stored)
	}

	m.logger.Info("input loaded",
		zap.Int("transactions", len(raw)),
		zap.Int("rates", len(batch.Rates)),
		zap.Int("rates_added", batch.RatesAdded),
	)
	return batch, nil
}

// registerRates inserts rates whose (currency, date) the store does not
// yet hold. Existing rows are kept; within the input the last row wins.
func (m *Manager) registerRates(ctx context.Context, rates []*domain.ExchangeRate) (int, error) {
	existing, err := m.rateStore.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("get rates: %w", err)
	}
	known := domain.NewRateTable(existing)

	fresh := make(map[domain.RateKey]*domain.ExchangeRate)
	for _, r := range rates {
		key := domain.RateKey{Currency: r.Currency, Date: domain.TruncateDay(r.Date)}
		if _, ok := known[key]; ok {
			continue
		}
		fresh[key] = &domain.ExchangeRate{Currency: key.Currency, Date: key.Date, Rate: r.Rate}
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	batch := make([]*domain.ExchangeRate, 0, len(fresh))
	for _, r := range fresh {
		batch = append(batch, r)
	}
	sort.Slice(batch, func(i, j int) bool {
		if !batch[i].Date.Equal(batch[j].Date) {
			return batch[i].Date.Before(batch[j].Date)
		}
		return batch[i].Currency < batch[j].Currency
	})

	if err := m.rateStore.InsertBulk(ctx, batch); err != nil {
		return 0, fmt.Errorf("insert rates: %w", err)
	}
	return len(batch), nil
}
