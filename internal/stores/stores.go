// Package stores opens the storage backends selected by configuration.
//
// Daily metrics, exchange rates and run records live in PostgreSQL when
// postgres_dsn is set, feature rows in ClickHouse when clickhouse_dsn is
// set. Anything left unconfigured falls back to the in-memory stores.
package stores

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"revenue-feature-lab/internal/config"
	"revenue-feature-lab/internal/storage"
	chstore "revenue-feature-lab/internal/storage/clickhouse"
	"revenue-feature-lab/internal/storage/memory"
	"revenue-feature-lab/internal/storage/migrations"
	pgstore "revenue-feature-lab/internal/storage/postgres"
)

// Set holds every store the pipeline and the API use.
type Set struct {
	Metrics  storage.DailyMetricStore
	Features storage.FeatureRowStore
	Rates    storage.RateStore
	Runs     storage.RunStore

	closers []func()
}

// Memory returns a set backed only by in-memory stores.
func Memory() *Set {
	return &Set{
		Metrics:  memory.NewDailyMetricStore(),
		Features: memory.NewFeatureRowStore(),
		Rates:    memory.NewRateStore(),
		Runs:     memory.NewRunStore(),
	}
}

// Open connects the configured backends and applies their migrations.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Set, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	set := Memory()

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		set.closers = append(set.closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			set.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		set.Metrics = pgstore.NewDailyMetricStore(pool)
		set.Rates = pgstore.NewRateStore(pool)
		set.Runs = pgstore.NewRunStore(pool)
		logger.Info("using postgres stores", zap.Int32("max_conns", cfg.PostgresMaxConns))
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			set.Close()
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		set.closers = append(set.closers, func() { _ = conn.Close() })
		set.Features = chstore.NewFeatureRowStore(conn)
		logger.Info("using clickhouse feature store")
	}

	return set, nil
}

// Close releases every open connection, last opened first.
func (s *Set) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
