// Package main provides the long-running service:
// - Pipeline (scheduled and on demand): ingestion → features → training
// - HTTP API: health, status, run records, prediction-time features, metrics
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"revenue-feature-lab/internal/api"
	"revenue-feature-lab/internal/config"
	"revenue-feature-lab/internal/ingestion"
	"revenue-feature-lab/internal/logger"
	"revenue-feature-lab/internal/observability"
	"revenue-feature-lab/internal/pipeline"
	"revenue-feature-lab/internal/stores"
)

const shutdownTimeout = 30 * time.Second

// Server holds all components of the service.
type Server struct {
	cfg       *config.Config
	logger    *zap.Logger
	stores    *stores.Set
	scheduler *pipeline.Scheduler
	http      *http.Server
}

func main() {
	configPath := flag.String("config", "", "Path to config file (yaml, json or toml)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	interval := flag.Duration("interval", -1, "Pipeline run interval, 0 runs once at startup (overrides config)")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}
	if *interval >= 0 {
		cfg.RunInterval = *interval
	}

	log, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First signal starts a graceful shutdown, the second forces exit.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
		select {
		case <-sigCh:
			log.Warn("second signal received, forcing exit")
		case <-time.After(shutdownTimeout):
			log.Warn("shutdown timed out, forcing exit")
		}
		os.Exit(1)
	}()

	srv, err := newServer(ctx, cfg, log)
	if err != nil {
		log.Error("server setup failed", zap.Error(err))
		os.Exit(1)
	}
	defer srv.stores.Close()

	if err := srv.Run(ctx); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("server stopped")
}

func newServer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Server, error) {
	set, err := stores.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	var src ingestion.Source = pipeline.Fixtures()
	if cfg.InputDir != "" {
		src = ingestion.NewDirSource(cfg.InputDir)
	}
	manager := ingestion.NewManager(ingestion.ManagerOptions{
		Source:    src,
		RateStore: set.Rates,
		Logger:    log,
	})

	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	runner := pipeline.NewRunner(set.Metrics, set.Features, pipeline.Options{
		Normalization: cfg.Normalization(),
		Features:      cfg.Features(),
		TrainFraction: cfg.TrainFraction,
	}).
		WithRunStore(set.Runs).
		WithLogger(log).
		WithMetrics(metrics).
		WithOutputDir(cfg.OutputDir)
	scheduler := pipeline.NewScheduler(runner, manager, cfg.RunInterval, log)

	handler := api.NewServer(api.Options{
		Logger:      log,
		MetricStore: set.Metrics,
		RunStore:    set.Runs,
		Features:    cfg.Features(),
		Pipeline:    scheduler,
		Metrics:     metrics.Handler(),
	}).Handler()

	return &Server{
		cfg:       cfg,
		logger:    log,
		stores:    set,
		scheduler: scheduler,
		http: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run starts the scheduler and the HTTP server and blocks until ctx is done
// or either of them fails.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := s.scheduler.Start(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.HTTPAddr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
