package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"revenue-feature-lab/internal/training"
)

// ErrAlreadyRunning is returned by Trigger while another run is in progress.
var ErrAlreadyRunning = errors.New("pipeline already running")

// Status is a snapshot of the scheduler state.
type Status struct {
	Running   bool
	Runs      int
	Failures  int
	LastRun   time.Time // finish time of the last run, zero before the first
	LastRunID string
	LastError string
	Interval  time.Duration
	StartedAt time.Time
	NextRunAt time.Time // zero when not scheduled
}

// Scheduler runs the pipeline periodically and on demand, never
// concurrently with itself.
type Scheduler struct {
	runner   *Runner
	loader   Loader
	interval time.Duration
	logger   *zap.Logger
	clock    func() time.Time

	mu        sync.Mutex
	running   bool
	runs      int
	failures  int
	lastRun   time.Time
	lastRunID string
	lastError string
	lastModel training.Predictor
	startedAt time.Time
	nextRunAt time.Time
}

// NewScheduler creates a scheduler. An interval <= 0 disables periodic runs;
// Trigger still works.
func NewScheduler(runner *Runner, loader Loader, interval time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		runner:   runner,
		loader:   loader,
		interval: interval,
		logger:   logger,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// Start runs the pipeline immediately and then every interval until ctx is
// done. Returns ctx.Err(). Run failures are logged and do not stop the loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.startedAt = s.clock()
	s.mu.Unlock()

	s.logger.Info("pipeline scheduler started", zap.Duration("interval", s.interval))
	s.runScheduled(ctx)

	if s.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.mu.Lock()
		s.nextRunAt = s.clock().Add(s.interval)
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runScheduled(ctx)
		}
	}
}

func (s *Scheduler) runScheduled(ctx context.Context) {
	_, err := s.Trigger(ctx)
	if errors.Is(err, ErrAlreadyRunning) {
		s.logger.Info("pipeline already running, skipping scheduled run")
	}
}

// Trigger runs the pipeline once and waits for it.
// Returns ErrAlreadyRunning without running when a run is in progress.
func (s *Scheduler) Trigger(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	res, err := s.runner.RunFrom(ctx, s.loader)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.runs++
	s.lastRun = s.clock()
	s.lastError = ""
	if res != nil {
		s.lastRunID = res.RunID
	}
	if err != nil {
		s.failures++
		s.lastError = err.Error()
	} else if res.Model != nil {
		s.lastModel = res.Model
	}
	return res, err
}

// Model returns the predictor of the last successful run that trained one,
// or nil.
func (s *Scheduler) Model() training.Predictor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastModel
}

// Status returns a snapshot of the scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Running:   s.running,
		Runs:      s.runs,
		Failures:  s.failures,
		LastRun:   s.lastRun,
		LastRunID: s.lastRunID,
		LastError: s.lastError,
		Interval:  s.interval,
		StartedAt: s.startedAt,
		NextRunAt: s.nextRunAt,
	}
}
