// Package api exposes health, run status, prediction-time features and
// pipeline triggering over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"revenue-feature-lab/internal/features"
	"revenue-feature-lab/internal/pipeline"
	"revenue-feature-lab/internal/storage"
	"revenue-feature-lab/internal/training"
)

// Pipeline is the part of the scheduler the API drives.
type Pipeline interface {
	Trigger(ctx context.Context) (*pipeline.Result, error)
	Status() pipeline.Status
	Model() training.Predictor
}

// Options configures a Server.
type Options struct {
	Logger      *zap.Logger
	MetricStore storage.DailyMetricStore // required
	RunStore    storage.RunStore         // required
	Features    features.Config
	Pipeline    Pipeline     // optional, POST /api/v1/runs answers 503 without it
	Metrics     http.Handler // optional, served on /metrics
}

// Server is the HTTP API.
type Server struct {
	router      *gin.Engine
	logger      *zap.Logger
	metricStore storage.DailyMetricStore
	runStore    storage.RunStore
	features    features.Config
	pipeline    Pipeline
	started     time.Time
	clock       func() time.Time
}

// NewServer creates the API server and registers its routes.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))

	s := &Server{
		router:      router,
		logger:      logger,
		metricStore: opts.MetricStore,
		runStore:    opts.RunStore,
		features:    opts.Features,
		pipeline:    opts.Pipeline,
		clock:       func() time.Time { return time.Now().UTC() },
	}
	s.started = s.clock()
	s.registerRoutes(opts.Metrics)
	return s
}

// Router returns the internal Gin engine for testing purposes
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes(metrics http.Handler) {
	s.router.GET("/health", s.health)
	s.router.GET("/status", s.status)
	if metrics != nil {
		s.router.GET("/metrics", gin.WrapH(metrics))
	}

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/entities/:entity/features", s.entityFeatures)

		runs := v1.Group("/runs")
		{
			runs.GET("/latest", s.latestRun)
			runs.GET("/:id", s.getRun)
			runs.POST("", s.triggerRun)
		}
	}
}
