package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"revenue-feature-lab/internal/domain"
	"revenue-feature-lab/internal/features"
	"revenue-feature-lab/internal/forecast"
	"revenue-feature-lab/internal/pipeline"
	"revenue-feature-lab/internal/storage"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RunResponse is the JSON form of a run record.
type RunResponse struct {
	RunID       string     `json:"run_id"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	InputRows   int        `json:"input_rows"`
	OutputRows  int        `json:"output_rows"`
	MetricRows  int        `json:"metric_rows"`
	FeatureRows int        `json:"feature_rows"`
	FitRows     int        `json:"fit_rows"`
	EvalRows    int        `json:"eval_rows"`
	Error       *string    `json:"error,omitempty"`
}

func newRunResponse(r *storage.RunRecord) RunResponse {
	return RunResponse{
		RunID:       r.RunID,
		Status:      string(r.Status),
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		InputRows:   r.InputRows,
		OutputRows:  r.OutputRows,
		MetricRows:  r.MetricRows,
		FeatureRows: r.FeatureRows,
		FitRows:     r.FitRows,
		EvalRows:    r.EvalRows,
		Error:       r.Error,
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status          string       `json:"status"`
	Uptime          string       `json:"uptime"`
	PipelineRunning bool         `json:"pipeline_running"`
	PipelineRuns    int          `json:"pipeline_runs"`
	PipelineFailed  int          `json:"pipeline_failures"`
	NextRunAt       *time.Time   `json:"next_run_at,omitempty"`
	LatestRun       *RunResponse `json:"latest_run,omitempty"`
}

// FeatureResponse is the prediction-time feature vector of one entity and day.
// FeatureDay is the last observed day whose feature row is served.
type FeatureResponse struct {
	EntityID       string             `json:"entity_id"`
	Day            string             `json:"day"`
	FeatureDay     string             `json:"feature_day"`
	Columns        []string           `json:"columns"`
	Values         []float64          `json:"values"`
	Features       map[string]float64 `json:"features"`
	HistoricalDays int                `json:"historical_days"`
	Recent7dAvg    float64            `json:"recent_7d_avg"`
	Recent7dStd    float64            `json:"recent_7d_std"`
	LastObservedOn string             `json:"last_observed_on"`
	PredictedNet   *float64           `json:"predicted_net,omitempty"`
}

type featureQuery struct {
	Day string `form:"day" binding:"required,datetime=2006-01-02"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) status(c *gin.Context) {
	resp := StatusResponse{
		Status: "ok",
		Uptime: s.clock().Sub(s.started).Round(time.Second).String(),
	}
	if s.pipeline != nil {
		st := s.pipeline.Status()
		resp.PipelineRunning = st.Running
		resp.PipelineRuns = st.Runs
		resp.PipelineFailed = st.Failures
		if !st.NextRunAt.IsZero() {
			next := st.NextRunAt
			resp.NextRunAt = &next
		}
	}

	run, err := s.runStore.Latest(c.Request.Context())
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		s.internalError(c, "get latest run", err)
		return
	default:
		r := newRunResponse(run)
		resp.LatestRun = &r
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) entityFeatures(c *gin.Context) {
	entityID := c.Param("entity")

	var q featureQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "day must be given as YYYY-MM-DD"})
		return
	}
	day, err := time.Parse(time.DateOnly, q.Day)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	history, err := s.metricStore.GetByEntityBefore(c.Request.Context(), entityID, day)
	if err != nil {
		s.internalError(c, "get metric history", err)
		return
	}
	in, err := forecast.BuildFeatures(history, entityID, day, s.features)
	switch {
	case errors.Is(err, domain.ErrInsufficientHistory):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		s.internalError(c, "build features", err)
		return
	}

	columns := features.Columns(s.features)
	values := features.Values(in.Row)
	named := make(map[string]float64, len(columns))
	for i, col := range columns {
		named[col] = values[i]
	}
	resp := FeatureResponse{
		EntityID:       entityID,
		Day:            day.Format(time.DateOnly),
		FeatureDay:     in.Row.Day.Format(time.DateOnly),
		Columns:        columns,
		Values:         values,
		Features:       named,
		HistoricalDays: in.HistoryDays,
		Recent7dAvg:    in.RecentMeanNet,
		Recent7dStd:    in.RecentStdNet,
		LastObservedOn: in.LastObservedOn.Format(time.DateOnly),
	}
	if s.pipeline != nil {
		if model := s.pipeline.Model(); model != nil {
			if y, err := model.Predict(values); err == nil {
				resp.PredictedNet = &y
			} else {
				s.logger.Warn("predict", zap.String("entity_id", entityID), zap.Error(err))
			}
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) latestRun(c *gin.Context) {
	run, err := s.runStore.Latest(c.Request.Context())
	s.writeRun(c, run, err)
}

func (s *Server) getRun(c *gin.Context) {
	run, err := s.runStore.Get(c.Request.Context(), c.Param("id"))
	s.writeRun(c, run, err)
}

func (s *Server) writeRun(c *gin.Context, run *storage.RunRecord, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "run not found"})
	case err != nil:
		s.internalError(c, "get run", err)
	default:
		c.JSON(http.StatusOK, newRunResponse(run))
	}
}

// triggerRun runs the pipeline synchronously and answers with its record.
func (s *Server) triggerRun(c *gin.Context) {
	if s.pipeline == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "pipeline not configured"})
		return
	}
	res, err := s.pipeline.Trigger(c.Request.Context())
	switch {
	case errors.Is(err, pipeline.ErrAlreadyRunning):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case res != nil && res.Run != nil:
		// Failed runs are still reported with their record.
		status := http.StatusCreated
		if err != nil {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, newRunResponse(res.Run))
	case err != nil:
		s.internalError(c, "trigger run", err)
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "run produced no record"})
	}
}

func (s *Server) internalError(c *gin.Context, op string, err error) {
	s.logger.Error(op, zap.Error(err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}
