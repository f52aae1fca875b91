// Package observability provides Prometheus metrics for pipeline runs.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one pipeline instance.
type Metrics struct {
	gatherer prometheus.Gatherer

	RecordsIn      prometheus.Counter
	RecordsDropped *prometheus.CounterVec
	RowsOut        *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec

	PipelineRuns           *prometheus.CounterVec
	PipelineDuration       prometheus.Histogram
	LastSuccessfulPipeline prometheus.Gauge

	Evaluation *prometheus.GaugeVec
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	return NewMetricsWith(namespace, reg, reg)
}

// NewMetricsWith registers all collectors on reg and serves them from g.
func NewMetricsWith(namespace string, reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	if namespace == "" {
		namespace = "revenue_feature_lab"
	}
	f := promauto.With(reg)

	return &Metrics{
		gatherer: g,

		RecordsIn: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalization",
			Name:      "records_in_total",
			Help:      "Raw transaction records read",
		}),
		RecordsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalization",
			Name:      "records_dropped_total",
			Help:      "Raw transaction records dropped by reason",
		}, []string{"reason"}),
		RowsOut: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "rows_out_total",
			Help:      "Rows emitted by each stage",
		}, []string{"stage"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Stage execution duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"stage"}),

		PipelineRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Pipeline runs by status",
		}, []string{"status"}),
		PipelineDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{0.01, 0.1, 1, 5, 10, 30, 60, 300},
		}),
		LastSuccessfulPipeline: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),

		Evaluation: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "evaluation",
			Help:      "Latest evaluation metric by dataset and metric name",
		}, []string{"set", "metric"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveStage records one stage's output size and duration.
func (m *Metrics) ObserveStage(stage string, rows int, d time.Duration) {
	m.RowsOut.WithLabelValues(stage).Add(float64(rows))
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordDropped adds n records dropped for reason. Zero counts still create
// the series so dashboards see every reason.
func (m *Metrics) RecordDropped(reason string, n int) {
	m.RecordsDropped.WithLabelValues(reason).Add(float64(n))
}

// RecordRun records a finished pipeline run.
func (m *Metrics) RecordRun(status string, d time.Duration, finished time.Time) {
	m.PipelineRuns.WithLabelValues(status).Inc()
	m.PipelineDuration.Observe(d.Seconds())
	if status == "succeeded" {
		m.LastSuccessfulPipeline.Set(float64(finished.Unix()))
	}
}

// SetEvaluation publishes the latest error metrics for set ("fit" or "evaluate").
func (m *Metrics) SetEvaluation(set string, mae, rmse, r2 float64) {
	m.Evaluation.WithLabelValues(set, "mae").Set(mae)
	m.Evaluation.WithLabelValues(set, "rmse").Set(rmse)
	m.Evaluation.WithLabelValues(set, "r2").Set(r2)
}
