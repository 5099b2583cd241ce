// Package metrics holds Prometheus instrumentation for productflow.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for pipelines and LLM calls.
type Metrics struct {
	// Pipeline execution
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec

	// LLM calls
	LLMRequestsTotal   *prometheus.CounterVec
	LLMRequestDuration prometheus.Histogram

	// Stale-run reconciliation
	SweeperReapedTotal *prometheus.CounterVec
}

// New creates and registers Prometheus metrics.
//
// sync.Once ensures metrics are only registered once globally, preventing
// duplicate collector registration panics.
//
// Metrics:
//   - productflow_pipeline_runs_total{pipeline,status} - completed pipeline runs
//   - productflow_pipeline_duration_seconds{pipeline}  - pipeline run durations
//   - productflow_llm_requests_total{status}           - LLM calls by outcome
//   - productflow_llm_request_duration_seconds         - LLM call durations
//   - productflow_sweeper_reaped_total{pipeline}       - stale runs marked failed
func New() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			PipelineRunsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "productflow_pipeline_runs_total",
					Help: "Total number of completed pipeline runs",
				},
				[]string{"pipeline", "status"}, // pipeline: "analysis", "research"; status: "completed", "failed"
			),

			PipelineDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "productflow_pipeline_duration_seconds",
					Help:    "Duration of pipeline runs",
					Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
				},
				[]string{"pipeline"},
			),

			LLMRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "productflow_llm_requests_total",
					Help: "Total number of LLM calls",
				},
				[]string{"status"}, // "ok" or "error"
			),

			LLMRequestDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "productflow_llm_request_duration_seconds",
					Help:    "Duration of LLM calls",
					Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
				},
			),

			SweeperReapedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "productflow_sweeper_reaped_total",
					Help: "Total number of stale runs marked failed by the sweeper",
				},
				[]string{"pipeline"},
			),
		}
	})
	return globalMetrics
}

// RecordPipelineRun records one terminal pipeline outcome.
func (m *Metrics) RecordPipelineRun(pipeline, status string, duration time.Duration) {
	m.PipelineRunsTotal.WithLabelValues(pipeline, status).Inc()
	m.PipelineDuration.WithLabelValues(pipeline).Observe(duration.Seconds())
}

// RecordLLMRequest records one LLM call outcome.
func (m *Metrics) RecordLLMRequest(status string, duration time.Duration) {
	m.LLMRequestsTotal.WithLabelValues(status).Inc()
	m.LLMRequestDuration.Observe(duration.Seconds())
}

// RecordSweep records stale runs reaped for a pipeline.
func (m *Metrics) RecordSweep(pipeline string, count int64) {
	if count > 0 {
		m.SweeperReapedTotal.WithLabelValues(pipeline).Add(float64(count))
	}
}
