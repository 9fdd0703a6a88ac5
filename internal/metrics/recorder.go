// Package metrics exposes pipeline instrumentation through a private Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder collects forecast pipeline metrics. A nil *Recorder is valid and
// records nothing, so components can be built without instrumentation.
type Recorder struct {
	registry *prometheus.Registry

	upstreamAttempts *prometheus.CounterVec
	upstreamRetries  *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	clampedValues    prometheus.Counter
	runsTotal        *prometheus.CounterVec
}

// NewRecorder creates a Recorder with Go runtime and process collectors registered
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Recorder{
		registry: registry,
		upstreamAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pvforecast_upstream_attempts_total",
			Help: "Weather upstream attempts by source and outcome.",
		}, []string{"source", "outcome"}),
		upstreamRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pvforecast_upstream_retries_total",
			Help: "Weather upstream retries after a transient failure.",
		}, []string{"source"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pvforecast_stage_duration_seconds",
			Help:    "Duration of forecast pipeline stages.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		clampedValues: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pvforecast_clamped_predictions_total",
			Help: "Model outputs floored to zero.",
		}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pvforecast_runs_total",
			Help: "Forecast runs by outcome.",
		}, []string{"outcome"}),
	}

	registry.MustRegister(r.upstreamAttempts)
	registry.MustRegister(r.upstreamRetries)
	registry.MustRegister(r.stageDuration)
	registry.MustRegister(r.clampedValues)
	registry.MustRegister(r.runsTotal)

	return r
}

// UpstreamAttempt counts one upstream call and its classified outcome
func (r *Recorder) UpstreamAttempt(source, outcome string) {
	if r == nil {
		return
	}
	r.upstreamAttempts.WithLabelValues(source, outcome).Inc()
}

// UpstreamRetry counts a retry scheduled after a transient failure
func (r *Recorder) UpstreamRetry(source string) {
	if r == nil {
		return
	}
	r.upstreamRetries.WithLabelValues(source).Inc()
}

// ObserveStage records how long a pipeline stage took
func (r *Recorder) ObserveStage(stage string, started time.Time) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

// Clamped counts model outputs that were floored to zero
func (r *Recorder) Clamped(n int) {
	if r == nil || n == 0 {
		return
	}
	r.clampedValues.Add(float64(n))
}

// Run counts a scheduler run by outcome
func (r *Recorder) Run(outcome string) {
	if r == nil {
		return
	}
	r.runsTotal.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
