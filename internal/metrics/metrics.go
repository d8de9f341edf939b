// Package metrics exposes Prometheus collectors for the question pipeline.
package metrics

import (
	"math"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kotae"

// Metrics holds the collectors on a private registry. All methods are safe on
// a nil receiver so components can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	answers            *prometheus.CounterVec
	builds             *prometheus.CounterVec
	persistFailures    prometheus.Counter
	generationFailures prometheus.Counter
	embedDuration      *prometheus.HistogramVec
	buildDuration      prometheus.Histogram
	bestScore          prometheus.Histogram
	passages           *prometheus.GaugeVec
}

// New registers all collectors on a fresh registry, with Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		answers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Questions answered, by result kind and not-found reason.",
		}, []string{"kind", "reason"}),
		builds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_builds_total",
			Help:      "Index builds, by status.",
		}, []string{"status"}),
		persistFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_persist_failures_total",
			Help:      "Index saves that failed.",
		}),
		generationFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failures_total",
			Help:      "Generation calls that returned an error.",
		}),
		embedDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embed_duration_seconds",
			Help:      "Duration of single embedding calls, by task type.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"task"}),
		buildDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_build_duration_seconds",
			Help:      "Duration of whole index builds.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		bestScore: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "best_match_score",
			Help:      "Raw inner-product score of the best match per question.",
			Buckets:   []float64{-1, 0, 0.25, 0.5, 0.75, 1, 2, 5, 10},
		}),
		passages: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_passages",
			Help:      "Passages in the most recently built or loaded index, by key.",
		}, []string{"key"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAnswer counts one gate decision.
func (m *Metrics) ObserveAnswer(kind, reason string) {
	if m == nil {
		return
	}
	m.answers.WithLabelValues(kind, reason).Inc()
}

// ObserveBuild records a finished build.
func (m *Metrics) ObserveBuild(ok bool, d time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if !ok {
		status = "failure"
	}
	m.builds.WithLabelValues(status).Inc()
	m.buildDuration.Observe(d.Seconds())
}

// PersistFailed counts a failed save.
func (m *Metrics) PersistFailed() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

// GenerationFailed counts a failed generation call.
func (m *Metrics) GenerationFailed() {
	if m == nil {
		return
	}
	m.generationFailures.Inc()
}

// ObserveEmbed records one embedding call.
func (m *Metrics) ObserveEmbed(task string, d time.Duration) {
	if m == nil {
		return
	}
	m.embedDuration.WithLabelValues(task).Observe(d.Seconds())
}

// ObserveScore records the best match score. Infinite scores are skipped.
func (m *Metrics) ObserveScore(score float64) {
	if m == nil || math.IsInf(score, 0) || math.IsNaN(score) {
		return
	}
	m.bestScore.Observe(score)
}

// SetPassages records the size of the index under key.
func (m *Metrics) SetPassages(key string, n int) {
	if m == nil {
		return
	}
	m.passages.WithLabelValues(key).Set(float64(n))
}
