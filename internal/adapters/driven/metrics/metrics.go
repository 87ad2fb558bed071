// Package metrics provides Prometheus metrics for the monitor and query engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/policywatch/internal/core/domain"
	"github.com/custodia-labs/policywatch/internal/core/ports/driven"
)

// Ensure Metrics implements the interface.
var _ driven.Metrics = (*Metrics)(nil)

const namespace = "policywatch"

// Metrics holds all Prometheus metrics on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// Monitoring loop
	TicksTotal      prometheus.Counter
	TickDuration    prometheus.Histogram
	EventsTotal     *prometheus.CounterVec
	ConflictsTotal  prometheus.Counter
	LastTickSeconds prometheus.Gauge

	// Inference gateway
	InferenceTotal    *prometheus.CounterVec
	InferenceDuration *prometheus.HistogramVec
	RetriesTotal      prometheus.Counter

	// Summary cache
	CachedSummaries *prometheus.GaugeVec
}

// New creates and registers all metrics, plus the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		TicksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_ticks_total",
			Help:      "Total number of monitoring ticks",
		}),
		TickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "monitor_tick_duration_seconds",
			Help:      "Duration of monitoring ticks in seconds",
			Buckets:   []float64{.01, .1, .5, 1, 5, 15, 60, 300, 900},
		}),
		EventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_events_total",
			Help:      "Total number of processed change events",
		}, []string{"collection", "type", "status"}),
		ConflictsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_conflicts_total",
			Help:      "Total number of reported policy inconsistencies",
		}),
		LastTickSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitor_last_tick_timestamp_seconds",
			Help:      "Unix time the last monitoring tick completed",
		}),

		InferenceTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_requests_total",
			Help:      "Total number of inference calls",
		}, []string{"operation", "status"}),
		InferenceDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_request_duration_seconds",
			Help:      "Duration of inference calls in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"operation"}),
		RetriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reference_retries_total",
			Help:      "Total number of reference-scan chunk retries",
		}),

		CachedSummaries: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cached_summaries",
			Help:      "Number of summaries held in the cache",
		}, []string{"collection"}),
	}
}

// ObserveTick records a completed monitoring tick.
func (m *Metrics) ObserveTick(result domain.TickResult) {
	m.TicksTotal.Inc()
	if !result.EndedAt.IsZero() {
		m.TickDuration.Observe(result.EndedAt.Sub(result.StartedAt).Seconds())
		m.LastTickSeconds.Set(float64(result.EndedAt.Unix()))
	}
	m.ConflictsTotal.Add(float64(result.Conflicts))
}

// ObserveEvent records a processed change event.
func (m *Metrics) ObserveEvent(col domain.Collection, change domain.ChangeType, success bool) {
	m.EventsTotal.WithLabelValues(string(col), string(change), status(success)).Inc()
}

// ObserveInference records one inference call.
func (m *Metrics) ObserveInference(operation string, d time.Duration, err error) {
	m.InferenceTotal.WithLabelValues(operation, status(err == nil)).Inc()
	m.InferenceDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveRetry records a reference-scan retry.
func (m *Metrics) ObserveRetry() {
	m.RetriesTotal.Inc()
}

// SetCacheSize records the number of cached summaries in a collection.
func (m *Metrics) SetCacheSize(col domain.Collection, n int) {
	m.CachedSummaries.WithLabelValues(string(col)).Set(float64(n))
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
