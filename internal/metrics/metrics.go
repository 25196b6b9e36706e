// Package metrics exposes the bot's Prometheus collectors. A nil *Metrics is
// valid and records nothing, so components can be built without metrics in
// tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shadowbot"

// Shadow event labels.
const (
	EventCaptured  = "captured"
	EventDuplicate = "duplicate"
	EventSkipped   = "skipped"
	EventUpsell    = "upsell"
	EventEdited    = "edited"
	EventDeleted   = "deleted"
	EventRecovered = "recovered_media"
)

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	updates         *prometheus.CounterVec
	shadowEvents    *prometheus.CounterVec
	notifyFailures  *prometheus.CounterVec
	resolveFailures prometheus.Counter
	handlerPanics   prometheus.Counter
	purged          prometheus.Counter
	handleDuration  *prometheus.HistogramVec
}

// New creates the collectors and registers them together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Telegram updates received, by kind.",
		}, []string{"kind"}),
		shadowEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shadow_events_total",
			Help:      "Reconciler outcomes, by event.",
		}, []string{"event"}),
		notifyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_failures_total",
			Help:      "Owner notifications that could not be delivered, by kind.",
		}, []string{"kind"}),
		resolveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "owner_resolve_failures_total",
			Help:      "Business connections that could not be resolved to an owner.",
		}),
		handlerPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_panics_total",
			Help:      "Update handlers that panicked and were recovered.",
		}),
		purged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_purged_total",
			Help:      "Shadow messages removed by the retention sweep.",
		}),
		handleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_handle_seconds",
			Help:      "Time spent handling one update, by kind.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.updates,
		m.shadowEvents,
		m.notifyFailures,
		m.resolveFailures,
		m.handlerPanics,
		m.purged,
		m.handleDuration,
	)
	return m
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
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Update counts one received update of the given kind.
func (m *Metrics) Update(kind string) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(kind).Inc()
}

// ObserveHandle records how long handling an update of kind took.
func (m *Metrics) ObserveHandle(kind string, seconds float64) {
	if m == nil {
		return
	}
	m.handleDuration.WithLabelValues(kind).Observe(seconds)
}

// ShadowEvent counts one reconciler outcome.
func (m *Metrics) ShadowEvent(event string) {
	m.ShadowEvents(event, 1)
}

// ShadowEvents counts n reconciler outcomes.
func (m *Metrics) ShadowEvents(event string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.shadowEvents.WithLabelValues(event).Add(float64(n))
}

// NotifyFailed counts one undelivered owner notification.
func (m *Metrics) NotifyFailed(kind string) {
	if m == nil {
		return
	}
	m.notifyFailures.WithLabelValues(kind).Inc()
}

// ResolveFailed counts one failed owner resolution.
func (m *Metrics) ResolveFailed() {
	if m == nil {
		return
	}
	m.resolveFailures.Inc()
}

// Panic counts one recovered handler panic.
func (m *Metrics) Panic() {
	if m == nil {
		return
	}
	m.handlerPanics.Inc()
}

// Purged adds n rows to the retention counter.
func (m *Metrics) Purged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.purged.Add(float64(n))
}
