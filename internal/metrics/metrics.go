// Package metrics provides Prometheus metrics for the agent.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the agent.
type Metrics struct {
	EventsTotal              *prometheus.CounterVec
	IntentsTotal             *prometheus.CounterVec
	ClassifierFallbacksTotal *prometheus.CounterVec
	DispatchDuration         *prometheus.HistogramVec
	ErrorsTotal              *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_events_total",
				Help: "Webhook events by outcome (processed, duplicate, ignored, unauthorized).",
			},
			[]string{"result"},
		),
		IntentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_intents_total",
				Help: "Classified intents by kind.",
			},
			[]string{"intent"},
		),
		ClassifierFallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_classifier_fallbacks_total",
				Help: "Model classifier fallbacks to the rule path by reason.",
			},
			[]string{"reason"},
		),
		DispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agent_dispatch_duration_seconds",
				Help:    "Event processing duration by intent.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"intent"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_errors_total",
				Help: "Total errors by module and type.",
			},
			[]string{"module", "type"},
		),
		registry: reg,
	}

	reg.MustRegister(m.EventsTotal)
	reg.MustRegister(m.IntentsTotal)
	reg.MustRegister(m.ClassifierFallbacksTotal)
	reg.MustRegister(m.DispatchDuration)
	reg.MustRegister(m.ErrorsTotal)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordEvent increments the event counter for one webhook outcome.
func (m *Metrics) RecordEvent(result string) {
	m.EventsTotal.WithLabelValues(result).Inc()
}

// RecordIntent increments the classified-intent counter.
func (m *Metrics) RecordIntent(intent string) {
	m.IntentsTotal.WithLabelValues(intent).Inc()
}

// RecordFallback increments the classifier fallback counter.
func (m *Metrics) RecordFallback(reason string) {
	m.ClassifierFallbacksTotal.WithLabelValues(reason).Inc()
}

// ObserveDispatch records how long one event took to process.
func (m *Metrics) ObserveDispatch(intent string, seconds float64) {
	m.DispatchDuration.WithLabelValues(intent).Observe(seconds)
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(module, errType string) {
	m.ErrorsTotal.WithLabelValues(module, errType).Inc()
}
