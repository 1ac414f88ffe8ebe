package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the relay and the
// session synchronizer.
type Metrics struct {
	registry              *prometheus.Registry
	requestsTotal         prometheus.Counter
	errorsTotal           prometheus.Counter
	manifestRewritesTotal prometheus.Counter
	upstreamErrorsTotal   prometheus.Counter
	sessionEventsTotal    *prometheus.CounterVec
	activeSessions        prometheus.Gauge
	connectedParticipants prometheus.Gauge
}

// New creates and registers Prometheus metrics for the server.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_http_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_http_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	manifestRewritesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_manifest_rewrites_total",
		Help: "Total number of HLS manifests rewritten by the relay",
	})
	upstreamErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_upstream_errors_total",
		Help: "Total number of failed upstream fetches (bad input, upstream status, network, timeout)",
	})
	sessionEventsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "session_events_total",
		Help: "Total number of realtime events processed, by event type",
	}, []string{"event"})
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sessions_active",
		Help: "Number of sessions with at least one participant",
	})
	connectedParticipants := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "session_participants",
		Help: "Participant count summed over all sessions",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		manifestRewritesTotal,
		upstreamErrorsTotal,
		sessionEventsTotal,
		activeSessions,
		connectedParticipants,
	)

	return &Metrics{
		registry:              registry,
		requestsTotal:         requestsTotal,
		errorsTotal:           errorsTotal,
		manifestRewritesTotal: manifestRewritesTotal,
		upstreamErrorsTotal:   upstreamErrorsTotal,
		sessionEventsTotal:    sessionEventsTotal,
		activeSessions:        activeSessions,
		connectedParticipants: connectedParticipants,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncManifestRewrites increments the manifest rewrite counter.
func (m *Metrics) IncManifestRewrites() {
	m.manifestRewritesTotal.Inc()
}

// IncUpstreamErrors increments the failed upstream fetch counter.
func (m *Metrics) IncUpstreamErrors() {
	m.upstreamErrorsTotal.Inc()
}

// IncSessionEvents increments the realtime event counter for an event type.
func (m *Metrics) IncSessionEvents(event string) {
	m.sessionEventsTotal.WithLabelValues(event).Inc()
}

// SetActiveSessions sets the active sessions gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// SetConnectedParticipants sets the connected participants gauge.
func (m *Metrics) SetConnectedParticipants(n int) {
	m.connectedParticipants.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values
// (e.g. active sessions and participants).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
