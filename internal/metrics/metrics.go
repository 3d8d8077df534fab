// Package metrics provides Prometheus metrics for the chat server
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Sessions
	SessionsActive prometheus.Gauge
	FramesTotal    *prometheus.CounterVec

	// Provider streaming
	TurnsTotal        *prometheus.CounterVec
	TurnDuration      *prometheus.HistogramVec
	FirstTokenLatency *prometheus.HistogramVec
	TokensStreamed    *prometheus.CounterVec

	// Title inference
	TitlesTotal *prometheus.CounterVec
}

// New creates all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	f := promauto.With(reg)
	m := &Metrics{registry: reg}

	m.HTTPRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neuralizard_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	m.HTTPRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "neuralizard_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.SessionsActive = f.NewGauge(prometheus.GaugeOpts{
		Name: "neuralizard_ws_sessions_active",
		Help: "Number of open WebSocket chat sessions",
	})
	m.FramesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neuralizard_ws_frames_total",
			Help: "Inbound WebSocket frames by type",
		},
		[]string{"type"},
	)

	m.TurnsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neuralizard_turns_total",
			Help: "Completed chat turns by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)
	m.TurnDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "neuralizard_turn_duration_seconds",
			Help:    "Wall-clock duration of streamed turns",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"provider"},
	)
	m.FirstTokenLatency = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "neuralizard_first_token_seconds",
			Help:    "Latency until the first streamed token",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10},
		},
		[]string{"provider"},
	)
	m.TokensStreamed = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neuralizard_tokens_streamed_total",
			Help: "Normalized tokens relayed to clients",
		},
		[]string{"provider"},
	)

	m.TitlesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neuralizard_titles_total",
			Help: "Title inference attempts by outcome",
		},
		[]string{"outcome"},
	)

	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// SessionOpened increments the active session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.SessionsActive.Inc()
}

// SessionClosed decrements the active session gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
}

// RecordFrame counts an inbound frame.
func (m *Metrics) RecordFrame(frameType string) {
	if m == nil {
		return
	}
	if frameType == "" {
		frameType = "content"
	}
	m.FramesTotal.WithLabelValues(frameType).Inc()
}

// RecordTurn records a finished streamed turn.
func (m *Metrics) RecordTurn(provider, outcome string, total, firstToken time.Duration, tokens int) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(provider, outcome).Inc()
	m.TurnDuration.WithLabelValues(provider).Observe(total.Seconds())
	if firstToken > 0 {
		m.FirstTokenLatency.WithLabelValues(provider).Observe(firstToken.Seconds())
	}
	m.TokensStreamed.WithLabelValues(provider).Add(float64(tokens))
}

// RecordTitle counts a title inference outcome.
func (m *Metrics) RecordTitle(outcome string) {
	if m == nil {
		return
	}
	m.TitlesTotal.WithLabelValues(outcome).Inc()
}
