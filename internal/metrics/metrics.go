// Package metrics provides the Prometheus instrumentation of the bridge.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/webitel/event-fanout-service/internal/domain/model"
	"github.com/webitel/event-fanout-service/internal/domain/registry"
)

const Namespace = "fanout"

var _ registry.Recorder = (*Metrics)(nil)

type Metrics struct {
	gatherer prometheus.Gatherer

	// Hub
	EventsPublished     prometheus.Counter
	EnqueueOutcomes     *prometheus.CounterVec
	FanoutWidth         prometheus.Histogram
	SubscribersActive   *prometheus.GaugeVec
	SubscriberEvictions *prometheus.CounterVec

	// Upstream
	UpstreamReconnects *prometheus.CounterVec

	// HTTP
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
}

// New registers every collector on reg. Pass a fresh registry in tests.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)

	m := &Metrics{
		gatherer: reg,

		EventsPublished: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "hub",
			Name:      "events_published_total",
			Help:      "Events sequenced by the hub",
		}),
		EnqueueOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "hub",
			Name:      "enqueue_outcomes_total",
			Help:      "Per-subscriber enqueue outcomes by overflow policy",
		}, []string{"policy", "outcome"}),
		FanoutWidth: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "hub",
			Name:      "fanout_width",
			Help:      "Active subscribers visited per published event",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		SubscribersActive: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "hub",
			Name:      "subscribers",
			Help:      "Registered subscribers by transport",
		}, []string{"transport"}),
		SubscriberEvictions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "hub",
			Name:      "evictions_total",
			Help:      "Subscribers moved to draining by the disconnect policy",
		}, []string{"transport"}),

		UpstreamReconnects: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "upstream",
			Name:      "reconnects_total",
			Help:      "Upstream reconnect attempts",
		}, []string{"driver"}),

		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method", "path"}),
		HTTPRequestsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		}),
	}

	return m
}

// NewRegistry returns a registry preloaded with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func (m *Metrics) Published(report model.PublishReport, policy model.OverflowPolicy) {
	p := policy.String()

	m.EventsPublished.Inc()
	m.FanoutWidth.Observe(float64(report.Visited))

	if report.Accepted > 0 {
		m.EnqueueOutcomes.WithLabelValues(p, model.Accepted.String()).Add(float64(report.Accepted))
	}
	if report.Dropped > 0 {
		m.EnqueueOutcomes.WithLabelValues(p, model.Dropped.String()).Add(float64(report.Dropped))
	}
	if report.Evicted > 0 {
		m.EnqueueOutcomes.WithLabelValues(p, model.Evicted.String()).Add(float64(report.Evicted))
	}
}

func (m *Metrics) SubscriberOpened(meta model.SubscriberMeta) {
	m.SubscribersActive.WithLabelValues(transportLabel(meta)).Inc()
}

func (m *Metrics) SubscriberEvicted(meta model.SubscriberMeta) {
	m.SubscriberEvictions.WithLabelValues(transportLabel(meta)).Inc()
}

func (m *Metrics) SubscriberClosed(meta model.SubscriberMeta) {
	m.SubscribersActive.WithLabelValues(transportLabel(meta)).Dec()
}

// Middleware returns a chi middleware that records HTTP metrics.
// The chi wrapper keeps Flusher and Hijacker intact for SSE and WebSocket.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		path := routePattern(r)
		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// Handler returns the Prometheus metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func transportLabel(meta model.SubscriberMeta) string {
	if meta.Transport == "" {
		return "unknown"
	}
	return meta.Transport
}

// routePattern falls back to URL path if the pattern is not available.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}
