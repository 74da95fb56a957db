// Package metrics exposes Prometheus collectors for the dashboard.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"complaints/internal/analytics"
	"complaints/internal/cache"
)

const namespace = "complaints"

// Metrics groups the collectors so tests can use a private registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
	Renders        *prometheus.CounterVec
	WidgetErrors   *prometheus.CounterVec
	SnapshotCache  *prometheus.CounterVec
	SnapshotLoad   *prometheus.HistogramVec
	SnapshotRecord prometheus.Gauge
	Refreshes      *prometheus.CounterVec
	RateLimited    prometheus.Counter
	Suspicious     prometheus.Counter
}

var _ cache.Observer = (*Metrics)(nil)

// New creates and registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method"},
		),
		Renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "renders_total",
				Help:      "Dashboard renders by view",
			},
			[]string{"view", "status"},
		),
		WidgetErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "widget_errors_total",
				Help:      "Widgets that could not be computed",
			},
			[]string{"widget"},
		),
		SnapshotCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshot_cache_total",
				Help:      "Snapshot cache lookups by result",
			},
			[]string{"result"},
		),
		SnapshotLoad: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "snapshot_load_seconds",
				Help:      "Time spent loading a snapshot from the data source",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"status"},
		),
		SnapshotRecord: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "snapshot_records",
				Help:      "Records in the last loaded snapshot",
			},
		),
		Refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refresh_requests_total",
				Help:      "Refresh requests by result",
			},
			[]string{"result"},
		),
		RateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Requests rejected by the rate limiter",
			},
		),
		Suspicious: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "suspicious_requests_total",
				Help:      "Requests flagged by the security detector",
			},
		),
	}
	m.registry.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.Renders,
		m.WidgetErrors,
		m.SnapshotCache,
		m.SnapshotLoad,
		m.SnapshotRecord,
		m.Refreshes,
		m.RateLimited,
		m.Suspicious,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) CacheHit()  { m.SnapshotCache.WithLabelValues("hit").Inc() }
func (m *Metrics) CacheMiss() { m.SnapshotCache.WithLabelValues("miss").Inc() }

// SnapshotLoaded records one load from the underlying reader.
func (m *Metrics) SnapshotLoaded(d time.Duration, records int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.SnapshotLoad.WithLabelValues(status).Observe(d.Seconds())
	if err == nil {
		m.SnapshotRecord.Set(float64(records))
	}
}

// ObserveRequest records one completed HTTP request.
func (m *Metrics) ObserveRequest(method string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, statusClass(status)).Inc()
	m.HTTPDuration.WithLabelValues(method).Observe(d.Seconds())
}

// ObserveDashboard records a render and the widgets that failed in it.
func (m *Metrics) ObserveDashboard(view string, d *analytics.Dashboard, err error) {
	if err != nil || d == nil {
		m.Renders.WithLabelValues(view, "error").Inc()
		return
	}
	m.Renders.WithLabelValues(view, "ok").Inc()
	for w, werr := range d.Errors {
		if werr != nil {
			m.WidgetErrors.WithLabelValues(string(w)).Inc()
		}
	}
}

// ObserveRefresh records the outcome of a refresh request.
func (m *Metrics) ObserveRefresh(result string) {
	m.Refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) RateLimitHit()      { m.RateLimited.Inc() }
func (m *Metrics) SuspiciousRequest() { m.Suspicious.Inc() }

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
