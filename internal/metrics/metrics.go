// Package metrics exposes Prometheus counters for journal changes, exports
// and the HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/terraincognita07/medjournal/internal/services"
)

type Metrics struct {
	ChangesTotal        *prometheus.CounterVec
	ExportsTotal        *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	EventSubscribers    prometheus.Gauge
}

// New registers the collectors on registerer. Each server owns its registry.
func New(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		ChangesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "medjournal_journal_changes_total",
				Help: "Journal changes published to subscribers",
			},
			[]string{"kind"},
		),
		ExportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "medjournal_exports_total",
				Help: "Journal exports produced",
			},
			[]string{"format"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "medjournal_http_requests_total",
				Help: "HTTP requests served",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "medjournal_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		EventSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "medjournal_event_subscribers",
			Help: "Open change-event streams",
		}),
	}
}

// Notify counts a journal change; Metrics can sit in a notifier fan-out.
func (metrics *Metrics) Notify(change services.JournalChange) {
	metrics.ChangesTotal.WithLabelValues(string(change.Kind)).Inc()
}

func (metrics *Metrics) ObserveExport(format string) {
	metrics.ExportsTotal.WithLabelValues(format).Inc()
}

func (metrics *Metrics) ObserveRequest(method string, route string, status int, elapsed time.Duration) {
	metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
