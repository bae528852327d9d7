package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "soil_dashboard"

// Metrics holds the Prometheus collectors for the HTTP surface and sample
// mutations.
type Metrics struct {
	HTTPRequests *prometheus.CounterVec   // labels: method, route, status
	HTTPDuration *prometheus.HistogramVec // labels: method, route

	// Mutation outcomes. labels: action={created,updated,deleted}, outcome={success,invalid,denied,not_found,error}
	SampleMutations *prometheus.CounterVec

	StreamSubscribers prometheus.Gauge
	MapRenders        *prometheus.CounterVec // labels: state={empty,rendering}
}

func newMetrics(help bool) *Metrics {
	h := func(s string) string {
		if help {
			return s
		}
		return ""
	}
	return &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      h("HTTP requests by method, route pattern and status code."),
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      h("HTTP request latency by method and route pattern."),
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		SampleMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sample_mutations_total",
			Help:      h("Sample add, edit and delete attempts by outcome."),
		}, []string{"action", "outcome"}),
		StreamSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_subscribers",
			Help:      h("Open SSE connections (event feeds and live maps)."),
		}),
		MapRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "map_renders_total",
			Help:      h("Map views built, by resulting state."),
		}, []string{"state"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.HTTPRequests,
		m.HTTPDuration,
		m.SampleMutations,
		m.StreamSubscribers,
		m.MapRenders,
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics(false)
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}
