// Package telemetry holds the Prometheus metrics of the service.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "slotwatch"

// Metrics is the set of collectors shared by the engine and the HTTP layer.
type Metrics struct {
	registry *prometheus.Registry

	Ticks              *prometheus.CounterVec
	TickFailures       *prometheus.CounterVec
	RateLimitExhausted prometheus.Counter
	SuppliesCreated    prometheus.Counter
	Active             prometheus.Gauge

	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "ticks_total",
			Help:      "Periodic task executions by task.",
		}, []string{"task"}),
		TickFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "tick_failures_total",
			Help:      "Periodic task executions that ended in an error or panic.",
		}, []string{"task"}),
		RateLimitExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "rate_limit_exhausted_total",
			Help:      "Draft creations abandoned after the retry budget ran out.",
		}),
		SuppliesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "supplies_created_total",
			Help:      "Supplies committed on a matching slot.",
		}),
		Active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "active",
			Help:      "1 while monitoring is running.",
		}),
		APIRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "endpoint", "status"}),
		APIRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint", "status"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Ticks, m.TickFailures, m.RateLimitExhausted, m.SuppliesCreated, m.Active,
		m.APIRequestsTotal, m.APIRequestDuration,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveTick(task string, err error) {
	m.Ticks.WithLabelValues(task).Inc()
	if err != nil {
		m.TickFailures.WithLabelValues(task).Inc()
	}
}

func (m *Metrics) ObserveRateLimitExhausted() { m.RateLimitExhausted.Inc() }

func (m *Metrics) ObserveSupplyCreated() { m.SuppliesCreated.Inc() }

func (m *Metrics) SetActive(active bool) {
	if active {
		m.Active.Set(1)
		return
	}
	m.Active.Set(0)
}
