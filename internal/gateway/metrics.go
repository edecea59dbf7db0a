package gateway

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flemzord/tgrelay/internal/relay"
)

// Metrics tracks relay counters twice: lock-free atomics for /status and
// Prometheus collectors for /metrics. It satisfies relay.Observer and
// probe.Gauge.
type Metrics struct {
	requests     atomic.Int64
	successes    atomic.Int64
	failures     atomic.Int64
	totalLatency atomic.Int64 // nanoseconds

	registry      *prometheus.Registry
	relayTotal    *prometheus.CounterVec
	relayDuration *prometheus.HistogramVec
	upstreamUp    prometheus.Gauge
}

// NewMetrics creates Metrics backed by a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		relayTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tgrelay",
			Subsystem: "relay",
			Name:      "requests_total",
			Help:      "Relayed requests by Bot API method and outcome.",
		}, []string{"method", "outcome"}),
		relayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tgrelay",
			Subsystem: "relay",
			Name:      "duration_seconds",
			Help:      "Time spent relaying a request, upstream call included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		upstreamUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tgrelay",
			Name:      "upstream_up",
			Help:      "1 when the last getMe probe succeeded, 0 otherwise.",
		}),
	}
	m.registry.MustRegister(
		m.relayTotal,
		m.relayDuration,
		m.upstreamUp,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

var _ relay.Observer = (*Metrics)(nil)

// ObserveRelay implements relay.Observer.
func (m *Metrics) ObserveRelay(method, outcome string, elapsed time.Duration) {
	m.requests.Add(1)
	if outcome == relay.OutcomeSuccess {
		m.successes.Add(1)
	} else {
		m.failures.Add(1)
	}
	m.totalLatency.Add(int64(elapsed))

	m.relayTotal.WithLabelValues(method, outcome).Inc()
	m.relayDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// SetUpstreamUp implements probe.Gauge.
func (m *Metrics) SetUpstreamUp(up bool) {
	if up {
		m.upstreamUp.Set(1)
	} else {
		m.upstreamUp.Set(0)
	}
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Snapshot returns a consistent point-in-time view of the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	requests := m.requests.Load()
	snap := MetricsSnapshot{
		Requests:  requests,
		Successes: m.successes.Load(),
		Failures:  m.failures.Load(),
	}
	if requests > 0 {
		snap.AvgLatency = time.Duration(m.totalLatency.Load() / requests)
	}
	return snap
}

// MetricsSnapshot is a serializable point-in-time metrics view.
type MetricsSnapshot struct {
	Requests   int64         `json:"requests"`
	Successes  int64         `json:"successes"`
	Failures   int64         `json:"failures"`
	AvgLatency time.Duration `json:"avg_latency_ns"`
}
