// Package metrics exposes request and counter metrics in Prometheus format.
package metrics

import (
	"math"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"webdemo/pkg/counters"
)

const namespace = "webdemo"

// Metrics owns a registry and the collectors the server reports through it.
type Metrics struct {
	reg      *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New builds a registry with process, Go runtime and request collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by matched route and status code.",
			},
			[]string{"route", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by matched route.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.duration,
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "gc_pause_total_ns",
				Help:      "Total GC pause time in nanoseconds.",
			},
			func() float64 {
				var stats runtime.MemStats
				runtime.ReadMemStats(&stats)
				return float64(stats.PauseTotalNs)
			},
		),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(route string, code int, d time.Duration) {
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(route).Observe(d.Seconds())
}

// TrackCounters exports the shared counters as gauges. A poisoned exclusive
// counter reports NaN.
func (m *Metrics) TrackCounters(ex *counters.Exclusive, g *counters.Global) error {
	exclusive := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "exclusive_counter",
			Help:      "Current value of the mutex-guarded request counter.",
		},
		func() float64 {
			v, err := ex.Value()
			if err != nil {
				return math.NaN()
			}
			return float64(v)
		},
	)
	global := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "global_counter",
			Help:      "Current value of the atomic counter shared by all workers.",
		},
		func() float64 { return float64(g.Load()) },
	)
	if err := m.reg.Register(exclusive); err != nil {
		return err
	}
	return m.reg.Register(global)
}

// TrackWorkers exports per-worker served counts read from stats.
func (m *Metrics) TrackWorkers(n int, stats func() []uint64) error {
	for id := 0; id < n; id++ {
		id := id
		c := prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "worker_requests_total",
				Help:        "Requests served by each worker.",
				ConstLabels: prometheus.Labels{"worker": strconv.Itoa(id)},
			},
			func() float64 {
				s := stats()
				if id >= len(s) {
					return 0
				}
				return float64(s[id])
			},
		)
		if err := m.reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
