// Package metrics exposes the Prometheus collectors of the monitor.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
)

// Metrics usa un registry dedicato: più istanze (test) non collidono.
type Metrics struct {
	reg *prometheus.Registry

	pollTicks       *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	upstreamErrors  *prometheus.CounterVec
	breakerState    *prometheus.GaugeVec
	submissions     *prometheus.CounterVec
	polling         prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		pollTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invernadero_poll_ticks_total",
			Help: "Background poll ticks by outcome (ok, empty, error).",
		}, []string{"outcome"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "invernadero_upstream_request_duration_seconds",
			Help:    "Duration of backend requests by endpoint.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invernadero_upstream_errors_total",
			Help: "Failed backend requests by endpoint.",
		}, []string{"endpoint"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "invernadero_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open).",
		}, []string{"endpoint"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invernadero_submissions_total",
			Help: "User-triggered one-shot requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		polling: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "invernadero_poller_polling",
			Help: "1 while the poller is active, 0 when idle.",
		}),
	}
	m.reg.MustRegister(
		m.pollTicks,
		m.upstreamLatency,
		m.upstreamErrors,
		m.breakerState,
		m.submissions,
		m.polling,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// All methods are nil-safe: components run without metrics in tests.

func (m *Metrics) PollTick(outcome string) {
	if m == nil {
		return
	}
	m.pollTicks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveUpstream(endpoint string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.upstreamLatency.WithLabelValues(endpoint).Observe(d.Seconds())
	if err != nil {
		m.upstreamErrors.WithLabelValues(endpoint).Inc()
	}
}

func (m *Metrics) BreakerState(endpoint string, st gobreaker.State) {
	if m == nil {
		return
	}
	var v float64
	switch st {
	case gobreaker.StateHalfOpen:
		v = 1
	case gobreaker.StateOpen:
		v = 2
	}
	m.breakerState.WithLabelValues(endpoint).Set(v)
}

func (m *Metrics) Submission(kind, outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) Polling(on bool) {
	if m == nil {
		return
	}
	if on {
		m.polling.Set(1)
	} else {
		m.polling.Set(0)
	}
}
