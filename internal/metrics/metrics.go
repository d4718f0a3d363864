package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrSnakeDoc/beacon/internal/events"
	"github.com/MrSnakeDoc/beacon/internal/registry"
)

const namespace = "beacon"

// Metrics owns a private prometheus registry so tests can build as many as
// they like without colliding on the default one.
type Metrics struct {
	reg     *prometheus.Registry
	events  *prometheus.CounterVec
	dropped *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		reg: reg,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Inbound events handled by the router, by kind and outcome.",
		}, []string{"kind", "applied"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Frames dropped by the transport before reaching the router.",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.events, m.dropped)
	return m
}

// EventHandled implements events.Observer.
func (m *Metrics) EventHandled(kind events.Kind, applied bool) {
	outcome := "false"
	if applied {
		outcome = "true"
	}
	m.events.WithLabelValues(string(kind), outcome).Inc()
}

// FrameDropped counts a frame the transport refused.
func (m *Metrics) FrameDropped(reason string) {
	m.dropped.WithLabelValues(reason).Inc()
}

// TrackRegistry exposes instance and endpoint gauges read at scrape time.
func (m *Metrics) TrackRegistry(r *registry.Registry) {
	m.reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "instances",
			Help:      "Service instances currently registered.",
		}, func() float64 {
			n, _ := r.Count()
			return float64(n)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "endpoints",
			Help:      "Endpoints currently registered across all instances.",
		}, func() float64 {
			_, n := r.Count()
			return float64(n)
		}),
	)
}

// TrackConnections exposes the number of open transport connections.
func (m *Metrics) TrackConnections(count func() int) {
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connections",
		Help:      "Open event connections.",
	}, func() float64 { return float64(count()) }))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
