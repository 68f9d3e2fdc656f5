package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sophialabs/mockdeck/internal/domain/trace"
	"github.com/sophialabs/mockdeck/internal/infrastructure/ports"
)

const namespace = "mockdeck"

var _ ports.OutcomeRecorder = (*Recorder)(nil)

// Recorder turns request outcomes into Prometheus metrics. It owns its
// registry so several instances can coexist in tests.
type Recorder struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Definitions     prometheus.Gauge
	ReloadsTotal    *prometheus.CounterVec
}

// NewRecorder creates a recorder with Go runtime and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Mock requests resolved, by method, resolution mode, match tier and status.",
			},
			[]string{"method", "mode", "tier", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Time spent resolving mock requests, including configured delays.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		Definitions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "catalog_definitions",
				Help:      "Definitions in the published catalog.",
			},
		),
		ReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_reloads_total",
				Help:      "Catalog reloads by result.",
			},
			[]string{"result"},
		),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.RequestsTotal,
		r.RequestDuration,
		r.Definitions,
		r.ReloadsTotal,
	)
	return r
}

// Record implements ports.OutcomeRecorder.
func (r *Recorder) Record(_ context.Context, e trace.Entry) error {
	tier := e.Tier
	if tier == "" {
		tier = "none"
	}
	r.RequestsTotal.WithLabelValues(e.Method, string(e.Mode), tier, strconv.Itoa(e.Status)).Inc()
	r.RequestDuration.WithLabelValues(string(e.Mode)).Observe(float64(e.ElapsedMs) / 1000)
	return nil
}

// CatalogLoaded records the outcome of a catalog (re)load.
func (r *Recorder) CatalogLoaded(definitions int, err error) {
	if err != nil {
		r.ReloadsTotal.WithLabelValues("error").Inc()
		return
	}
	r.ReloadsTotal.WithLabelValues("ok").Inc()
	r.Definitions.Set(float64(definitions))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
