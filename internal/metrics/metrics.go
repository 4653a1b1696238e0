package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "music_school"

// Metrics owns the collectors of one server instance. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	computations      *prometheus.CounterVec
	adjustments       prometheus.Counter
	catalogLoads      *prometheus.CounterVec
	catalogDropped    prometheus.Gauge
	catalogLoadedAt   prometheus.Gauge
	lastSaturation    prometheus.Gauge
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		computations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "computations_total",
			Help:      "Totals computations by kind (package, term, export).",
		}, []string{"kind"}),
		adjustments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "input_adjustments_total",
			Help:      "Request fields clamped or replaced before computing.",
		}),
		catalogLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_loads_total",
			Help:      "Catalog loads by source and outcome.",
		}, []string{"source", "outcome"}),
		catalogDropped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_dropped_rows",
			Help:      "Malformed rows skipped by the last successful catalog load.",
		}),
		catalogLoadedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_loaded_timestamp_seconds",
			Help:      "Unix time of the last successful catalog load.",
		}),
		lastSaturation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_saturation_percent",
			Help:      "Room saturation of the most recent package computation.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpDuration,
		m.computations,
		m.adjustments,
		m.catalogLoads,
		m.catalogDropped,
		m.catalogLoadedAt,
		m.lastSaturation,
	)

	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler counts and times requests served by next under route.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Computed records one computation of the given kind and its saturation.
func (m *Metrics) Computed(kind string, saturationPct float64, adjustments int) {
	if m == nil {
		return
	}
	m.computations.WithLabelValues(kind).Inc()
	m.lastSaturation.Set(saturationPct)
	if adjustments > 0 {
		m.adjustments.Add(float64(adjustments))
	}
}

// CatalogLoaded records a successful catalog load.
func (m *Metrics) CatalogLoaded(source string, dropped int, at time.Time) {
	if m == nil {
		return
	}
	m.catalogLoads.WithLabelValues(source, "ok").Inc()
	m.catalogDropped.Set(float64(dropped))
	m.catalogLoadedAt.Set(float64(at.Unix()))
}

// CatalogFailed records a failed catalog load.
func (m *Metrics) CatalogFailed(source string) {
	if m == nil {
		return
	}
	m.catalogLoads.WithLabelValues(source, "error").Inc()
}
