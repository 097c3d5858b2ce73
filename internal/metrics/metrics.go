// Package metrics provides the Prometheus instruments for docpress.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "docpress"

// Manager bundles all instruments registered for the service.
type Manager struct {
	renders        *prometheus.CounterVec
	renderDuration prometheus.Histogram
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter

	decksActive prometheus.Gauge
	slidesTotal prometheus.Gauge

	managedServices prometheus.Gauge
	serviceLaunches *prometheus.CounterVec

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Custom registry so the exposition contains only docpress metrics.
var customRegistry = prometheus.NewRegistry()

var globalManager *Manager

func init() {
	globalManager = newManager(customRegistry)
}

func newManager(reg prometheus.Registerer) *Manager {
	f := promauto.With(reg)
	return &Manager{
		renders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "pdfs_total",
			Help:      "PDF renders by source and outcome.",
		}, []string{"source", "status"}),
		renderDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "duration_seconds",
			Help:      "Wall time spent rendering PDFs.",
			Buckets:   prometheus.DefBuckets,
		}),
		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "cache_hits_total",
			Help:      "Rendered PDFs served from the Redis cache.",
		}),
		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "cache_misses_total",
			Help:      "Render requests that missed the Redis cache.",
		}),
		decksActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "decks",
			Name:      "active",
			Help:      "Decks currently held in the store.",
		}),
		slidesTotal: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "decks",
			Name:      "slides_total",
			Help:      "Slides across all active decks.",
		}),
		managedServices: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "services",
			Name:      "running",
			Help:      "Managed tool services currently running.",
		}),
		serviceLaunches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "services",
			Name:      "launches_total",
			Help:      "Tool launch attempts by outcome.",
		}, []string{"outcome"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// GetRegistry returns the registry backing the /metrics endpoint.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RecordRender counts one render attempt. source is html, url or deck;
// status is ok, error or timeout.
func RecordRender(source, status string) {
	globalManager.renders.WithLabelValues(source, status).Inc()
}

// RecordRenderDuration observes one render's wall time.
func RecordRenderDuration(seconds float64) {
	globalManager.renderDuration.Observe(seconds)
}

// RecordCacheHit counts a PDF served from cache.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss counts a render that had to run.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// UpdateDeckStats sets the deck and slide gauges.
func UpdateDeckStats(decks, slides int) {
	globalManager.decksActive.Set(float64(decks))
	globalManager.slidesTotal.Set(float64(slides))
}

// UpdateManagedServices sets the running-services gauge.
func UpdateManagedServices(count int) {
	globalManager.managedServices.Set(float64(count))
}

// RecordServiceLaunch counts a launch attempt. outcome is ok or error.
func RecordServiceLaunch(outcome string) {
	globalManager.serviceLaunches.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest counts one handled request.
func RecordHTTPRequest(route, method, status string) {
	globalManager.httpRequests.WithLabelValues(route, method, status).Inc()
}

// RecordHTTPRequestDuration observes one request's latency.
func RecordHTTPRequestDuration(route, method string, seconds float64) {
	globalManager.httpRequestDuration.WithLabelValues(route, method).Observe(seconds)
}
