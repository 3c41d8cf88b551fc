// Package metrics - prometheus метрики тайлового сервиса.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tiles"

// Outcome результата тайлового запроса
const (
	OutcomeRendered = "rendered"
	OutcomeCached   = "cached"
	OutcomeEmpty    = "empty"
	OutcomeFailed   = "failed"
)

// Metrics держит собственный registry, чтобы тесты не конфликтовали с глобальным
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	tiles        *prometheus.CounterVec
	tileDuration prometheus.Histogram
	tileBytes    prometheus.Histogram
	cacheResults *prometheus.CounterVec
	remoteErrors *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms .. ~20s
		}, []string{"method", "route", "status"}),
		tiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tile_requests_total",
			Help:      "Tile requests by outcome.",
		}, []string{"outcome"}),
		tileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tile_render_duration_seconds",
			Help:      "Time spent rendering a tile on the remote database.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		tileBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tile_size_bytes",
			Help:      "Size of rendered MVT tiles.",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
		}),
		cacheResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_results_total",
			Help:      "Tile cache lookups by outcome.",
		}, []string{"outcome"}),
		remoteErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_errors_total",
			Help:      "Remote database errors by kind.",
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.tiles,
		m.tileDuration,
		m.tileBytes,
		m.cacheResults,
		m.remoteErrors,
	)
	return m
}

// RegisterPoolGauge публикует число открытых удаленных пулов
func (m *Metrics) RegisterPoolGauge(open func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "remote_pools_open",
		Help:      "Number of cached remote connection pools.",
	}, func() float64 { return float64(open()) }))
}

// Методы ниже безопасно вызывать на nil, если метрики выключены

func (m *Metrics) ObserveHTTP(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	st := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(method, route, st).Inc()
	m.httpDuration.WithLabelValues(method, route, st).Observe(seconds)
}

func (m *Metrics) ObserveTile(outcome string, seconds float64, size int) {
	if m == nil {
		return
	}
	m.tiles.WithLabelValues(outcome).Inc()
	if outcome == OutcomeRendered {
		m.tileDuration.Observe(seconds)
		m.tileBytes.Observe(float64(size))
	}
}

func (m *Metrics) CacheHit() {
	if m != nil {
		m.cacheResults.WithLabelValues("hit").Inc()
	}
}

func (m *Metrics) CacheMiss() {
	if m != nil {
		m.cacheResults.WithLabelValues("miss").Inc()
	}
}

func (m *Metrics) RemoteError(kind string) {
	if m == nil {
		return
	}
	m.remoteErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry для тестов
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
