package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the gateway,
// its upstream calls and the optimistic engine.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	remoteDuration   *prometheus.HistogramVec
	mutationTotal    *prometheus.CounterVec
	mutationDuration *prometheus.HistogramVec
	mutationInFlight prometheus.Gauge
	sessionsActive   prometheus.Gauge
	notifications    *prometheus.CounterVec
	cacheLatency     prometheus.Observer
	cacheWrite       prometheus.Observer
	cacheHitRatio    prometheus.Gauge
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	remoteDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "remote_request_duration_seconds",
		Help:    "Duration of calls to the marketplace API",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	mutationTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "optimistic_mutations_total",
		Help: "Optimistic mutations by entity, field and outcome",
	}, []string{"entity", "field", "outcome"})

	mutationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "optimistic_mutation_duration_seconds",
		Help:    "Time from optimistic write to reconciliation",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15, 30},
	}, []string{"entity", "field"})

	mutationInFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "optimistic_mutations_in_flight",
		Help: "Optimistic mutations awaiting the server",
	})

	sessionsActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sessions_active",
		Help: "Open user sessions",
	})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "User notifications by kind and delivery result",
	}, []string{"kind", "result"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, remoteDuration, mutationTotal, mutationDuration, mutationInFlight,
		sessionsActive, notifications, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		remoteDuration:   remoteDuration,
		mutationTotal:    mutationTotal,
		mutationDuration: mutationDuration,
		mutationInFlight: mutationInFlight,
		sessionsActive:   sessionsActive,
		notifications:    notifications,
		cacheLatency:     cacheLatency,
		cacheWrite:       cacheWrite,
		cacheHitRatio:    cacheHitRatio,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records inbound request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveRemoteCall records one call to the marketplace API. Status 0 means
// no response was received.
func (m *MetricsService) ObserveRemoteCall(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.remoteDuration.WithLabelValues(method, route, fmt.Sprintf("%d", status)).Observe(duration.Seconds())
}

// ObserveMutation counts a settled optimistic mutation.
func (m *MetricsService) ObserveMutation(entity, field, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.mutationTotal.WithLabelValues(entity, field, outcome).Inc()
	m.mutationDuration.WithLabelValues(entity, field).Observe(duration.Seconds())
}

// AddInFlight moves the in-flight mutation gauge.
func (m *MetricsService) AddInFlight(delta float64) {
	if m == nil {
		return
	}
	m.mutationInFlight.Add(delta)
}

// SetActiveSessions reports the number of open sessions.
func (m *MetricsService) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.sessionsActive.Set(float64(n))
}

// RecordNotification counts a notification delivery attempt.
func (m *MetricsService) RecordNotification(kind, result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, result).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}
