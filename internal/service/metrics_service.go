package service

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/student-management-api/internal/models"
)

// MetricsService owns the Prometheus registry and every collector the API
// exports. All methods are safe on a nil receiver.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	cacheLatency  prometheus.Histogram
	cacheWrite    prometheus.Histogram
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	cacheHitRatio prometheus.GaugeFunc
	hitCount      atomic.Uint64
	missCount     atomic.Uint64

	transitions    *prometheus.CounterVec
	reportJobs     *prometheus.CounterVec
	reportDuration *prometheus.HistogramVec
}

// NewMetricsService builds a private registry with the Go runtime and
// process collectors plus the API's own metrics.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(registry)

	m := &MetricsService{registry: registry}
	m.requestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
	m.requestTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	m.cacheLatency = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency of cache lookups",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
	})
	m.cacheWrite = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency of cache writes",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
	})
	m.cacheHits = f.NewCounter(prometheus.CounterOpts{Name: "cache_hits_total", Help: "Cache lookups served from Redis"})
	m.cacheMisses = f.NewCounter(prometheus.CounterOpts{Name: "cache_misses_total", Help: "Cache lookups that fell through to Postgres"})
	m.cacheHitRatio = f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Share of cache lookups that hit",
	}, m.hitRatio)

	m.transitions = f.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_status_transitions_total",
		Help: "Enrollment status changes by source and target status",
	}, []string{"from", "to"})
	m.reportJobs = f.NewCounterVec(prometheus.CounterOpts{
		Name: "report_jobs_total",
		Help: "Report jobs by type and final status",
	}, []string{"type", "status"})
	m.reportDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "report_job_duration_seconds",
		Help:    "Time spent generating a report file",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"type"})

	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	return m
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, code).Inc()
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		m.hitCount.Add(1)
		return
	}
	m.cacheMisses.Inc()
	m.missCount.Add(1)
}

// ObserveCacheWrite records a cache write.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveStatusTransition counts an applied enrollment status change.
func (m *MetricsService) ObserveStatusTransition(from, to models.Status) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

// ObserveReportJob counts a report job reaching a final status.
func (m *MetricsService) ObserveReportJob(reportType models.ReportType, status models.ReportStatus) {
	if m == nil {
		return
	}
	m.reportJobs.WithLabelValues(string(reportType), string(status)).Inc()
}

// ObserveReportDuration records how long one generation attempt took.
func (m *MetricsService) ObserveReportDuration(reportType models.ReportType, d time.Duration) {
	if m == nil {
		return
	}
	m.reportDuration.WithLabelValues(string(reportType)).Observe(d.Seconds())
}

func (m *MetricsService) hitRatio() float64 {
	hits := m.hitCount.Load()
	total := hits + m.missCount.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
