package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-management-api/internal/models"
)

func TestMetricsServiceCacheRatio(t *testing.T) {
	m := NewMetricsService()
	assert.Zero(t, testutil.ToFloat64(m.cacheHitRatio))

	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.cacheHits))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.cacheMisses))
	assert.InDelta(t, 0.5, testutil.ToFloat64(m.cacheHitRatio), 0.0001)
}

func TestMetricsServiceDomainCounters(t *testing.T) {
	m := NewMetricsService()
	m.ObserveStatusTransition(models.StatusPending, models.StatusActive)
	m.ObserveStatusTransition(models.StatusPending, models.StatusActive)
	m.ObserveReportJob(models.ReportTypeRoster, models.ReportStatusFinished)
	m.ObserveReportDuration(models.ReportTypeRoster, 200*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.transitions.WithLabelValues("PENDING", "ACTIVE")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.reportJobs.WithLabelValues("roster", "FINISHED")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.reportDuration, "report_job_duration_seconds"))
}

func TestMetricsServiceHandlerExposesCollectors(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/departments", http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",path="/api/v1/departments",status="200"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestMetricsServiceNilIsSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.ObserveStatusTransition(models.StatusActive, models.StatusDropped)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
