package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the roster
// engine: HTTP traffic plus import and removal outcome counters.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	importBatches  prometheus.Counter
	importRows     *prometheus.CounterVec
	importFailures prometheus.Counter
	splitterTokens prometheus.Counter
	removals       *prometheus.CounterVec
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

	importBatches := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "roster_import_batches_total",
		Help: "Total number of reconciliation batches processed",
	})

	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_import_rows_total",
		Help: "Import rows by resolution outcome",
	}, []string{"outcome"})

	importFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "roster_import_row_failures_total",
		Help: "Import rows excluded from their batch",
	})

	splitterTokens := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "roster_splitter_tokens_total",
		Help: "Tokens spent on name splitting",
	})

	removals := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_removals_total",
		Help: "Staff removals by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, importBatches, importRows, importFailures, splitterTokens, removals, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		importBatches:   importBatches,
		importRows:      importRows,
		importFailures:  importFailures,
		splitterTokens:  splitterTokens,
		removals:        removals,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordImport records the outcome counts of one reconciliation batch.
func (m *MetricsService) RecordImport(created, updated, failed, tokens int) {
	if m == nil {
		return
	}
	m.importBatches.Inc()
	m.importRows.WithLabelValues("created_new").Add(float64(created))
	m.importRows.WithLabelValues("matched_existing").Add(float64(updated))
	m.importFailures.Add(float64(failed))
	m.splitterTokens.Add(float64(tokens))
}

// RecordRemoval records one completed removal by its outcome.
func (m *MetricsService) RecordRemoval(outcome string) {
	if m == nil {
		return
	}
	m.removals.WithLabelValues(outcome).Inc()
}
