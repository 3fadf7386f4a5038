// Package metrics exposes Prometheus collectors for the service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	chartFetchesTotal          *prometheus.CounterVec
	chartEntriesExtracted      *prometheus.CounterVec
	linkResolutionsTotal       *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call repeatedly.
func Init() {
	once.Do(func() {
		chartFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minerva_chart_fetches_total",
				Help: "Chart retrievals, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		chartEntriesExtracted = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minerva_chart_entries_extracted_total",
				Help: "Chart entries extracted, labeled by parse strategy.",
			},
			[]string{"strategy"},
		)

		linkResolutionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minerva_link_resolutions_total",
				Help: "Link resolutions, labeled by result source.",
			},
			[]string{"source"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minerva_http_requests_total",
				Help: "API requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "minerva_http_request_duration_seconds",
				Help:    "API request latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		)
	})
}

// ObserveChartFetch records one chart retrieval outcome
// ("ok", "fetch_failed", "extraction_failed").
func ObserveChartFetch(outcome string) {
	if chartFetchesTotal != nil {
		chartFetchesTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveEntriesExtracted records extracted entries per strategy.
func ObserveEntriesExtracted(strategy string, count int) {
	if chartEntriesExtracted != nil && count > 0 {
		chartEntriesExtracted.WithLabelValues(strategy).Add(float64(count))
	}
}

// ObserveResolution records one link resolution by source.
func ObserveResolution(source string) {
	if linkResolutionsTotal != nil {
		linkResolutionsTotal.WithLabelValues(source).Inc()
	}
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// statusRecorder captures the response code for instrumentation.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware instruments API handlers with request counters and
// latency histograms.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)
		if httpRequestsTotal != nil {
			httpRequestsTotal.WithLabelValues(req.Method, strconv.Itoa(rec.status)).Inc()
		}
		if httpRequestDurationSeconds != nil {
			httpRequestDurationSeconds.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
		}
	})
}
