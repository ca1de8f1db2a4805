// Package metrics defines the Prometheus instrumentation for the pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_crawl_tasks_total",
			Help: "Total crawl tasks executed, labeled by source and outcome.",
		},
		[]string{"source", "status"},
	)

	crawlRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_crawl_retries_total",
			Help: "Total retry attempts, labeled by source.",
		},
		[]string{"source"},
	)

	crawlTaskDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_crawl_task_duration_seconds",
			Help:    "Histogram of per-task crawl latencies, labeled by source.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"source"},
	)

	rateLimitDelaySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_rate_limit_delay_seconds",
			Help:    "Histogram of rate limit wait durations, labeled by source.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"source"},
	)

	activeWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipeline_active_workers",
			Help: "Number of workers currently executing a crawl task.",
		},
	)

	cleaningRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_cleaning_records_total",
			Help: "Records entering and surviving cleaning, labeled by domain and stage.",
		},
		[]string{"domain", "stage"},
	)

	imputedValuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_imputed_values_total",
			Help: "Imputed cell count, labeled by domain and method.",
		},
		[]string{"domain", "method"},
	)

	loadRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_load_rows_total",
			Help: "Rows written to the store, labeled by domain and table.",
		},
		[]string{"domain", "table"},
	)

	loadDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_load_duration_seconds",
			Help:    "Histogram of whole-load latencies, labeled by domain.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
		},
		[]string{"domain"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_http_requests_total",
			Help: "Total HTTP requests served, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 30, 120},
		},
		[]string{"method", "route"},
	)
)

// Task outcome labels.
const (
	StatusSuccess  = "success"
	StatusFailure  = "failure"
	StatusCacheHit = "cache_hit"
)

// IncCrawlTask counts one finished crawl task.
func IncCrawlTask(source, status string) {
	crawlTasksTotal.WithLabelValues(source, status).Inc()
}

// IncCrawlRetry counts one retry attempt.
func IncCrawlRetry(source string) {
	crawlRetriesTotal.WithLabelValues(source).Inc()
}

// ObserveCrawlTask records one task's wall-clock duration.
func ObserveCrawlTask(source string, d time.Duration) {
	crawlTaskDurationSeconds.WithLabelValues(source).Observe(d.Seconds())
}

// ObserveRateLimitDelay records time spent waiting on a source's limiter.
func ObserveRateLimitDelay(source string, d time.Duration) {
	rateLimitDelaySeconds.WithLabelValues(source).Observe(d.Seconds())
}

// WorkerStarted / WorkerDone track pool occupancy.
func WorkerStarted() { activeWorkers.Inc() }
func WorkerDone()    { activeWorkers.Dec() }

// AddCleaningRecords counts records at a cleaning stage boundary.
func AddCleaningRecords(domain, stage string, n int) {
	cleaningRecordsTotal.WithLabelValues(domain, stage).Add(float64(n))
}

// AddImputedValues counts cells filled by an imputation method.
func AddImputedValues(domain, method string, n int) {
	imputedValuesTotal.WithLabelValues(domain, method).Add(float64(n))
}

// AddLoadedRows counts rows written to one table.
func AddLoadedRows(domain, table string, n int) {
	loadRowsTotal.WithLabelValues(domain, table).Add(float64(n))
}

// ObserveLoad records one whole-load duration.
func ObserveLoad(domain string, d time.Duration) {
	loadDurationSeconds.WithLabelValues(domain).Observe(d.Seconds())
}

// IncHTTPRequest counts one served request.
func IncHTTPRequest(method, code string) {
	httpRequestsTotal.WithLabelValues(method, code).Inc()
}

// ObserveHTTPRequest records one served request's latency.
func ObserveHTTPRequest(method, route string, d time.Duration) {
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
