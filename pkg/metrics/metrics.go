// Package metrics collects feed ingestion counters and exposes them to Prometheus
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector keeps Prometheus metrics of feed fetching and ingestion
type Collector struct {
	fetchSuccess     prometheus.Counter
	fetchFail        prometheus.Counter
	fetchLatency     prometheus.Histogram
	httpStatus       *prometheus.CounterVec
	articlesIngested prometheus.Counter
	articlesBlocked  prometheus.Counter
	articlesSkipped  prometheus.Counter
}

// NewCollector makes a collector and registers its metrics with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		fetchSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedflow_fetch_success_total",
			Help: "Number of successful feed fetches",
		}),
		fetchFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedflow_fetch_fail_total",
			Help: "Number of failed feed fetches",
		}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedflow_fetch_latency_seconds",
			Help:    "Feed fetch and ingestion latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedflow_http_status_total",
			Help: "Feed responses by HTTP status code",
		}, []string{"status_code"}),
		articlesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedflow_articles_ingested_total",
			Help: "Number of articles created from feed entries",
		}),
		articlesBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedflow_articles_blocked_total",
			Help: "Number of feed entries blocked by keyword filters",
		}),
		articlesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedflow_articles_duplicate_total",
			Help: "Number of feed entries skipped as duplicates",
		}),
	}

	reg.MustRegister(
		c.fetchSuccess,
		c.fetchFail,
		c.fetchLatency,
		c.httpStatus,
		c.articlesIngested,
		c.articlesBlocked,
		c.articlesSkipped,
	)
	return c
}

// RecordFetch records the outcome and latency of one feed refresh
func (c *Collector) RecordFetch(success bool, duration time.Duration) {
	if success {
		c.fetchSuccess.Inc()
	} else {
		c.fetchFail.Inc()
	}
	c.fetchLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus records the status code of a feed response
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordIngested adds to the number of created articles
func (c *Collector) RecordIngested(count int) {
	c.articlesIngested.Add(float64(count))
}

// RecordBlocked counts one entry dropped by a filter
func (c *Collector) RecordBlocked() {
	c.articlesBlocked.Inc()
}

// RecordDuplicate counts one entry skipped as already stored
func (c *Collector) RecordDuplicate() {
	c.articlesSkipped.Inc()
}

// Handler returns the http handler serving metrics gathered from g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Nop discards all metrics
type Nop struct{}

// RecordFetch does nothing
func (Nop) RecordFetch(bool, time.Duration) {}

// RecordHTTPStatus does nothing
func (Nop) RecordHTTPStatus(int) {}

// RecordIngested does nothing
func (Nop) RecordIngested(int) {}

// RecordBlocked does nothing
func (Nop) RecordBlocked() {}

// RecordDuplicate does nothing
func (Nop) RecordDuplicate() {}
