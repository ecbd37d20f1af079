// Package metrics exposes Prometheus collectors for the scraper service.
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
	scraperCyclesTotal           *prometheus.CounterVec
	scraperCycleDurationSeconds  prometheus.Histogram
	scraperTopicsScrapedTotal    prometheus.Counter
	scraperEntriesFoundTotal     prometheus.Counter
	scraperEntriesNewTotal       prometheus.Counter
	scraperHistorySize           prometheus.Gauge
	scraperHistoryResetsTotal    prometheus.Counter
	scraperIntervalOverrunsTotal prometheus.Counter
	scraperNavigationWaitSeconds *prometheus.HistogramVec
	httpRequestsTotal            *prometheus.CounterVec
	httpRequestDurationSeconds   *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scraperCyclesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_cycles_total",
				Help: "Total number of scrape cycles, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		scraperCycleDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scraper_cycle_duration_seconds",
				Help:    "Histogram of scrape cycle durations.",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
		)

		scraperTopicsScrapedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_topics_scraped_total",
				Help: "Total number of topics scraped across cycles.",
			},
		)

		scraperEntriesFoundTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_entries_found_total",
				Help: "Total number of entries extracted before deduplication.",
			},
		)

		scraperEntriesNewTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_entries_new_total",
				Help: "Total number of entries that survived deduplication.",
			},
		)

		scraperHistorySize = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "scraper_history_size",
				Help: "Number of signatures currently held in the seen history.",
			},
		)

		scraperHistoryResetsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_history_resets_total",
				Help: "Number of times the seen history was cleared at its bound.",
			},
		)

		scraperIntervalOverrunsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_interval_overruns_total",
				Help: "Number of cycles that took longer than the configured interval.",
			},
		)

		scraperNavigationWaitSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scraper_navigation_wait_seconds",
				Help:    "Histogram of time spent waiting on the navigation rate limiter.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"host"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method, route and code.",
			},
			[]string{"method", "route", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveNavigationWait records the duration of a rate limit wait.
func ObserveNavigationWait(host string, d time.Duration) {
	scraperNavigationWaitSeconds.WithLabelValues(host).Observe(d.Seconds())
}

// Recorder feeds cycle results into the package collectors.
type Recorder struct{}

// NewRecorder initializes the collectors and returns a Recorder.
func NewRecorder() Recorder {
	Init()
	return Recorder{}
}

// ObserveCycle records one finished cycle.
func (Recorder) ObserveCycle(outcome string, elapsed time.Duration, topics, found, fresh int) {
	scraperCyclesTotal.WithLabelValues(outcome).Inc()
	scraperCycleDurationSeconds.Observe(elapsed.Seconds())
	scraperTopicsScrapedTotal.Add(float64(topics))
	scraperEntriesFoundTotal.Add(float64(found))
	scraperEntriesNewTotal.Add(float64(fresh))
}

// ObserveHistory records the seen-history size after a cycle.
func (Recorder) ObserveHistory(size int, reset bool) {
	scraperHistorySize.Set(float64(size))
	if reset {
		scraperHistoryResetsTotal.Inc()
	}
}

// ObserveOverrun counts a cycle that exceeded the interval.
func (Recorder) ObserveOverrun() {
	scraperIntervalOverrunsTotal.Inc()
}
