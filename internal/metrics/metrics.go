// Package metrics exposes Prometheus collectors for the postal code service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the scrape and lookup collectors.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	browserLaunchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postal_browser_launches_total",
			Help: "Total number of headless browser launches, labeled by result.",
		},
		[]string{"result"},
	)

	scrapesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postal_scrapes_total",
			Help: "Total number of scrape pipeline runs, labeled by outcome and the step that ended the run.",
		},
		[]string{"outcome", "step"},
	)

	scrapeDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "postal_scrape_duration_seconds",
			Help:    "Histogram of scrape pipeline durations, labeled by outcome.",
			Buckets: []float64{1, 2, 5, 10, 15, 20, 30, 45, 60},
		},
		[]string{"outcome"},
	)

	lookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postal_lookups_total",
			Help: "Total number of address lookups, labeled by source (catalogue, cache or scrape) and outcome.",
		},
		[]string{"source", "outcome"},
	)

	rateLimitDelaySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "postal_scrape_rate_limit_delay_seconds",
			Help:    "Histogram of time scrapes spent waiting on the upstream rate limit.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 30},
		},
		[]string{"method", "route"},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveBrowserLaunch counts one browser launch attempt.
func ObserveBrowserLaunch(ok bool) {
	result := OutcomeSuccess
	if !ok {
		result = OutcomeFailure
	}
	browserLaunchesTotal.WithLabelValues(result).Inc()
}

// ObserveScrape records a finished pipeline run. step is the name of the step
// that failed, or "extract" for successful runs.
func ObserveScrape(outcome, step string, duration time.Duration) {
	scrapesTotal.WithLabelValues(outcome, step).Inc()
	scrapeDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveLookup counts a lookup answered from the given source.
func ObserveLookup(source, outcome string) {
	lookupsTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveRateLimitDelay records how long a scrape waited for a rate limit token.
func ObserveRateLimitDelay(duration time.Duration) {
	rateLimitDelaySeconds.Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
