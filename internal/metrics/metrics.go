// Package metrics holds the Prometheus instruments exposed on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "advisor_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "advisor_api_active_requests",
			Help: "Number of in-flight API requests",
		},
	)

	// Recommendation pipeline
	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "advisor_recommend_duration_seconds",
			Help:    "Time to fetch, score and rank candidates",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	RecommendResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "advisor_recommend_results",
			Help:    "Number of ranked recommendations returned per request",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
		},
	)

	RecommendEmpty = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "advisor_recommend_empty_total",
			Help: "Recommendation requests where no candidate passed the filter",
		},
	)

	BudgetComputations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_budget_computations_total",
			Help: "Affordability envelopes computed, by purpose",
		},
		[]string{"purpose"},
	)

	// Upstream collaborators
	UpstreamFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_upstream_failures_total",
			Help: "Failed calls to external collaborators",
		},
		[]string{"upstream"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "advisor_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"upstream"},
	)

	// Chat
	ChatTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_chat_turns_total",
			Help: "Chat turns handled, by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRecommendation records one ranking run.
func RecordRecommendation(duration time.Duration, results int) {
	RecommendDuration.Observe(duration.Seconds())
	RecommendResults.Observe(float64(results))
	if results == 0 {
		RecommendEmpty.Inc()
	}
}

func RecordUpstreamFailure(upstream string) {
	UpstreamFailures.WithLabelValues(upstream).Inc()
}
