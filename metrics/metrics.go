package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "searchgate_requests_total",
			Help: "Total number of gateway operations by outcome code",
		},
		[]string{"op", "code"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "searchgate_request_duration_seconds",
			Help:    "Duration of gateway operations including rate limit waits",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"op"},
	)

	RateLimitWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "searchgate_rate_limit_wait_seconds",
			Help:    "Time callers spent waiting for rate limiter admission",
			Buckets: []float64{0, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"class"},
	)

	OutboundResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "searchgate_outbound_responses_total",
			Help: "Outbound call outcomes by operation and kind",
		},
		[]string{"op", "kind"},
	)

	ResultsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "searchgate_search_results",
			Help:    "Number of results returned per search",
			Buckets: prometheus.LinearBuckets(0, 5, 7),
		},
	)
)
