package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openphone_requests_total",
		Help: "Total OpenPhone requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "openphone_request_duration_seconds",
		Help:    "OpenPhone request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openphone_errors_total",
		Help: "Total OpenPhone errors by kind",
	}, []string{"kind"})

	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "openphone_retries_total",
		Help: "Total number of retry attempts after network failures",
	})

	retryBackoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "openphone_retry_backoff_seconds",
		Help:    "Backoff duration before each retry",
		Buckets: []float64{0.5, 1, 2, 4, 8, 16, 32},
	})

	retryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "openphone_retry_exhausted_total",
		Help: "Total number of requests that exhausted their retry attempts",
	})
)
