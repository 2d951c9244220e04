package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks fresh cache hits by layer (redis)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openphone_cache_hits_total",
			Help: "Total number of OpenPhone response cache hits",
		},
		[]string{"layer"},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "openphone_cache_misses_total",
			Help: "Total number of OpenPhone response cache misses",
		},
	)

	// CacheStale tracks stale entries handed out for revalidation
	CacheStale = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "openphone_cache_stale_total",
			Help: "Total number of stale cache entries returned for revalidation",
		},
	)

	CacheWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "openphone_cache_writes_total",
			Help: "Total number of cache entries written",
		},
	)

	CacheEntryBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "openphone_cache_entry_bytes",
			Help:    "Size of serialized cache entries in bytes",
			Buckets: prometheus.ExponentialBuckets(128, 4, 8),
		},
	)

	// ConditionalRequests tracks 304 Not Modified responses
	ConditionalRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "openphone_304_responses_total",
			Help: "Total number of 304 Not Modified responses",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openphone_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "purge"
	)
)
