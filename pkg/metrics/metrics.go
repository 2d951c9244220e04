// Package metrics exposes the Prometheus registry used by the OpenPhone client.
// Metrics are declared with promauto in the packages that own them (client,
// cache, ratelimit, pagination); this package serves them and documents the
// catalogue.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all client metrics are registered with.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the matching gatherer for Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler returns an HTTP handler serving every registered metric.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - openphone_requests_total{endpoint, status} (Counter): requests by collection and HTTP status
//     (status is "cached", "network_error" or "rate_limited" when no response was received)
//   - openphone_request_duration_seconds{endpoint} (Histogram): end-to-end call duration
//   - openphone_errors_total{kind} (Counter): classified errors by kind
//
// Retry Metrics (pkg/client):
//   - openphone_retries_total (Counter): network retries performed
//   - openphone_retry_backoff_seconds (Histogram): backoff waits
//   - openphone_retry_exhausted_total (Counter): calls that spent the retry budget
//
// Pagination Metrics (pkg/pagination):
//   - openphone_pages_fetched_total{endpoint} (Counter)
//   - openphone_records_fetched_total{endpoint} (Counter)
//
// Cache Metrics (pkg/cache):
//   - openphone_cache_hits_total{layer="redis"} (Counter)
//   - openphone_cache_misses_total (Counter)
//   - openphone_cache_stale_total (Counter): stale entries handed out for revalidation
//   - openphone_cache_writes_total (Counter)
//   - openphone_cache_entry_bytes (Histogram)
//   - openphone_304_responses_total (Counter)
//   - openphone_cache_errors_total{operation} (Counter)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - openphone_rate_limit_hits_total (Counter): 429 responses recorded
//   - openphone_rate_limit_blocks_total (Counter): requests refused during a cooldown
//   - openphone_rate_limit_wait_seconds (Histogram): time spent in Wait
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(openphone_cache_hits_total[5m])) /
//   (sum(rate(openphone_cache_hits_total[5m])) + sum(rate(openphone_cache_misses_total[5m])))
//
//   # 429s per minute
//   rate(openphone_rate_limit_hits_total[1m]) * 60
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(openphone_request_duration_seconds_bucket[5m]))
