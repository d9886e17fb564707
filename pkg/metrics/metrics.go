// Package metrics provides the Prometheus scrape handler for the CVE cache
// proxy. All metrics are defined in their respective packages
// (cache, client, proxy) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves every metric registered through promauto in the default
// Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - cveproxy_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - cveproxy_cache_misses_total (Counter): Cache misses
//   - cveproxy_cache_written_bytes_total{layer="redis"} (Counter): Bytes written to the cache
//   - cveproxy_cache_errors_total{operation} (Counter): Cache operation errors (get, set, ping)
//
// Upstream Metrics (pkg/client):
//   - cveproxy_upstream_requests_total{status} (Counter): Upstream requests by HTTP status
//   - cveproxy_upstream_request_duration_seconds (Histogram): Upstream request duration
//   - cveproxy_upstream_errors_total{class} (Counter): Errors by class (client, server, network)
//
// Proxy Metrics (pkg/proxy):
//   - cveproxy_requests_total{endpoint, status} (Counter): Responses by route and status
//   - cveproxy_coalesced_requests_total (Counter): Misses served by another in-flight fetch
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(cveproxy_cache_hits_total[5m])) /
//   (sum(rate(cveproxy_cache_hits_total[5m])) + sum(rate(cveproxy_cache_misses_total[5m])))
//
//   # Upstream Error Rate
//   rate(cveproxy_upstream_errors_total[5m])
//
//   # P95 Upstream Latency
//   histogram_quantile(0.95, rate(cveproxy_upstream_request_duration_seconds_bucket[5m]))
//
//   # Offset Misses on /api/cve
//   rate(cveproxy_requests_total{endpoint="/api/cve",status="404"}[5m])
