// Package cache provides the Redis-backed response cache for the CVE proxy.
//
// The cache stores upstream response bodies as plain strings under keys
// derived from the query parameters of the upstream request:
//
// - Deterministic keys: parameter names are sorted and encoded as JSON
// - Fixed TTL per entry, enforced by Redis expiry
// - Per-operation timeout on every Redis round trip
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	// Create Redis client
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	// Create cache manager
//	manager := cache.NewManager(redisClient)
//
//	// Create cache key
//	key := cache.CacheKey{
//		Params: url.Values{"startIndex": []string{"0"}, "resultsPerPage": []string{"5"}},
//	}
//
//	// Get from cache
//	body, err := manager.Get(ctx, key.String())
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// Cache miss - fetch from upstream, then:
//		_ = manager.Set(ctx, key.String(), body, time.Hour)
//	}
//
// # Metrics
//
// The cache manager exports Prometheus metrics:
//
//   - cveproxy_cache_hits_total{layer="redis"} - Cache hits
//   - cveproxy_cache_misses_total - Cache misses
//   - cveproxy_cache_written_bytes_total{layer="redis"} - Bytes written
//   - cveproxy_cache_errors_total{operation} - Cache operation errors
package cache
