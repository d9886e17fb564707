// Package totalcount caches the total number of records the upstream CVE API
// holds. Offset-from-end pagination needs it to translate client offsets.
package totalcount

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/cve-cache-proxy/pkg/cache"
	"github.com/rs/zerolog"
)

// Store is the subset of the cache the resolver needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Fetcher issues upstream requests.
type Fetcher interface {
	Fetch(ctx context.Context, query url.Values) (json.RawMessage, error)
}

// probeQuery asks the upstream for the smallest page that still reports totalResults.
var probeQuery = url.Values{
	"startIndex":     []string{"0"},
	"resultsPerPage": []string{"1"},
}

// Resolver returns the cached total record count, populating it on miss.
type Resolver struct {
	store    Store
	upstream Fetcher
	ttl      time.Duration
	logger   zerolog.Logger
}

// NewResolver creates a resolver storing the count under cache.TotalResultsKey.
func NewResolver(store Store, upstream Fetcher, ttl time.Duration, logger zerolog.Logger) *Resolver {
	return &Resolver{
		store:    store,
		upstream: upstream,
		ttl:      ttl,
		logger:   logger.With().Str("component", "total-count").Logger(),
	}
}

// Total returns the number of records available upstream.
//
// Failures degrade to 0 instead of an error: callers treat 0 as an empty
// data set, so every offset is out of range.
func (r *Resolver) Total(ctx context.Context) int {
	cached, err := r.store.Get(ctx, cache.TotalResultsKey)
	switch {
	case err == nil:
		total, convErr := strconv.Atoi(cached)
		if convErr == nil && total >= 0 {
			r.logger.Debug().Int("total", total).Msg("Total count cache hit")
			return total
		}
		r.logger.Warn().Str("value", cached).Msg("Ignoring malformed cached total count")
	case errors.Is(err, cache.ErrCacheMiss):
		r.logger.Debug().Msg("Total count cache miss")
	default:
		r.logger.Warn().Err(err).Msg("Total count cache get failed, querying upstream")
	}

	total, err := r.fetchTotal(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to resolve total count")
		return 0
	}

	if err := r.store.Set(ctx, cache.TotalResultsKey, strconv.Itoa(total), r.ttl); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to cache total count")
	}

	return total
}

func (r *Resolver) fetchTotal(ctx context.Context) (int, error) {
	body, err := r.upstream.Fetch(ctx, probeQuery)
	if err != nil {
		return 0, fmt.Errorf("fetch total count: %w", err)
	}

	var page struct {
		TotalResults *json.Number `json:"totalResults"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return 0, fmt.Errorf("decode total count: %w", err)
	}
	if page.TotalResults == nil {
		return 0, fmt.Errorf("totalResults missing from upstream response")
	}

	total, err := strconv.Atoi(page.TotalResults.String())
	if err != nil || total < 0 {
		return 0, fmt.Errorf("invalid totalResults %q", page.TotalResults.String())
	}
	return total, nil
}
