// Package proxy implements the CVE API endpoints: validation, cache-aside
// reads through Redis, and mapping of upstream failures to HTTP responses.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/Sternrassler/cve-cache-proxy/pkg/cache"
	"github.com/Sternrassler/cve-cache-proxy/pkg/client"
	"github.com/Sternrassler/cve-cache-proxy/pkg/pagination"
)

// Routes served by the handler.
const (
	RouteCVE  = "/api/cve"
	RouteCVEs = "/api/cves"
)

// Response texts returned to clients.
const (
	msgOffsetNotFound = "No results found for the given value for startIndex"
	msgInvalidQuery   = "Invalid query string"
	msgUpstreamError  = "Upstream error"
	msgInternalError  = "Internal server error"
)

// CacheHeader reports whether a response was served from cache.
const CacheHeader = "X-Cache"

// Cache stores response bodies by key.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Upstream fetches pages from the CVE API.
type Upstream interface {
	Fetch(ctx context.Context, query url.Values) (json.RawMessage, error)
	FetchRaw(ctx context.Context, rawQuery string) (json.RawMessage, error)
}

// TotalCounter reports the number of records available upstream.
type TotalCounter interface {
	Total(ctx context.Context) int
}

// Options configures a Handler.
type Options struct {
	Cache    Cache
	Upstream Upstream
	Totals   TotalCounter

	// TTL applied to every cached response
	TTL time.Duration

	// SingleFlight coalesces concurrent misses for the same key
	SingleFlight bool

	Logger zerolog.Logger
}

// Handler serves the CVE endpoints.
type Handler struct {
	cache    Cache
	upstream Upstream
	totals   TotalCounter
	ttl      time.Duration
	group    *singleflight.Group
	logger   zerolog.Logger
}

// errorResponse is the JSON body of every error reply.
type errorResponse struct {
	Error string          `json:"error"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// New creates a handler from its collaborators.
func New(opts Options) (*Handler, error) {
	if opts.Cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if opts.Upstream == nil {
		return nil, fmt.Errorf("upstream is required")
	}
	if opts.Totals == nil {
		return nil, fmt.Errorf("total counter is required")
	}
	if opts.TTL <= 0 {
		return nil, fmt.Errorf("ttl must be positive (got %s)", opts.TTL)
	}

	h := &Handler{
		cache:    opts.Cache,
		upstream: opts.Upstream,
		totals:   opts.Totals,
		ttl:      opts.TTL,
		logger:   opts.Logger.With().Str("component", "proxy").Logger(),
	}
	if opts.SingleFlight {
		h.group = &singleflight.Group{}
	}
	return h, nil
}

// Register mounts the CVE endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.Get(RouteCVE, h.HandleCVE)
	r.Get(RouteCVEs, h.HandleCVEs)
}

// HandleCVE serves offset-from-end pagination: startIndex counts the most
// recent records to skip.
func (h *Handler) HandleCVE(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r, RouteCVE)
	query, ok := h.parseQuery(w, r, logger, RouteCVE)
	if !ok {
		return
	}

	total := h.totals.Total(ctx)

	offset, err := pagination.ParseOffset(query)
	if err != nil {
		logger.Warn().Err(err).Msg("Rejecting request")
		h.writeError(w, logger, RouteCVE, http.StatusBadRequest, err.Error(), nil)
		return
	}

	if offset >= total {
		logger.Warn().
			Int("offset", offset).
			Int("total", total).
			Msg("Offset beyond available results")
		h.writeError(w, logger, RouteCVE, http.StatusNotFound, msgOffsetNotFound, nil)
		return
	}

	perPage, err := pagination.ParseResultsPerPage(query)
	if err != nil {
		logger.Warn().Err(err).Msg("Rejecting request")
		h.writeError(w, logger, RouteCVE, http.StatusBadRequest, err.Error(), nil)
		return
	}

	window := pagination.Translate(total, offset, perPage)
	upstreamQuery := window.Values()
	key := cache.CacheKey{Params: upstreamQuery}.String()

	logger.Debug().
		Int("offset", offset).
		Int("total", total).
		Int("start_index", window.StartIndex).
		Int("results_per_page", window.ResultsPerPage).
		Str("key", key).
		Msg("Translated offset")

	body, hit, err := h.readThrough(ctx, logger, key, func(ctx context.Context) (json.RawMessage, error) {
		return h.upstream.Fetch(ctx, upstreamQuery)
	})
	if err != nil {
		h.writeUpstreamError(w, logger, RouteCVE, err)
		return
	}

	h.writeBody(w, logger, RouteCVE, body, hit)
}

// HandleCVEs passes all query parameters through to the upstream.
func (h *Handler) HandleCVEs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r, RouteCVEs)

	query, ok := h.parseQuery(w, r, logger, RouteCVEs)
	if !ok {
		return
	}

	key := cache.CacheKey{Params: query}.String()
	rawQuery := r.URL.RawQuery

	body, hit, err := h.readThrough(ctx, logger, key, func(ctx context.Context) (json.RawMessage, error) {
		return h.upstream.FetchRaw(ctx, rawQuery)
	})
	if err != nil {
		h.writeUpstreamError(w, logger, RouteCVEs, err)
		return
	}

	h.writeBody(w, logger, RouteCVEs, body, hit)
}

// readThrough returns the cached body for key, or fetches, stores and
// returns it. Cache failures are logged and bypassed.
func (h *Handler) readThrough(
	ctx context.Context,
	logger zerolog.Logger,
	key string,
	fetch func(context.Context) (json.RawMessage, error),
) ([]byte, bool, error) {
	cached, err := h.cache.Get(ctx, key)
	switch {
	case err == nil:
		logger.Debug().Str("key", key).Msg("Cache hit")
		return []byte(cached), true, nil
	case errors.Is(err, cache.ErrCacheMiss):
		logger.Debug().Str("key", key).Msg("Cache miss")
	default:
		logger.Warn().Err(err).Str("key", key).Msg("Cache get failed, bypassing cache")
	}

	load := func(ctx context.Context) ([]byte, error) {
		body, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if err := h.cache.Set(ctx, key, string(body), h.ttl); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Failed to cache response")
		} else {
			logger.Debug().Str("key", key).Dur("ttl", h.ttl).Msg("Cached response")
		}
		return body, nil
	}

	if h.group == nil {
		body, err := load(ctx)
		return body, false, err
	}

	// The shared call must not be cancelled by whichever caller started it.
	shared := context.WithoutCancel(ctx)
	v, err, wasShared := h.group.Do(key, func() (any, error) {
		return load(shared)
	})
	if wasShared {
		coalescedTotal.Inc()
	}
	if err != nil {
		return nil, false, err
	}
	return v.([]byte), false, nil
}

// parseQuery decodes the raw query string and answers 400 when any pair is
// malformed. Every pair sent upstream must be part of the cache key.
func (h *Handler) parseQuery(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, endpoint string) (url.Values, bool) {
	query, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		logger.Warn().Err(err).Str("query", r.URL.RawQuery).Msg("Rejecting malformed query")
		h.writeError(w, logger, endpoint, http.StatusBadRequest, msgInvalidQuery, nil)
		return nil, false
	}
	return query, true
}

func (h *Handler) requestLogger(r *http.Request, endpoint string) zerolog.Logger {
	return h.logger.With().
		Str("endpoint", endpoint).
		Str("request_id", middleware.GetReqID(r.Context())).
		Logger()
}

func (h *Handler) writeBody(w http.ResponseWriter, logger zerolog.Logger, endpoint string, body []byte, hit bool) {
	w.Header().Set("Content-Type", "application/json")
	if hit {
		w.Header().Set(CacheHeader, "HIT")
	} else {
		w.Header().Set(CacheHeader, "MISS")
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logger.Warn().Err(err).Msg("Failed to write response")
	}
	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(http.StatusOK)).Inc()
}

// writeUpstreamError passes 4xx upstream failures through and hides
// everything else behind a 500.
func (h *Handler) writeUpstreamError(w http.ResponseWriter, logger zerolog.Logger, endpoint string, err error) {
	var upErr *client.UpstreamError
	if client.IsClientError(err) && errors.As(err, &upErr) {
		logger.Warn().Err(err).Int("status", upErr.StatusCode).Msg("Upstream rejected request")

		msg := upErr.ClientMessage()
		if msg == "" {
			msg = msgUpstreamError
		}
		h.writeError(w, logger, endpoint, upErr.StatusCode, msg, upErr.Data())
		return
	}

	logger.Error().Err(err).Msg("Upstream request failed")
	h.writeError(w, logger, endpoint, http.StatusInternalServerError, msgInternalError, nil)
}

func (h *Handler) writeError(w http.ResponseWriter, logger zerolog.Logger, endpoint string, status int, msg string, data json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: msg, Data: data}); err != nil {
		logger.Warn().Err(err).Msg("Failed to write error response")
	}
	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
}
