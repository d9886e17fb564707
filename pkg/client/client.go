// Package client provides the upstream HTTP client for the NVD CVE API
// with error classification and metrics.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for upstream client operations.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cveproxy_upstream_requests_total",
		Help: "Total upstream requests by status",
	}, []string{"status"})

	upstreamRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cveproxy_upstream_request_duration_seconds",
		Help:    "Upstream request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cveproxy_upstream_errors_total",
		Help: "Total upstream errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of upstream failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx and other non-success responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// APIKeyHeader carries the upstream API key.
const APIKeyHeader = "apiKey"

// DefaultBaseURL is the NVD CVE API 2.0 endpoint.
const DefaultBaseURL = "https://services.nvd.nist.gov/rest/json/cves/2.0"

// maxBodyBytes caps how much of an upstream body is read into memory.
const maxBodyBytes = 64 << 20

// Client issues GET requests against a fixed upstream base URL.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the upstream endpoint every request is sent to
	BaseURL string

	// APIKey is forwarded in the apiKey header when non-empty
	APIKey string

	// UserAgent header sent upstream
	UserAgent string

	// Timeout per upstream request
	Timeout time.Duration

	// Logger receives request and error logs
	Logger zerolog.Logger
}

// DefaultConfig returns a default configuration for the given API key.
func DefaultConfig(apiKey string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		APIKey:    apiKey,
		UserAgent: "cve-cache-proxy/0.1.0",
		Timeout:   30 * time.Second,
		Logger:    log.Logger,
	}
}

// New creates a new upstream client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive (got %s)", cfg.Timeout)
	}

	logger := cfg.Logger.With().Str("component", "upstream-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logger,
	}, nil
}

// Fetch requests the upstream with the given query parameters.
func (c *Client) Fetch(ctx context.Context, query url.Values) (json.RawMessage, error) {
	return c.FetchRaw(ctx, query.Encode())
}

// FetchRaw requests the upstream with an already encoded query string,
// preserving the caller's parameter order.
// It returns the JSON body on 2xx, or an *UpstreamError otherwise.
func (c *Client) FetchRaw(ctx context.Context, rawQuery string) (json.RawMessage, error) {
	target := c.config.BaseURL
	if rawQuery != "" {
		target += "?" + rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if c.config.APIKey != "" {
		req.Header.Set(APIKeyHeader, c.config.APIKey)
	}

	c.logger.Debug().
		Str("query", rawQuery).
		Bool("api_key", c.config.APIKey != "").
		Msg("Executing upstream request")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	upstreamRequestDuration.Observe(time.Since(startTime).Seconds())
	if err != nil {
		upstreamErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		upstreamRequestsTotal.WithLabelValues("network_error").Inc()
		c.logger.Error().Err(err).Str("query", rawQuery).Msg("Upstream request failed")
		return nil, &UpstreamError{
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	upstreamRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		upstreamErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    "read response body",
			Header:     resp.Header.Clone(),
			Err:        err,
		}
	}

	if errClass := classifyStatus(resp.StatusCode); errClass != "" {
		upstreamErrorsTotal.WithLabelValues(string(errClass)).Inc()
		upErr := &UpstreamError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
			Header:     resp.Header.Clone(),
			Body:       body,
		}
		if msg := resp.Header.Get(MessageHeader); msg != "" {
			upErr.Message = msg
		}

		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Str("query", rawQuery).
			Msg("Upstream request error")
		return nil, upErr
	}

	if !json.Valid(body) {
		upstreamErrorsTotal.WithLabelValues(string(ErrorClassServer)).Inc()
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassServer,
			Message:    "response body is not valid JSON",
			Header:     resp.Header.Clone(),
			Body:       body,
		}
	}

	return json.RawMessage(body), nil
}

// classifyStatus categorizes a response status; "" means success.
func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 200 && status < 300:
		return ""
	case status >= 400 && status < 500:
		return ErrorClassClient
	default:
		return ErrorClassServer
	}
}
