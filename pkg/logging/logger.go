// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// ConfigFrom builds a logger configuration from the raw LOG_LEVEL and
// LOG_PRETTY settings.
func ConfigFrom(level string, pretty bool) Config {
	cfg := DefaultConfig()
	if level != "" {
		cfg.Level = LogLevel(strings.ToLower(strings.TrimSpace(level)))
	}
	cfg.Pretty = pretty
	return cfg
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Configure output
	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	// Create logger with timestamp
	logger := zerolog.New(output).With().Timestamp().Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// AccessLog returns middleware that attaches logger to each request context
// and writes one access line per completed request.
func AccessLog(logger zerolog.Logger) func(http.Handler) http.Handler {
	access := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		event := hlog.FromRequest(r).Info()
		if status >= http.StatusInternalServerError {
			event = hlog.FromRequest(r).Error()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("query", r.URL.RawQuery).
			Str("request_id", middleware.GetReqID(r.Context())).
			Int("status_code", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request handled")
	})

	return func(next http.Handler) http.Handler {
		return hlog.NewHandler(logger)(access(next))
	}
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, key, TTL)
//   - Offset translation (offset, total, upstream window)
//   - Total count lookups
//
// Info: Normal operation events
//   - Handled requests (access log)
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Rejected requests (invalid startIndex/resultsPerPage)
//   - Upstream 4xx responses passed through to the client
//   - Cache errors (fallback to direct upstream request)
//   - Total count lookup failures
//
// Error: Error conditions requiring attention
//   - Upstream 5xx, network failures and invalid payloads
//   - Configuration errors
//
// Context Fields:
//   - component: Emitting package (cache, client, proxy, totalcount)
//   - endpoint: Proxy route (/api/cve, /api/cves)
//   - request_id: chi request ID
//   - status_code: HTTP status code
//   - duration: Request duration
//   - error_class: Upstream error classification (client, server, network)
//   - key: Canonical cache key
//   - ttl: Cache entry TTL
