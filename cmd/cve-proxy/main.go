package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/cve-cache-proxy/internal/config"
	"github.com/Sternrassler/cve-cache-proxy/pkg/cache"
	"github.com/Sternrassler/cve-cache-proxy/pkg/client"
	"github.com/Sternrassler/cve-cache-proxy/pkg/logging"
	"github.com/Sternrassler/cve-cache-proxy/pkg/metrics"
	"github.com/Sternrassler/cve-cache-proxy/pkg/proxy"
	"github.com/Sternrassler/cve-cache-proxy/pkg/totalcount"
)

const (
	shutdownTimeout = 10 * time.Second
	startupPingWait = 5 * time.Second
)

// pinger reports whether the cache store is reachable.
type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Proxy stopped")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Setup(logging.ConfigFrom(cfg.LogLevel, cfg.LogPretty))

	// Setup Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	cacheManager := cache.NewManager(redisClient)

	// Requests bypass the cache while Redis is down, so a failed ping is not fatal
	pingCtx, cancel := context.WithTimeout(context.Background(), startupPingWait)
	if err := cacheManager.Ping(pingCtx); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis not reachable, serving uncached until it recovers")
	} else {
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	}
	cancel()

	upstream, err := client.New(client.Config{
		BaseURL:   cfg.APIBaseURL,
		APIKey:    cfg.APIKey,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.UpstreamTimeout,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("create upstream client: %w", err)
	}

	handler, err := proxy.New(proxy.Options{
		Cache:        cacheManager,
		Upstream:     upstream,
		Totals:       totalcount.NewResolver(cacheManager, upstream, cfg.CacheTTLDuration(), logging.NewLogger("totalcount")),
		TTL:          cfg.CacheTTLDuration(),
		SingleFlight: cfg.SingleFlight,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("create proxy handler: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newRouter(handler, cacheManager, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("upstream", cfg.APIBaseURL).
			Str("user_agent", cfg.UserAgent).
			Bool("api_key", cfg.APIKey != "").
			Dur("cache_ttl", cfg.CacheTTLDuration()).
			Msg("Starting CVE cache proxy")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newRouter wires the proxy endpoints and operational routes.
func newRouter(h *proxy.Handler, store pinger, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.AccessLog(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(store))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	h.Register(r)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports 503 while the cache store is unreachable.
func readyHandler(store pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "Redis unavailable: %v", err)
			return
		}

		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}
