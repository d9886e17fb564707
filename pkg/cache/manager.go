package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidTTL indicates a non-positive expiry was requested
	ErrInvalidTTL = errors.New("ttl must be positive")
)

// DefaultOpTimeout bounds a single Redis round trip.
const DefaultOpTimeout = 2 * time.Second

// Manager handles caching operations with Redis backend.
type Manager struct {
	redis     *redis.Client
	opTimeout time.Duration
}

// NewManager creates a new cache manager with Redis backend.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{
		redis:     redisClient,
		opTimeout: DefaultOpTimeout,
	}
}

// WithOpTimeout overrides the per-operation timeout.
func (m *Manager) WithOpTimeout(d time.Duration) *Manager {
	if d > 0 {
		m.opTimeout = d
	}
	return m
}

func (m *Manager) opCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, m.opTimeout)
}

// Get retrieves the value stored under key.
// Returns ErrCacheMiss if the key doesn't exist or has expired.
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := m.opCtx(ctx)
	defer cancel()

	value, err := m.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.Inc()
			return "", ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return "", fmt.Errorf("redis get: %w", err)
	}

	CacheHits.WithLabelValues("redis").Inc()
	return value, nil
}

// Set stores value under key. Redis removes it once ttl elapses.
func (m *Manager) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%w (got %s)", ErrInvalidTTL, ttl)
	}

	ctx, cancel := m.opCtx(ctx)
	defer cancel()

	if err := m.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheWrittenBytes.WithLabelValues("redis").Add(float64(len(value)))
	return nil
}

// Ping checks that the Redis backend is reachable.
func (m *Manager) Ping(ctx context.Context) error {
	ctx, cancel := m.opCtx(ctx)
	defer cancel()

	if err := m.redis.Ping(ctx).Err(); err != nil {
		CacheErrors.WithLabelValues("ping").Inc()
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
