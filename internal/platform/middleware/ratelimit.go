package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// retryAfterSeconds is what clients are told to wait, independent of how
// much of the current window remains.
const retryAfterSeconds = 3600

// Store counts hits per key within a fixed window.
type Store interface {
	// Hit records one request for key and returns the count within the
	// current window together with the time until the window resets.
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RateLimitConfig limits a route to Limit requests per Window per client
// address. Name separates counters of different routes.
type RateLimitConfig struct {
	Name   string
	Limit  int64
	Window time.Duration
	Store  Store
	Logger zerolog.Logger
}

// RateLimit returns a fixed-window rate limiting middleware. Store errors
// let the request through.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	limit := strconv.FormatInt(cfg.Limit, 10)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := cfg.Name + ":" + c.RealIP()
			count, reset, err := cfg.Store.Hit(c.Request().Context(), key, cfg.Window)
			if err != nil {
				cfg.Logger.Warn().Err(err).Str("limiter", cfg.Name).Msg("rate limit store unavailable")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			if count > cfg.Limit {
				h.Set("X-RateLimit-Remaining", "0")
				h.Set("Retry-After", strconv.Itoa(int(reset.Seconds())+1))
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"message":     "Rate limit exceeded",
					"error":       fmt.Sprintf("You can only make %d requests per hour in demo mode. Please try again later", cfg.Limit),
					"retry_after": retryAfterSeconds,
				})
			}
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(cfg.Limit-count, 10))
			return next(c)
		}
	}
}

type window struct {
	count int64
	reset time.Time
}

// MemoryStore keeps counters in process memory. Expired windows are
// dropped lazily on the next hit for the same key and by a sweep every
// thousand hits.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	hits    int
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]*window), now: time.Now}
}

func (s *MemoryStore) Hit(_ context.Context, key string, d time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.hits++
	if s.hits%1000 == 0 {
		for k, w := range s.windows {
			if !now.Before(w.reset) {
				delete(s.windows, k)
			}
		}
	}

	w, ok := s.windows[key]
	if !ok || !now.Before(w.reset) {
		w = &window{reset: now.Add(d)}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.reset.Sub(now), nil
}

// RedisStore shares counters between replicas using INCR with an expiry
// set on the first hit of each window.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Hit(ctx context.Context, key string, d time.Duration) (int64, time.Duration, error) {
	k := s.prefix + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, d)
	ttl := pipe.TTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("redis rate limit %s: %w", key, err)
	}

	remaining := ttl.Val()
	if remaining < 0 {
		remaining = d
	}
	return incr.Val(), remaining, nil
}

// NewRedisClient parses a redis:// URL and checks the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	return client, nil
}
