package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateLimitMessage is the body of every 429 the limiter writes.
const RateLimitMessage = "Too many requests, please try again later."

// RateLimitStore counts hits per key in fixed windows.
//
// Increment records one hit and returns the hit count in the key's current
// window along with the time that window ends. The first hit for a key (or
// the first after its window ended) starts a new window.
type RateLimitStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

// =========================================================================
// IN-MEMORY STORE
// =========================================================================

type windowEntry struct {
	count   int64
	resetAt time.Time
}

// MemoryStore keeps counters in process memory. Counts are per instance,
// so use RedisStore when running more than one replica.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*windowEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Increment(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = &windowEntry{resetAt: now.Add(window)}
		s.entries[key] = e
	}
	e.count++

	return e.count, e.resetAt, nil
}

// Cleanup drops expired windows every interval until ctx is done.
// Without it, one entry per client address would accumulate forever.
func (s *MemoryStore) Cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for k, e := range s.entries {
		if !now.Before(e.resetAt) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// =========================================================================
// REDIS STORE
// =========================================================================

// RedisStore shares counters across instances. Each key holds an integer
// counter whose TTL is the remainder of the window.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a RedisStore. Keys are "<prefix>:<key>".
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// NewRedisClient parses a redis:// URL into a client.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Increment runs INCR and PTTL in one pipeline. The expiry is only set when
// the key has none, so later hits never extend the window.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	redisKey := s.prefix + ":" + key

	pipe := s.client.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("redis rate limit: %w", err)
	}

	ttl := pttl.Val()
	if ttl < 0 {
		if err := s.client.PExpire(ctx, redisKey, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("redis rate limit expire: %w", err)
		}
		ttl = window
	}

	return incr.Val(), time.Now().Add(ttl), nil
}

// =========================================================================
// MIDDLEWARE
// =========================================================================

// RateLimiter limits requests per client address under a path prefix.
type RateLimiter struct {
	store   RateLimitStore
	limit   int
	window  time.Duration
	prefix  string
	logger  *slog.Logger
	metrics *Metrics
}

// NewRateLimiter creates a limiter allowing limit requests per window for
// each client address on paths under prefix ("" limits every path).
// metrics may be nil.
func NewRateLimiter(store RateLimitStore, limit int, window time.Duration, prefix string, logger *slog.Logger, metrics *Metrics) *RateLimiter {
	return &RateLimiter{
		store:   store,
		limit:   limit,
		window:  window,
		prefix:  prefix,
		logger:  logger,
		metrics: metrics,
	}
}

// Handler enforces the limit. A store failure lets the request through
// without rate-limit headers and logs a warning.
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !underPrefix(r.URL.Path, l.prefix) {
			next.ServeHTTP(w, r)
			return
		}

		key := clientIP(r)
		count, resetAt, err := l.store.Increment(r.Context(), key, l.window)
		if err != nil {
			l.logger.Warn("rate limit store unavailable, allowing request",
				slog.String("client", key),
				slog.String("error", err.Error()),
			)
			next.ServeHTTP(w, r)
			return
		}

		remaining := int64(l.limit) - count
		if remaining < 0 {
			remaining = 0
		}
		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if count > int64(l.limit) {
			retryAfter := int64(math.Ceil(time.Until(resetAt).Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			h.Set("Retry-After", strconv.FormatInt(retryAfter, 10))

			l.metrics.RateLimited()
			writeFailure(w, http.StatusTooManyRequests, RateLimitMessage)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// underPrefix matches the way a mount point does: "/api" covers "/api" and
// "/api/..." but not "/apix".
func underPrefix(path, prefix string) bool {
	if prefix == "" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// clientIP returns the address the limiter keys on. chi's RealIP has
// already replaced RemoteAddr with the forwarded address when present.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
