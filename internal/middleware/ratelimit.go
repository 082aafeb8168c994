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

	"github.com/redis/go-redis/v9"

	"github.com/contractsonly/api/internal/model"
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, remaining int, resetTime time.Time, err error)
	Limit() int
}

// MemoryLimiter counts requests per client in fixed one-minute windows, the
// same budget RedisLimiter enforces, but local to one process.
type MemoryLimiter struct {
	mu        sync.Mutex
	counters  map[string]*minuteCounter
	perMinute int
	now       func() time.Time
	done      chan struct{}
	closeOnce sync.Once
}

type minuteCounter struct {
	minute int64
	hits   int
}

// NewMemoryLimiter creates a limiter allowing perMinute requests per client
// (30 when not positive). Counters from past minutes are swept every
// sweepEvery; zero means every five minutes.
func NewMemoryLimiter(perMinute int, sweepEvery time.Duration) *MemoryLimiter {
	if perMinute <= 0 {
		perMinute = 30
	}
	if sweepEvery <= 0 {
		sweepEvery = 5 * time.Minute
	}
	m := &MemoryLimiter{
		counters:  make(map[string]*minuteCounter),
		perMinute: perMinute,
		now:       time.Now,
		done:      make(chan struct{}),
	}
	go m.sweepLoop(sweepEvery)
	return m
}

// Stop ends the sweep goroutine. Safe to call more than once.
func (m *MemoryLimiter) Stop() {
	m.closeOnce.Do(func() { close(m.done) })
}

// Limit returns the configured requests per minute
func (m *MemoryLimiter) Limit() int {
	return m.perMinute
}

func (m *MemoryLimiter) sweepLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-t.C:
			m.sweep()
		}
	}
}

// sweep drops counters that belong to an earlier minute
func (m *MemoryLimiter) sweep() {
	current := m.now().Unix() / 60

	m.mu.Lock()
	defer m.mu.Unlock()
	for client, c := range m.counters {
		if c.minute < current {
			delete(m.counters, client)
		}
	}
}

// Allow counts the request against the client's current minute. It never errors.
func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, int, time.Time, error) {
	minute := m.now().Unix() / 60
	reset := time.Unix((minute+1)*60, 0)

	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.counters[key]
	if c == nil || c.minute != minute {
		c = &minuteCounter{minute: minute}
		m.counters[key] = c
	}
	c.hits++
	if c.hits > m.perMinute {
		return false, 0, reset, nil
	}
	return true, m.perMinute - c.hits, reset, nil
}

// RedisLimiter keeps a fixed per-minute counter in Redis so that every
// instance behind a load balancer shares one budget.
type RedisLimiter struct {
	client    redis.Cmdable
	perMinute int
	prefix    string
	now       func() time.Time
}

// NewRedisLimiter creates a limiter backed by the given client
func NewRedisLimiter(client redis.Cmdable, perMinute int) *RedisLimiter {
	if perMinute <= 0 {
		perMinute = 30
	}
	return &RedisLimiter{
		client:    client,
		perMinute: perMinute,
		prefix:    "ratelimit",
		now:       time.Now,
	}
}

// Limit returns the configured requests per minute
func (r *RedisLimiter) Limit() int {
	return r.perMinute
}

// Allow increments the counter for the current minute window
func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	now := r.now()
	window := now.Unix() / 60
	reset := time.Unix((window+1)*60, 0)
	redisKey := fmt.Sprintf("%s:%s:%d", r.prefix, key, window)

	cnt, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, 0, reset, fmt.Errorf("rate limit counter: %w", err)
	}
	if cnt == 1 {
		// First hit in this window
		_ = r.client.Expire(ctx, redisKey, 60*time.Second).Err()
	}
	if int(cnt) > r.perMinute {
		return false, 0, reset, nil
	}
	return true, r.perMinute - int(cnt), reset, nil
}

// RateLimit returns a middleware that gives each client IP its own budget.
// When the limiter errors the request goes through without limit headers.
func RateLimit(limiter Limiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, left, reset, err := limiter.Allow(r.Context(), ClientIP(r))
			if err != nil {
				slog.WarnContext(r.Context(), "rate limiter unavailable",
					slog.String("path", r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(left))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			wait := max(int(math.Ceil(time.Until(reset).Seconds())), 1)
			h.Set("Retry-After", strconv.Itoa(wait))
			model.NewRateLimitError(wait).WriteJSON(w)
		})
	}
}

// ClientIP returns the first X-Forwarded-For hop, or the host part of RemoteAddr
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
