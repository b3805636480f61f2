package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ruet-portal/portal-backend/internal/config"
)

var limiterScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill_tokens = tonumber(ARGV[3])
	local interval_ms = tonumber(ARGV[4])
	local ttl_seconds = tonumber(ARGV[5])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	if interval_ms > 0 and refill_tokens > 0 then
		local elapsed = math.max(0, now_ms - last_refill)
		local intervals = math.floor(elapsed / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + (intervals * refill_tokens))
			last_refill = last_refill + (intervals * interval_ms)
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		local until_next = interval_ms - (now_ms - last_refill)
		if until_next < 0 then until_next = 0 end
		retry_after_ms = until_next
	end

	redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill, 'capacity', capacity)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, tokens, retry_after_ms }
`)

// decision is the outcome of taking one token from a bucket.
type decision struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

// bucket takes a token for key.  ok is false when the backend could not
// answer, in which case the request is let through.
type bucket interface {
	take(ctx context.Context, key string, now time.Time) (d decision, ok bool)
}

// NewTokenBucket guards routes with a per-key token bucket.  With a Redis
// client the bucket state lives in Redis and is shared between replicas;
// without one each process keeps its own limiters.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *logrus.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	cfg = cfg.Normalize()
	var b bucket
	if rdb != nil {
		b = &redisBucket{cfg: cfg, rdb: rdb, log: log}
	} else {
		b = newLocalBucket(cfg)
	}
	return limit(cfg, b, log)
}

func limit(cfg config.RateLimitConfig, b bucket, log *logrus.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			d, ok := b.take(c.Request().Context(), key, time.Now())
			if !ok {
				return next(c)
			}

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))

			if !d.allowed {
				secs := int(math.Ceil(d.retry.Seconds()))
				if secs < 0 {
					secs = 0
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				if cfg.Debug && log != nil {
					log.WithFields(logrus.Fields{"key": key, "retry_ms": d.retry.Milliseconds()}).Info("rate limit block")
				}
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too many requests",
					"retry_after": secs,
				})
			}

			if cfg.Debug {
				c.Response().Header().Set("X-RateLimit-Key", key)
			}
			return next(c)
		}
	}
}

type redisBucket struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
	log *logrus.Logger
}

func (r *redisBucket) take(ctx context.Context, key string, now time.Time) (decision, bool) {
	args := []interface{}{
		now.UnixMilli(),
		r.cfg.Capacity,
		r.cfg.RefillTokens,
		r.cfg.RefillInterval.Milliseconds(),
		int64(r.cfg.TTL / time.Second),
	}
	vals, err := limiterScript.Run(ctx, r.rdb, []string{key}, args...).Result()
	if err != nil {
		if r.log != nil {
			r.log.WithError(err).WithField("key", key).Warn("rate limit redis error")
		}
		return decision{}, false
	}
	arr, ok := vals.([]interface{})
	if !ok || len(arr) != 3 {
		if r.log != nil {
			r.log.WithField("key", key).Warnf("unexpected rate limit script result: %#v", vals)
		}
		return decision{}, false
	}
	return decision{
		allowed:   fmt.Sprint(arr[0]) == "1",
		remaining: asInt64(arr[1]),
		retry:     time.Duration(asInt64(arr[2])) * time.Millisecond,
	}, true
}

// localBucket keeps one x/time/rate limiter per key.  Entries idle for
// longer than the configured TTL are swept on the next call.
type localBucket struct {
	cfg   config.RateLimitConfig
	mu    sync.RWMutex
	keys  map[string]*localEntry
	every rate.Limit
	swept time.Time
}

type localEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

func newLocalBucket(cfg config.RateLimitConfig) *localBucket {
	per := cfg.RefillInterval / time.Duration(cfg.RefillTokens)
	return &localBucket{
		cfg:   cfg,
		keys:  make(map[string]*localEntry),
		every: rate.Every(per),
	}
}

func (l *localBucket) take(_ context.Context, key string, now time.Time) (decision, bool) {
	l.mu.RLock()
	e, ok := l.keys[key]
	l.mu.RUnlock()

	if !ok {
		l.mu.Lock()
		if e, ok = l.keys[key]; !ok {
			e = &localEntry{lim: rate.NewLimiter(l.every, l.cfg.Capacity)}
			l.keys[key] = e
		}
		l.sweep(now)
		l.mu.Unlock()
	}

	r := e.lim.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	if delay > 0 {
		r.CancelAt(now)
		return decision{allowed: false, retry: delay}, true
	}

	l.mu.Lock()
	e.seen = now
	l.mu.Unlock()
	remaining := int64(e.lim.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return decision{allowed: true, remaining: remaining}, true
}

// sweep must be called with mu held.
func (l *localBucket) sweep(now time.Time) {
	if now.Sub(l.swept) < l.cfg.TTL {
		return
	}
	for k, e := range l.keys {
		if !e.seen.IsZero() && now.Sub(e.seen) > l.cfg.TTL {
			delete(l.keys, k)
		}
	}
	l.swept = now
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	parts := []string{cfg.Prefix}
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	uid := UserID(c)
	if uid == "" {
		uid = "anon"
	}
	route := c.Request().Method + " " + c.Path()

	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		parts = append(parts, "user", uid)
	case "route":
		parts = append(parts, "route", route)
	case "ip_user":
		parts = append(parts, "ip", ip, "user", uid)
	case "ip_route":
		parts = append(parts, "ip", ip, "route", route)
	case "user_route":
		parts = append(parts, "user", uid, "route", route)
	default:
		parts = append(parts, "ip", ip, "user", uid, "route", route)
	}
	return strings.Join(parts, ":")
}
