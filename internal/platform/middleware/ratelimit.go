package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// DefaultIdleTTL is how long a key may sit unused before its limiter is
// dropped.
const DefaultIdleTTL = 10 * time.Minute

// Limiter keeps one token bucket per key. Keys idle for longer than the
// TTL are evicted, so a stream of distinct keys cannot grow it forever.
type Limiter struct {
	limit rate.Limit
	burst int
	ttl   time.Duration
	now   func() time.Time

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiter returns a Limiter refilling rps tokens per second up to burst.
// idleTTL <= 0 selects DefaultIdleTTL.
func NewLimiter(rps float64, burst int, idleTTL time.Duration) *Limiter {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &Limiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		ttl:      idleTTL,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

// Allow takes one token for key. When none is available it reports how long
// the caller should wait.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) >= l.ttl {
		l.evict(now)
		l.lastSweep = now
	}
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	l.mu.Unlock()

	r := v.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, l.ttl
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}

// Len reports how many keys are tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

func (l *Limiter) evict(now time.Time) {
	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, k)
		}
	}
}

// RateLimitConfig holds rate limiting configuration. KeyFunc picks the
// bucket for a request and defaults to the client IP.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	IdleTTL           time.Duration
	KeyFunc           func(c echo.Context) string
}

// RateLimit returns a rate limiting middleware.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	return RateLimitWith(NewLimiter(cfg.RequestsPerSecond, cfg.BurstSize, cfg.IdleTTL), cfg)
}

// RateLimitWith is RateLimit over an existing Limiter.
func RateLimitWith(l *Limiter, cfg RateLimitConfig) echo.MiddlewareFunc {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = func(c echo.Context) string { return c.RealIP() }
	}
	limit := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', -1, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("X-RateLimit-Limit", limit)
			if ok, wait := l.Allow(keyFunc(c)); !ok {
				SetRetryAfter(c, wait)
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}

// SetRetryAfter writes wait as whole seconds, never less than one.
func SetRetryAfter(c echo.Context, wait time.Duration) {
	secs := int(math.Ceil(wait.Seconds()))
	if secs < 1 {
		secs = 1
	}
	c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
}
