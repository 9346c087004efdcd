package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"fleetworks/depot/pkg/api/httpx"
	"fleetworks/depot/pkg/config"
	"fleetworks/depot/pkg/identity"

	"golang.org/x/time/rate"
)

// idleLimiterTTL is how long an unused per-actor limiter is kept.
const idleLimiterTTL = 10 * time.Minute

// RateLimiter keeps a token bucket per actor, or per client address for
// unauthenticated requests.
type RateLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	limiters  map[string]*actorLimiter
	lastSweep time.Time
}

type actorLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing cfg.RequestsPerSecond sustained
// with bursts of cfg.Burst.
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = int(math.Ceil(cfg.RequestsPerSecond))
	}
	return &RateLimiter{
		limit:    rate.Limit(cfg.RequestsPerSecond),
		burst:    burst,
		now:      time.Now,
		limiters: make(map[string]*actorLimiter),
	}
}

// Allow reports whether key may make a request now, and if not, how long
// until it may.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	al, ok := l.limiters[key]
	if !ok {
		al = &actorLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = al
	}
	al.lastSeen = now
	l.sweep(now)
	l.mu.Unlock()

	res := al.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Second
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// sweep drops idle limiters. Callers hold l.mu.
func (l *RateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < idleLimiterTTL {
		return
	}
	l.lastSweep = now
	for key, al := range l.limiters {
		if now.Sub(al.lastSeen) > idleLimiterTTL {
			delete(l.limiters, key)
		}
	}
}

// Len returns the number of tracked keys.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// RateLimit answers 429 with a Retry-After header once the caller's bucket
// is empty. A nil limiter disables limiting.
func RateLimit(l *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + identity.ClientIP(r.Context())
			if actor, ok := identity.FromContext(r.Context()); ok {
				key = string(actor.Type) + ":" + actor.ID
			}

			ok, retry := l.Allow(key)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.burst))
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
				httpx.WriteErrorResponse(w, http.StatusTooManyRequests, httpx.NewErrorResponse(
					httpx.ErrorTypeRateLimitExceeded, "rate limit exceeded", httpx.CodeRateLimited))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
