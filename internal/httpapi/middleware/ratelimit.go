package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter grants each caller, admins included, an
// independent token bucket keyed by username, falling back to client
// IP for unauthenticated dev-mode requests. Grounded on the teacher
// pack's infrastructure/middleware/ratelimit.go, adapted from a
// per-handler http.Handler wrapper to one Gin middleware shared across
// the whole `/api` group.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewRateLimiter builds a limiter allowing requestsPerSecond sustained
// requests per caller, with burst headroom above that. A non-positive
// requestsPerSecond disables limiting (rate.Inf), rather than
// rejecting every request the way rate.NewLimiter(0, 0) would — a
// zero-value Config should be permissive, not a lockout.
func NewRateLimiter(requestsPerSecond, burst int) *RateLimiter {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters[key]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[key] = l
	}
	return l
}

// Cleanup discards every tracked limiter once the bucket grows
// unreasonably large, trading a brief burst allowance reset for
// bounded memory (same tradeoff the teacher's Cleanup makes).
func (rl *RateLimiter) Cleanup(maxTracked int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.limiters) > maxTracked {
		rl.limiters = make(map[string]*rate.Limiter)
	}
}

// Handler rejects requests over the per-caller budget with 429,
// identifying the caller by the username AuthMiddleware already
// decoded, or by remote IP when unauthenticated.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key, _ := CallerIdentity(c)
		if key == "" {
			key = c.ClientIP()
		}

		if !rl.limiterFor(key).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limited",
				"message": "too many requests, slow down",
			})
			return
		}
		c.Next()
	}
}
