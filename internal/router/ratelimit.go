package router

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// idleEvictAfter is how long a key's limiter may sit unused before a sweep
// reclaims it. Long enough that a caller making requests every few minutes
// never loses its accumulated burst, short enough that a churning population
// of IPs/users (scanners, NAT churn) doesn't pin memory forever.
const idleEvictAfter = 30 * time.Minute

// sweepEvery bounds how often Allow triggers an eviction scan, so the scan
// itself stays amortized rather than running on every single request.
const sweepEvery = 4096

type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// RateLimiter hands out a token-bucket limiter per client key, creating one
// lazily on first use. Keys are client IPs for anonymous traffic and
// X-User-ID for authenticated calls, so one abusive caller cannot exhaust
// another's budget. Entries idle for longer than idleEvictAfter are swept
// out so a long-running process serving a churning population of keys
// doesn't grow the map without bound.
type RateLimiter struct {
	mu             sync.Mutex
	limiters       map[string]*limiterEntry
	requestsPerSec float64
	burst          int
	sinceSweep     int
}

// NewRateLimiter builds a RateLimiter issuing limiters of the given rate
// and burst to every distinct key it sees.
func NewRateLimiter(requestsPerSec float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters:       make(map[string]*limiterEntry),
		requestsPerSec: requestsPerSec,
		burst:          burst,
	}
}

// Allow reports whether key may make a request right now, consuming a
// token from its bucket if so.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if entry, ok := rl.limiters[key]; ok {
		entry.lastUsed = now
		rl.maybeSweepLocked(now)
		return entry.limiter
	}

	entry := &limiterEntry{
		limiter:  rate.NewLimiter(rate.Limit(rl.requestsPerSec), rl.burst),
		lastUsed: now,
	}
	rl.limiters[key] = entry
	rl.maybeSweepLocked(now)
	return entry.limiter
}

// maybeSweepLocked evicts idle entries every sweepEvery calls. Must be
// called with rl.mu held.
func (rl *RateLimiter) maybeSweepLocked(now time.Time) {
	rl.sinceSweep++
	if rl.sinceSweep < sweepEvery {
		return
	}
	rl.sinceSweep = 0
	for key, entry := range rl.limiters {
		if now.Sub(entry.lastUsed) > idleEvictAfter {
			delete(rl.limiters, key)
		}
	}
}

// rateLimitMiddleware rejects requests over the configured budget with 429.
func rateLimitMiddleware(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-User-ID")
		if key == "" {
			key = c.ClientIP()
		}
		if !rl.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
