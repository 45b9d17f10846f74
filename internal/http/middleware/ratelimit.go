// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements a per-key token-bucket rate limiter:
//
//   - Per-key buckets using golang.org/x/time/rate
//   - Keyed by authenticated user when available, client IP otherwise
//   - Stale buckets are evicted by a background sweep to bound memory
//
// The SSE stream endpoint is exempted at the router level; limiting applies
// to the request that opens the stream, not to pushed frames.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyFunc derives the bucket key for a request.
type keyFunc func(*gin.Context) string

// KeyByUserOrIP keys buckets by the authenticated user ID when present,
// falling back to the client IP for unauthenticated requests.
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if uid := UserID(c); uid != "" {
			return "u:" + uid
		}
		return "ip:" + c.ClientIP()
	}
}

// visitor tracks one bucket and its last use for eviction.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a token bucket per key.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
	keyFn    keyFunc
}

// NewRateLimiter builds a limiter producing rps tokens per second with the
// given burst size per key, and starts the eviction sweep.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
	}
	go rl.sweep()
	return rl
}

// getVisitor returns (creating if needed) the bucket for key.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// sweep drops buckets idle for more than three minutes.
func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-3 * time.Minute)
		rl.mu.Lock()
		for k, v := range rl.visitors {
			if v.lastSeen.Before(cutoff) {
				delete(rl.visitors, k)
			}
		}
		rl.mu.Unlock()
	}
}

// Handler returns the Gin middleware enforcing the limit. Replayed
// idempotent sends bypass the limiter so safe retries are never throttled
// into a duplicate-send corner.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsReplay(c) {
			c.Next()
			return
		}
		if !rl.getVisitor(rl.keyFn(c)).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "too_many_requests",
				"message":    "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
