package webserver

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter caps requests per client IP inside a trailing window. Wallet
// level limits live in the anti-sybil gate; this one only shields the HTTP
// surface from bursts.
type RateLimiter struct {
	mu     sync.Mutex
	seen   map[string][]time.Time
	rate   int
	window time.Duration
}

func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		seen:   make(map[string][]time.Time),
		rate:   rate,
		window: window,
	}
	go rl.evictLoop()
	return rl
}

// allow trims aged-out entries and records the request if under the cap.
func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	kept := rl.trim(key, now)
	if len(kept) >= rl.rate {
		return false
	}
	rl.seen[key] = append(kept, now)
	return true
}

func (rl *RateLimiter) trim(key string, now time.Time) []time.Time {
	cutoff := now.Add(-rl.window)
	kept := rl.seen[key][:0]
	for _, t := range rl.seen[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(rl.seen, key)
		return nil
	}
	rl.seen[key] = kept
	return kept
}

func (rl *RateLimiter) evictLoop() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key := range rl.seen {
			rl.trim(key, now)
		}
		rl.mu.Unlock()
	}
}

func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"err": fmt.Sprintf("rate limit exceeded: %d requests per %v", limiter.rate, limiter.window),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
