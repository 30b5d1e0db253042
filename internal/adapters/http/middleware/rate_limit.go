// Package middleware - rate limiting.
//
// Fixed-window counter with in-memory state, keyed by client IP. Good enough for a
// single instance; a distributed deployment would move the buckets to redis.
package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimitConfig configures a limiter.
type RateLimitConfig struct {
	Limit   int           // requests per window
	Window  time.Duration // window length
	KeyFunc func(*gin.Context) string
}

// DefaultRateLimitConfig returns the global default: 100 req/min per IP.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		Limit:  100,
		Window: time.Minute,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	}
}

// MutationRateLimitConfig is the stricter limit applied to the posting
// endpoints: 30 req/min per IP.
func MutationRateLimitConfig() *RateLimitConfig {
	cfg := DefaultRateLimitConfig()
	cfg.Limit = 30
	return cfg
}

type bucket struct {
	tokens    int
	lastReset time.Time
}

type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	config  *RateLimitConfig
}

func newRateLimiter(config *RateLimitConfig) *rateLimiter {
	rl := &rateLimiter{
		buckets: make(map[string]*bucket),
		config:  config,
	}
	go rl.cleanup()
	return rl
}

// allow consumes a token and reports remaining tokens plus time to reset.
func (rl *rateLimiter) allow(key string) (bool, int, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, exists := rl.buckets[key]
	if !exists || now.Sub(b.lastReset) >= rl.config.Window {
		rl.buckets[key] = &bucket{tokens: rl.config.Limit - 1, lastReset: now}
		return true, rl.config.Limit - 1, rl.config.Window
	}

	reset := rl.config.Window - now.Sub(b.lastReset)
	if b.tokens <= 0 {
		return false, 0, reset
	}
	b.tokens--
	return true, b.tokens, reset
}

// cleanup evicts idle buckets so the map does not grow without bound.
func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-2 * rl.config.Window)
		for key, b := range rl.buckets {
			if b.lastReset.Before(cutoff) {
				delete(rl.buckets, key)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimit enforces the configured limit, exposing the usual X-RateLimit
// headers.
func RateLimit(config *RateLimitConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	rl := newRateLimiter(config)

	return func(c *gin.Context) {
		key := config.KeyFunc(c)
		allowed, remaining, reset := rl.allow(key)

		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(reset.Seconds())))

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "TOO_MANY_REQUESTS",
					"message": "Too many requests, please try again later",
				},
			})
			return
		}

		c.Next()
	}
}
