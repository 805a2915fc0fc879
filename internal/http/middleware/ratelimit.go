// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the per-client token-bucket limiter in front of the
// /todos routes. Buckets live in process memory and idle ones are swept
// every sweepEvery lookups. Idempotent replays skip the limiter.
package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-todo-api/internal/apperr"
)

const (
	// sweepEvery is the number of lookups between idle-bucket sweeps.
	sweepEvery = 5000
	// idleTTL is how long an untouched bucket survives a sweep.
	idleTTL = 10 * time.Minute
)

// keyFunc maps a request to its bucket identity.
type keyFunc func(*gin.Context) string

// KeyByIP buckets requests by client IP. Every caller presents the same
// X-API-Key, so the remote address is the only per-client identity.
func KeyByIP() keyFunc {
	return func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a set of per-key token buckets. It is safe for concurrent use.
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	keyFn    keyFunc
	mu       sync.Mutex
	visitors map[string]*visitor

	ttl      time.Duration
	cleanupN uint64
}

// NewRateLimiter builds a limiter refilling rps tokens per second up to
// burst (coerced to at least 1). A zero rps admits only the initial burst.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      idleTTL,
	}
}

// sweep drops buckets idle for at least ttl. Callers hold mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for k, v := range rl.visitors {
		if now.Sub(v.lastSeen) >= rl.ttl {
			delete(rl.visitors, k)
		}
	}
	rl.cleanupN = 0
}

// getVisitor returns the bucket for key, creating it on first use. The sweep
// runs before the lookup so a stale bucket for key itself is replaced.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.cleanupN++; rl.cleanupN >= sweepEvery {
		rl.sweep(now)
	}
	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// IsRateBypass reports whether IdempotencyValidator marked this request as a
// replay, which Handler lets through without spending a token.
func IsRateBypass(c *gin.Context) bool { return ctxBool(c, ctxKeyRateBypass) }

// Handler enforces the limits. A rejected request gets RateLimited (2006):
//
//	HTTP/1.1 429 Too Many Requests
//	Retry-After: 1
//	{
//	  "code":    2006,
//	  "message": "Too many requests",
//	  "details": "rate limit exceeded, retry in 1s"
//	}
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	retry := rl.retryAfter()
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		if rl.getVisitor(rl.keyFn(c)).Allow() {
			c.Next()
			return
		}

		c.Header("Retry-After", strconv.Itoa(retry))
		AbortWithError(c, apperr.Newf(apperr.CodeRateLimited, "rate limit exceeded, retry in %ds", retry))
	}
}

// retryAfter is the whole number of seconds until one token is refilled,
// never less than 1. A zero rate never refills, so a minute is advertised.
func (rl *RateLimiter) retryAfter() int {
	if rl.rps <= 0 {
		return 60
	}
	secs := int(math.Ceil(1 / float64(rl.rps)))
	if secs < 1 {
		secs = 1
	}
	return secs
}
