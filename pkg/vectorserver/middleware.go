package vectorserver

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// withTimeout bounds the request's context to d and lets the handler
// check ctx.Err() via the usual context plumbing; spec.md §5 assigns a
// different budget per operation class (write/vector/health).
func withTimeout(d time.Duration, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()
		next(w, r.WithContext(ctx))
	}
}

// RateLimiter is a shared token bucket: ratePerMinute tokens refill
// continuously, capped at ratePerMinute tokens banked. No third-party
// rate-limiting library appears anywhere in the example pack, so this
// is hand-rolled the way the teacher hand-rolls its own small
// concurrency primitives rather than reaching for one.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     float64
	max        float64
	refillRate float64 // tokens per second
	last       time.Time
}

// NewRateLimiter returns a limiter that allows ratePerMinute requests
// per minute, bursting up to that many tokens.
func NewRateLimiter(ratePerMinute int) *RateLimiter {
	rate := float64(ratePerMinute) / 60.0
	return &RateLimiter{
		tokens:     float64(ratePerMinute),
		max:        float64(ratePerMinute),
		refillRate: rate,
		last:       time.Now(),
	}
}

// Allow reports whether a token is available, consuming one if so.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.last).Seconds()
	rl.last = now

	rl.tokens += elapsed * rl.refillRate
	if rl.tokens > rl.max {
		rl.tokens = rl.max
	}
	if rl.tokens < 1 {
		return false
	}
	rl.tokens--
	return true
}

// retryAfterSeconds is how long a caller should wait for one token to
// refill, rounded up to the nearest whole second (spec.md §7: "429
// with retry-after").
func (rl *RateLimiter) retryAfterSeconds() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.refillRate <= 0 {
		return 1
	}
	wait := math.Ceil((1 - rl.tokens) / rl.refillRate)
	if wait < 1 {
		wait = 1
	}
	return int(wait)
}

func (rl *RateLimiter) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow() {
			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfterSeconds()))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}
