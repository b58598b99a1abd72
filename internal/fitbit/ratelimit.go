package fitbit

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"stridesync/internal/metrics"
)

// RateLimiter tracks the Fitbit API rate limit window from response headers
type RateLimiter struct {
	mu          sync.RWMutex
	limit       int
	remaining   int
	resetAt     time.Time
	lastUpdated time.Time
}

// RateLimitStatus represents the current rate limit status
type RateLimitStatus struct {
	Limit       int
	Remaining   int
	ResetAt     time.Time
	LastUpdated time.Time
}

// NewRateLimiter creates a new rate limiter with Fitbit's default
// per-user hourly quota
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limit:     150,
		remaining: 150,
	}
}

// UpdateFromHeaders reads the fitbit-rate-limit-* headers off a response.
// Missing headers leave the previous state untouched.
func (rl *RateLimiter) UpdateFromHeaders(h http.Header) {
	limitStr := h.Get("Fitbit-Rate-Limit-Limit")
	remainingStr := h.Get("Fitbit-Rate-Limit-Remaining")
	resetStr := h.Get("Fitbit-Rate-Limit-Reset")
	if limitStr == "" && remainingStr == "" {
		return
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, err := strconv.Atoi(limitStr); err == nil {
		rl.limit = v
	}
	if v, err := strconv.Atoi(remainingStr); err == nil {
		rl.remaining = v
		metrics.FitbitRateLimitRemaining.Set(float64(v))
	}
	if v, err := strconv.Atoi(resetStr); err == nil {
		rl.resetAt = time.Now().Add(time.Duration(v) * time.Second)
	}
	rl.lastUpdated = time.Now()
}

// Status returns the current rate limit status
func (rl *RateLimiter) Status() RateLimitStatus {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	return RateLimitStatus{
		Limit:       rl.limit,
		Remaining:   rl.remaining,
		ResetAt:     rl.resetAt,
		LastUpdated: rl.lastUpdated,
	}
}

// Exhausted reports whether the current window has no budget left
func (rl *RateLimiter) Exhausted() bool {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	return rl.remaining <= 0 && time.Now().Before(rl.resetAt)
}
