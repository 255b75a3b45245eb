package api

import (
	"sync"
	"time"
)

// TokenBucket implements a rate limiter using the token bucket algorithm
type TokenBucket struct {
	mutex       sync.Mutex
	capacity    int           // maximum tokens the bucket can hold
	tokens      float64       // current number of tokens
	fillRate    float64       // rate at which tokens are added (tokens per second)
	lastRefill  time.Time     // time of last token refill
	waitTimeout time.Duration // max time to wait for a token
}

// NewTokenBucket creates a new token bucket rate limiter
func NewTokenBucket(capacity int, fillRate float64, waitTimeout time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:    capacity,
		tokens:      1, // start with a single token to avoid an initial burst
		fillRate:    fillRate,
		lastRefill:  time.Now(),
		waitTimeout: waitTimeout,
	}
}

// Take attempts to take a token from the bucket.
// Returns true if successful, false if none are available.
func (tb *TokenBucket) Take() bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.lastRefill = now

	newTokens := elapsed * tb.fillRate
	if newTokens > 0 {
		tb.tokens = tb.tokens + newTokens
		if tb.tokens > float64(tb.capacity) {
			tb.tokens = float64(tb.capacity)
		}
	}

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}

	return false
}

// TakeWithTimeout attempts to take a token, waiting up to waitTimeout
func (tb *TokenBucket) TakeWithTimeout() bool {
	if tb.Take() {
		return true
	}

	tb.mutex.Lock()
	tokensNeeded := 1 - tb.tokens
	timeToWait := time.Duration(tokensNeeded / tb.fillRate * float64(time.Second))
	if timeToWait > tb.waitTimeout {
		timeToWait = tb.waitTimeout
	}
	tb.mutex.Unlock()

	time.Sleep(timeToWait)
	return tb.Take()
}

// Update recomputes the fill rate from Reddit's allocation.
// Reddit allocates 1000 requests per rolling 10-minute period; the
// X-Ratelimit-Remaining header is bugged (always 0), so the fill rate is
// derived from the full allocation with a 5% safety buffer rather than
// from the headers.
func (tb *TokenBucket) Update(used int, reset int) {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	totalAllocationPeriod := 600
	totalAllocation := 1000

	fullRate := float64(totalAllocation) / float64(totalAllocationPeriod)
	tb.fillRate = fullRate * 0.95
}
