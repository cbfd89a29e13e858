// Package ratelimiter provides token bucket rate limiting for store-bound
// operations.
//
// The upload pipeline uses it to throttle blob writes so a large batch does
// not hammer the backing object store; tokens replenish at a sustained rate
// while the burst capacity absorbs short spikes.
package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter wraps golang.org/x/time/rate with the two entry points the
// pipeline needs: a non-blocking check and a context-aware wait.
//
// Thread safety: all methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter allowing requestsPerSecond sustained with the
// given burst capacity.
//
// requestsPerSecond = 0 disables limiting (an effectively unlimited rate).
// Burst should typically be >= requestsPerSecond; a zero burst with a
// non-zero rate rejects everything, so it is raised to the rate.
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		// Effectively unlimited; rate.Inf has edge cases with Wait
		requestsPerSecond = 1_000_000_000
		burst = requestsPerSecond
	}
	if burst == 0 {
		burst = requestsPerSecond
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Allow reports whether a request may proceed right now, consuming a token
// when it may. Use this to reject over-limit work instead of queueing it.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or ctx is cancelled. This is the
// throttling path: over-limit work waits its turn rather than failing.
//
// Returns the context error when cancelled before a token was acquired.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Tokens returns the number of tokens currently available. Monitoring only;
// the value can change immediately after the call.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
