package llm

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter controls the frequency of requests to the LLM provider.
type RateLimiter struct {
	limiter *rate.Limiter

	// additional backoff after a provider 429
	backoffUntil time.Time
	mu           sync.Mutex
}

// NewRateLimiter creates a rate limiter.
// rps - requests per second, burst - allowed burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// DefaultRateLimiter returns a limiter with conservative settings for
// hosted providers (1 request per second, no burst).
func DefaultRateLimiter() *RateLimiter {
	return NewRateLimiter(1.0, 1)
}

// Wait blocks until the next request is allowed.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	waitUntil := r.backoffUntil
	r.mu.Unlock()

	if time.Now().Before(waitUntil) {
		select {
		case <-time.After(time.Until(waitUntil)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return r.limiter.Wait(ctx)
}

// SetBackoff sets a pause after a rate-limit error from the provider.
func (r *RateLimiter) SetBackoff(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.backoffUntil = time.Now().Add(d)
}
