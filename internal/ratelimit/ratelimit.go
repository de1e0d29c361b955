package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces outbound retailer traffic. Wait blocks until the next
// request is allowed or the context ends.
type RateLimiter interface {
	Wait(ctx context.Context) error
	SetDelay(min, max time.Duration)
}

// SimpleRateLimiter enforces a jittered minimum gap between requests. The
// jitter keeps request timing from forming a detectable cadence.
type SimpleRateLimiter struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
	mu         sync.Mutex
	jitter     bool
}

func NewSimpleRateLimiter(minDelay, maxDelay time.Duration) *SimpleRateLimiter {
	return &SimpleRateLimiter{
		minDelay: minDelay,
		maxDelay: maxDelay,
		jitter:   true,
	}
}

func (r *SimpleRateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	elapsed := time.Since(r.lastAction)
	delay := r.calculateDelay()

	if elapsed < delay {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay - elapsed):
		}
	}

	r.lastAction = time.Now()
	return nil
}

func (r *SimpleRateLimiter) SetDelay(min, max time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.minDelay = min
	r.maxDelay = max
}

func (r *SimpleRateLimiter) calculateDelay() time.Duration {
	if !r.jitter || r.minDelay >= r.maxDelay {
		return r.minDelay
	}

	delta := r.maxDelay - r.minDelay
	return r.minDelay + time.Duration(rand.Int63n(int64(delta)))
}

// AdaptiveRateLimiter widens delays after consecutive failures and slowly
// tightens them again while requests keep succeeding.
type AdaptiveRateLimiter struct {
	*SimpleRateLimiter
	errorCount    int
	successCount  int
	maxErrorCount int
	backoffFactor float64
}

func NewAdaptiveRateLimiter(minDelay, maxDelay time.Duration) *AdaptiveRateLimiter {
	return &AdaptiveRateLimiter{
		SimpleRateLimiter: NewSimpleRateLimiter(minDelay, maxDelay),
		maxErrorCount:     3,
		backoffFactor:     1.5,
	}
}

func (a *AdaptiveRateLimiter) RecordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.successCount++
	a.errorCount = 0

	if a.successCount > 5 {
		newMin := time.Duration(float64(a.minDelay) * 0.9)
		if newMin < 1*time.Second {
			newMin = 1 * time.Second
		}
		a.minDelay = newMin
		a.successCount = 0
	}
}

func (a *AdaptiveRateLimiter) RecordError() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.errorCount++
	a.successCount = 0

	if a.errorCount >= a.maxErrorCount {
		newMin := time.Duration(float64(a.minDelay) * a.backoffFactor)
		newMax := time.Duration(float64(a.maxDelay) * a.backoffFactor)

		if newMin > 60*time.Second {
			newMin = 60 * time.Second
		}
		if newMax > 120*time.Second {
			newMax = 120 * time.Second
		}

		a.minDelay = newMin
		a.maxDelay = newMax
		a.errorCount = 0
	}
}

// BucketRateLimiter wraps a token bucket for bursty clients such as the
// structured API channels, where a strict per-request gap is too slow.
type BucketRateLimiter struct {
	limiter *rate.Limiter
}

// NewBucketRateLimiter allows burst requests immediately, refilling at one
// token per refill interval.
func NewBucketRateLimiter(burst int, refill time.Duration) *BucketRateLimiter {
	return &BucketRateLimiter{
		limiter: rate.NewLimiter(rate.Every(refill), burst),
	}
}

func (b *BucketRateLimiter) Wait(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}

// SetDelay reinterprets min as the refill interval. Burst stays unchanged.
func (b *BucketRateLimiter) SetDelay(min, _ time.Duration) {
	b.limiter.SetLimit(rate.Every(min))
}

// Allow reports whether a request may proceed right now without waiting.
func (b *BucketRateLimiter) Allow() bool {
	return b.limiter.Allow()
}

// Registry hands out one adaptive limiter per retailer so a block on one
// site never slows the others.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*AdaptiveRateLimiter
	minDelay time.Duration
	maxDelay time.Duration
}

func NewRegistry(minDelay, maxDelay time.Duration) *Registry {
	return &Registry{
		limiters: make(map[string]*AdaptiveRateLimiter),
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

func (r *Registry) For(name string) *AdaptiveRateLimiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	limiter, ok := r.limiters[name]
	if !ok {
		limiter = NewAdaptiveRateLimiter(r.minDelay, r.maxDelay)
		r.limiters[name] = limiter
	}
	return limiter
}
