package adapters

import (
	"context"
	"errors"
	"sync"
	"time"

	ports "github.com/hexlane/convomart/cmart/engine/ports"
)

// ErrRateLimitExceeded is returned when no token is available for a key.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// TokenBucket is a per-key token bucket rate limiter. Acquire consumes a
// token immediately; the returned release puts it back, so the bucket bounds
// in-flight requests as well as arrival rate.
type TokenBucket struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	capacity   int
	refillRate time.Duration
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

func NewTokenBucket(capacity int, refillRate time.Duration) *TokenBucket {
	return &TokenBucket{
		buckets:    make(map[string]*bucket),
		capacity:   capacity,
		refillRate: refillRate,
	}
}

func (tb *TokenBucket) Acquire(ctx context.Context, key string) (func(), error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: tb.capacity, lastRefill: time.Now()}
		tb.buckets[key] = b
	}

	if refill := int(time.Since(b.lastRefill) / tb.refillRate); refill > 0 {
		b.tokens = minInt(b.tokens+refill, tb.capacity)
		b.lastRefill = b.lastRefill.Add(time.Duration(refill) * tb.refillRate)
	}

	if b.tokens <= 0 {
		return nil, ErrRateLimitExceeded
	}
	b.tokens--

	release := func() {
		tb.mu.Lock()
		defer tb.mu.Unlock()
		b.tokens = minInt(b.tokens+1, tb.capacity)
	}
	return release, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

var _ ports.RateLimiter = (*TokenBucket)(nil)
