package engineports

import "context"

// RateLimiter coordinates throughput toward the external generator.
type RateLimiter interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
