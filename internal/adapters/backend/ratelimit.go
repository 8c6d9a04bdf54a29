package backend

import (
	"context"

	"golang.org/x/time/rate"

	"athena/internal/domain/model"
	"athena/pkg/errors"
)

// RateLimiter bounds the request rate toward a single backend runtime.
type RateLimiter interface {
	// Wait blocks until a request may proceed or the context is cancelled.
	Wait(ctx context.Context) error

	// Allow checks if a request may proceed without blocking.
	Allow() bool

	// Limit returns the current limit in requests per minute.
	Limit() float64
}

// TokenBucketLimiter is an in-process token bucket limiter, suitable for
// single-replica deployments.
type TokenBucketLimiter struct {
	limiter *rate.Limiter
	backend model.BackendKind
}

// NewTokenBucketLimiter creates a limiter allowing reqPerMinute requests
// with a burst of roughly 10% of the per-minute budget.
func NewTokenBucketLimiter(backend model.BackendKind, reqPerMinute int) *TokenBucketLimiter {
	burst := reqPerMinute / 10
	if burst < 1 {
		burst = 1
	}

	return &TokenBucketLimiter{
		limiter: rate.NewLimiter(rate.Limit(float64(reqPerMinute)/60.0), burst),
		backend: backend,
	}
}

// Wait blocks until a token is available or the context is cancelled.
func (l *TokenBucketLimiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return errors.Wrapf(err, "rate limiter wait cancelled for backend %s", l.backend)
	}
	return nil
}

// Allow checks if a request can proceed and consumes a token if available.
func (l *TokenBucketLimiter) Allow() bool {
	return l.limiter.Allow()
}

// Limit returns the current rate limit in requests per minute.
func (l *TokenBucketLimiter) Limit() float64 {
	return float64(l.limiter.Limit()) * 60.0
}

// NoOpLimiter never blocks; used when rate limiting is disabled and in tests.
type NoOpLimiter struct{}

// NewNoOpLimiter creates a no-op rate limiter.
func NewNoOpLimiter() *NoOpLimiter {
	return &NoOpLimiter{}
}

// Wait always returns immediately without error.
func (l *NoOpLimiter) Wait(ctx context.Context) error {
	return nil
}

// Allow always returns true.
func (l *NoOpLimiter) Allow() bool {
	return true
}

// Limit returns -1 to indicate unlimited.
func (l *NoOpLimiter) Limit() float64 {
	return -1
}
