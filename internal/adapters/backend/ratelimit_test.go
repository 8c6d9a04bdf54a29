package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"athena/internal/domain/model"
)

func TestTokenBucketLimiterBurst(t *testing.T) {
	// 600 rpm gives a burst of 60 tokens.
	limiter := NewTokenBucketLimiter(model.KindGeneral, 600)

	allowed := 0
	for i := 0; i < 100; i++ {
		if limiter.Allow() {
			allowed++
		}
	}
	assert.Equal(t, 60, allowed)
}

func TestTokenBucketLimiterMinimumBurst(t *testing.T) {
	limiter := NewTokenBucketLimiter(model.KindVision, 5)

	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow(), "burst floor is a single token")
}

func TestTokenBucketLimiterLimit(t *testing.T) {
	limiter := NewTokenBucketLimiter(model.KindGeneral, 120)
	assert.InDelta(t, 120.0, limiter.Limit(), 1e-9)
}

func TestTokenBucketLimiterWaitCancelled(t *testing.T) {
	limiter := NewTokenBucketLimiter(model.KindGeneral, 5)
	require.True(t, limiter.Allow(), "drain the only token")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := limiter.Wait(ctx)
	require.Error(t, err)
}

func TestNoOpLimiter(t *testing.T) {
	limiter := NewNoOpLimiter()

	assert.NoError(t, limiter.Wait(context.Background()))
	assert.True(t, limiter.Allow())
	assert.Equal(t, -1.0, limiter.Limit())
}
