package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestRateLimiter_Unlimited(t *testing.T) {
	l := NewRateLimiter(0, 0)
	assert.Equal(t, rate.Inf, l.Limit())

	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
}

func TestRateLimiter_BackoffHonoursContext(t *testing.T) {
	l := NewRateLimiter(0, 1)
	l.Backoff(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimiter_BackoffExpires(t *testing.T) {
	l := NewRateLimiter(0, 1)
	l.Backoff(5 * time.Millisecond)

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 4*time.Millisecond)
}

func TestRateLimiter_Limited(t *testing.T) {
	l := NewRateLimiter(2.5, 1)
	assert.Equal(t, rate.Limit(2.5), l.Limit())
}
