package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketLimiter_ExhaustsAndRefills(t *testing.T) {
	l := NewTokenBucketLimiter(2, 20*time.Millisecond, 0, 0)
	defer l.Close()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "burst exhausted")

	time.Sleep(30 * time.Millisecond)
	ok, err = l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok, "a token refills after the interval")
}

func TestTokenBucketLimiter_ResetRestoresBurst(t *testing.T) {
	l := NewTokenBucketLimiter(1, time.Minute, 0, 0)
	defer l.Close()
	ctx := context.Background()

	ok, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	ok, _ = l.Allow(ctx, "k")
	require.False(t, ok)

	require.NoError(t, l.Reset(ctx, "k"))
	ok, _ = l.Allow(ctx, "k")
	assert.True(t, ok)
}

func TestTokenBucketLimiter_SweepDropsIdleKeys(t *testing.T) {
	l := NewTokenBucketLimiter(1, time.Minute, time.Minute, 10*time.Millisecond)
	defer l.Close()

	_, err := l.Allow(context.Background(), "k")
	require.NoError(t, err)

	l.sweep(time.Now().Add(time.Second))

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.entries)
}

func TestIPRateLimiter_KeysPerIP(t *testing.T) {
	l := NewIPRateLimiter(1, 0, 0)
	ctx := context.Background()

	ok, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = l.Allow(ctx, "10.0.0.1")
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "10.0.0.2")
	assert.True(t, ok, "buckets are per client")
}
