package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T) (Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return Limiter{Client: client, Prefix: "rl:"}, mr
}

func TestLimiterAllowSlidingWindow(t *testing.T) {
	limiter, mr := newLimiter(t)

	ctx := context.Background()
	window := 2 * time.Second
	max := 2
	key := "custsearch:staff:7"

	for i := 0; i < max; i++ {
		allowed, remaining, _, err := limiter.Allow(ctx, key, window, max)
		require.NoError(t, err)
		require.True(t, allowed, "request %d should be allowed", i)
		require.Equal(t, max-(i+1), remaining)
	}

	allowed, remaining, _, err := limiter.Allow(ctx, key, window, max)
	require.NoError(t, err)
	require.False(t, allowed, "request beyond the window budget must be rejected")
	require.Zero(t, remaining)

	mr.FastForward(window)

	allowed, _, _, err = limiter.Allow(ctx, key, window, max)
	require.NoError(t, err)
	require.True(t, allowed, "window expiry frees the budget")
}

func TestLimiterUnconfiguredAlwaysAllows(t *testing.T) {
	allowed, _, _, err := Limiter{}.Allow(context.Background(), "any", time.Second, 1)
	require.NoError(t, err)
	require.True(t, allowed)
}
