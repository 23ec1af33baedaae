package cache

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	c := NewWithClock(10*time.Second, clock)

	require.NoError(t, c.Set(ctx, "k", []byte("v")))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	clock.Advance(11 * time.Second)

	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "entry should have expired")
}

func TestCacheDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	c := NewWithClock(time.Minute, clockwork.NewFakeClock())

	require.NoError(t, c.Set(ctx, "a", []byte("1")))
	require.NoError(t, c.Set(ctx, "b", []byte("2")))

	require.NoError(t, c.Delete(ctx, "a"))
	_, ok, _ := c.Get(ctx, "a")
	assert.False(t, ok)

	c.Clear()
	_, ok, _ = c.Get(ctx, "b")
	assert.False(t, ok)
}

func TestNewDefaultsNonPositiveTTL(t *testing.T) {
	c := NewWithClock(0, clockwork.NewFakeClock())
	assert.Equal(t, 5*time.Second, c.ttl)
}

func TestIncrCountsAndNeverExpires(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	c := NewWithClock(time.Second, clock)

	n, err := c.Incr(ctx, "ver")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = c.Incr(ctx, "ver")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	clock.Advance(time.Hour)

	raw, ok, err := c.Get(ctx, "ver")
	require.NoError(t, err)
	require.True(t, ok, "counter should not expire")
	assert.Equal(t, "2", string(raw))
}

func TestIncrRejectsNonNumericValue(t *testing.T) {
	ctx := context.Background()
	c := NewWithClock(time.Minute, clockwork.NewFakeClock())

	require.NoError(t, c.Set(ctx, "ver", []byte("abc")))

	_, err := c.Incr(ctx, "ver")
	assert.Error(t, err)
}
