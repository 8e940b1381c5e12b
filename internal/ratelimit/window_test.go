package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow_BlocksAfterMax(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	w := NewWindow(DefaultMax, DefaultWindow, clock)

	for i := 0; i < DefaultMax; i++ {
		require.False(t, w.IsRateLimited(ctx), "submission %d should pass", i+1)
		w.RecordSubmission(ctx)
		clock.Advance(10 * time.Second)
	}

	assert.True(t, w.IsRateLimited(ctx), "6th submission inside 5 minutes is rejected")
	assert.Equal(t, 0, w.Remaining(ctx))
}

func TestWindow_SlidesOpen(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	w := NewWindow(2, time.Minute, clock)

	w.RecordSubmission(ctx)
	clock.Advance(30 * time.Second)
	w.RecordSubmission(ctx)
	assert.True(t, w.IsRateLimited(ctx))

	// first stamp leaves the window
	clock.Advance(31 * time.Second)
	assert.False(t, w.IsRateLimited(ctx))
	assert.Equal(t, 1, w.Remaining(ctx))
}

func TestWindow_ChecksDoNotConsumeQuota(t *testing.T) {
	ctx := context.Background()
	w := NewWindow(1, time.Minute, clockwork.NewFakeClock())

	for i := 0; i < 10; i++ {
		assert.False(t, w.IsRateLimited(ctx))
	}
	assert.Equal(t, 1, w.Remaining(ctx))
}

func TestWindow_Take(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	start := clock.Now()
	w := NewWindow(2, time.Minute, clock)

	ok, remaining, reset := w.Take(ctx)
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)
	assert.Equal(t, start.Add(time.Minute), reset)

	clock.Advance(10 * time.Second)
	ok, remaining, _ = w.Take(ctx)
	assert.True(t, ok)
	assert.Equal(t, 0, remaining)

	ok, _, reset = w.Take(ctx)
	assert.False(t, ok)
	assert.Equal(t, start.Add(time.Minute), reset)

	clock.Advance(51 * time.Second)
	ok, _, _ = w.Take(ctx)
	assert.True(t, ok)
}

func TestWindow_Defaults(t *testing.T) {
	w := NewWindow(0, 0, nil)
	assert.Equal(t, DefaultMax, w.max)
	assert.Equal(t, DefaultWindow, w.window)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisWindow_SharedAcrossInstances(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	clock := clockwork.NewFakeClock()

	tabA := NewRedisWindow(client, "session-1", 3, 5*time.Minute, clock, zerolog.Nop())
	tabB := NewRedisWindow(client, "session-1", 3, 5*time.Minute, clock, zerolog.Nop())

	tabA.RecordSubmission(ctx)
	tabB.RecordSubmission(ctx)
	assert.False(t, tabA.IsRateLimited(ctx))
	assert.Equal(t, 1, tabB.Remaining(ctx))

	tabA.RecordSubmission(ctx)
	assert.True(t, tabB.IsRateLimited(ctx))

	other := NewRedisWindow(client, "session-2", 3, 5*time.Minute, clock, zerolog.Nop())
	assert.False(t, other.IsRateLimited(ctx))
}

func TestRedisWindow_PrunesExpired(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	clock := clockwork.NewFakeClock()
	w := NewRedisWindow(client, "s", 1, time.Minute, clock, zerolog.Nop())

	w.RecordSubmission(ctx)
	assert.True(t, w.IsRateLimited(ctx))

	clock.Advance(61 * time.Second)
	assert.False(t, w.IsRateLimited(ctx))
}

func TestRedisWindow_FallsBackWhenRedisDown(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	clock := clockwork.NewFakeClock()
	w := NewRedisWindow(client, "s", 1, time.Minute, clock, zerolog.Nop())

	mr.Close()

	w.RecordSubmission(ctx)
	assert.True(t, w.IsRateLimited(ctx), "in-memory fallback still enforces the cap")
}
