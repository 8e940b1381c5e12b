package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisWindow keeps the submission window in a Redis sorted set so that
// several tabs or processes of one session share a single quota.
// Redis errors fall back to an in-memory window.
type RedisWindow struct {
	client   *redis.Client
	key      string
	max      int
	window   time.Duration
	clock    clockwork.Clock
	fallback *Window
	logger   zerolog.Logger
}

var _ Limiter = (*RedisWindow)(nil)

// NewRedisWindow creates a Redis backed limiter; key should identify the session
func NewRedisWindow(client *redis.Client, key string, max int, window time.Duration, clock clockwork.Clock, logger zerolog.Logger) *RedisWindow {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	fb := NewWindow(max, window, clock)
	return &RedisWindow{
		client:   client,
		key:      "ratelimit:bugreport:" + key,
		max:      fb.max,
		window:   fb.window,
		clock:    clock,
		fallback: fb,
		logger:   logger,
	}
}

// IsRateLimited 윈도우 밖 요소 제거 후 카운트
func (r *RedisWindow) IsRateLimited(ctx context.Context) bool {
	count, err := r.count(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("rate limit check failed, using in-memory window")
		return r.fallback.IsRateLimited(ctx)
	}
	return count >= r.max
}

// RecordSubmission 현재 시각 추가
func (r *RedisWindow) RecordSubmission(ctx context.Context) {
	now := r.clock.Now()
	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, r.key, "0", strconv.FormatInt(now.Add(-r.window).UnixNano(), 10))
	pipe.ZAdd(ctx, r.key, redis.Z{Score: float64(now.UnixNano()), Member: strconv.FormatInt(now.UnixNano(), 10) + "-" + uuid.NewString()})
	pipe.Expire(ctx, r.key, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("rate limit record failed, using in-memory window")
		r.fallback.RecordSubmission(ctx)
	}
}

// Remaining returns how many submissions are still allowed
func (r *RedisWindow) Remaining(ctx context.Context) int {
	count, err := r.count(ctx)
	if err != nil {
		return r.fallback.Remaining(ctx)
	}
	if n := r.max - count; n > 0 {
		return n
	}
	return 0
}

func (r *RedisWindow) count(ctx context.Context) (int, error) {
	cutoff := r.clock.Now().Add(-r.window).UnixNano()

	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, r.key, "0", strconv.FormatInt(cutoff, 10))
	card := pipe.ZCard(ctx, r.key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("ratelimit: redis window: %w", err)
	}
	return int(card.Val()), nil
}
