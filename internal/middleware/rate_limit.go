package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/damoang/angple-bugreport/internal/common"
	"github.com/damoang/angple-bugreport/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// 로컬 fallback 윈도우 수 상한, 넘으면 빈 윈도우 정리
const maxLocalKeys = 10000

// RateLimitConfig configures the rate limiter
type RateLimitConfig struct {
	Requests  int
	Window    time.Duration
	KeyPrefix string
	Message   string
	Clock     clockwork.Clock
}

// DefaultRateLimitConfig returns default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Requests:  30,
		Window:    time.Minute,
		KeyPrefix: "bugreport:ratelimit:",
		Message:   "요청이 너무 많습니다. 잠시 후 다시 시도해주세요.",
	}
}

// rateLimitScript is an atomic Lua script for sliding window rate limiting
var rateLimitScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local window_start = now - window

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, now .. ':' .. math.random(1000000))
    redis.call('EXPIRE', key, math.ceil(window / 1000) + 1)
    return {1, limit - count - 1, 0}
else
    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    local reset_at = 0
    if #oldest >= 2 then
        reset_at = tonumber(oldest[2]) + window
    end
    return {0, 0, reset_at}
end
`)

// RateLimiter limits requests per client IP over a sliding window. Redis is
// shared across instances; when it is absent or failing, a per-process
// window takes over.
type RateLimiter struct {
	redis *redis.Client
	cfg   RateLimitConfig
	log   zerolog.Logger

	mu    sync.Mutex
	local map[string]*ratelimit.Window
}

// NewRateLimiter creates a limiter; redisClient may be nil
func NewRateLimiter(redisClient *redis.Client, cfg RateLimitConfig, log zerolog.Logger) *RateLimiter {
	def := DefaultRateLimitConfig()
	if cfg.Requests <= 0 {
		cfg.Requests = def.Requests
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = def.KeyPrefix
	}
	if cfg.Message == "" {
		cfg.Message = def.Message
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &RateLimiter{
		redis: redisClient,
		cfg:   cfg,
		log:   log,
		local: make(map[string]*ratelimit.Window),
	}
}

// Handler returns the gin middleware
func (l *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		now := l.cfg.Clock.Now()
		allowed, remaining, resetAt := l.take(c.Request.Context(), c.ClientIP(), now)

		c.Header("X-RateLimit-Limit", strconv.Itoa(l.cfg.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			retryAfter := int64(resetAt.Sub(now) / time.Second)
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", resetAt.Unix()))
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			common.V2ErrorResponse(c, http.StatusTooManyRequests, l.cfg.Message, nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

func (l *RateLimiter) take(ctx context.Context, ip string, now time.Time) (bool, int, time.Time) {
	if l.redis != nil {
		windowMs := l.cfg.Window.Milliseconds()
		result, err := rateLimitScript.Run(ctx, l.redis, []string{l.cfg.KeyPrefix + ip},
			l.cfg.Requests, windowMs, now.UnixMilli(),
		).Int64Slice()
		if err == nil && len(result) == 3 {
			return result[0] == 1, int(result[1]), time.UnixMilli(result[2])
		}
		l.log.Warn().Err(err).Str("client_ip", ip).Msg("rate limit redis failed, using local window")
	}
	return l.localWindow(ip).Take(ctx)
}

func (l *RateLimiter) localWindow(ip string) *ratelimit.Window {
	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok := l.local[ip]; ok {
		return w
	}
	if len(l.local) >= maxLocalKeys {
		for key, w := range l.local {
			if w.Remaining(context.Background()) == l.cfg.Requests {
				delete(l.local, key)
			}
		}
	}
	w := ratelimit.NewWindow(l.cfg.Requests, l.cfg.Window, l.cfg.Clock)
	l.local[ip] = w
	return w
}
