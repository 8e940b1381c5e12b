package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis persists values in Redis under a namespace prefix. The quota is
// enforced client-side per value so the queue sees the same capacity
// failure it would get from browser storage.
type Redis struct {
	client  *redis.Client
	prefix  string
	quota   int
	timeout time.Duration
}

// NewRedis creates a Redis backed store
func NewRedis(client *redis.Client, prefix string, quota int) *Redis {
	return &Redis{client: client, prefix: prefix, quota: quota, timeout: 3 * time.Second}
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

// Get 값 조회
func (r *Redis) Get(key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv: redis get %q: %w", key, err)
	}
	return data, true, nil
}

// Set 값 저장 (만료 없음)
func (r *Redis) Set(key string, value []byte) error {
	if r.quota > 0 && len(value) > r.quota {
		return ErrQuotaExceeded
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		if isOOM(err) {
			return ErrQuotaExceeded
		}
		return fmt.Errorf("kv: redis set %q: %w", key, err)
	}
	return nil
}

// Remove 값 삭제
func (r *Redis) Remove(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("kv: redis del %q: %w", key, err)
	}
	return nil
}

// isOOM detects Redis refusing writes under maxmemory
func isOOM(err error) bool {
	var rerr redis.Error
	if errors.As(err, &rerr) {
		msg := rerr.Error()
		return len(msg) >= 3 && msg[:3] == "OOM"
	}
	return false
}
