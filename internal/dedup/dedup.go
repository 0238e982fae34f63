// Package dedup remembers which webhook deliveries were already handled.
// WhatsApp retries deliveries, so the same status or inbound message can
// arrive more than once.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL = 24 * time.Hour

	keyPrefix = "bugalou:webhook:seen:"
)

// Filter tracks seen delivery keys in Redis.
type Filter struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewFilter(rdb *redis.Client, ttl time.Duration) *Filter {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Filter{rdb: rdb, ttl: ttl}
}

// Connect parses a redis:// URL and checks the server answers.
func Connect(ctx context.Context, url string, ttl time.Duration) (*Filter, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewFilter(rdb, ttl), nil
}

// IsNew reports whether key has not been seen before and marks it as seen
// in the same SETNX call.
func (f *Filter) IsNew(ctx context.Context, key string) (bool, error) {
	set, err := f.rdb.SetNX(ctx, keyPrefix+key, 1, f.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup SETNX: %w", err)
	}
	return set, nil
}

// Forget removes key, so the next IsNew for it reports true again.
func (f *Filter) Forget(ctx context.Context, key string) error {
	if err := f.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("dedup DEL: %w", err)
	}
	return nil
}

func (f *Filter) Close() error {
	return f.rdb.Close()
}
