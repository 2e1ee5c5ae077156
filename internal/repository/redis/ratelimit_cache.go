package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"clickearn/internal/client"
	"clickearn/internal/util"
)

const rateLimitPrefix = "rate_limit:"

// AbuseLimiter caps how often unauthenticated operations (code sends,
// failed logins) may be repeated for one key.
type AbuseLimiter interface {
	IncrementCounter(ctx context.Context, key string, ttl time.Duration) (int, error)
	GetCounter(ctx context.Context, key string) (int, error)
	ResetCounter(ctx context.Context, key string) error
}

// RateLimitCache implements AbuseLimiter on Redis counters with TTLs
type RateLimitCache struct {
	client *client.RedisClient
}

func NewRateLimitCache(client *client.RedisClient) *RateLimitCache {
	return &RateLimitCache{client: client}
}

var _ AbuseLimiter = (*RateLimitCache)(nil)

func (c *RateLimitCache) IncrementCounter(ctx context.Context, key string, ttl time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	count, err := c.client.IncrWithExpire(ctx, rateLimitPrefix+key, ttl)
	if err != nil {
		util.Error("Failed to increment rate limit counter",
			zap.String("key", key),
			zap.Duration("ttl", ttl),
			zap.Error(err))
		return 0, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	return int(count), nil
}

func (c *RateLimitCache) GetCounter(ctx context.Context, key string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	countStr, err := c.client.Get(ctx, rateLimitPrefix+key)
	if err != nil {
		if errors.Is(err, client.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get rate limit counter: %w", err)
	}

	count, err := strconv.Atoi(countStr)
	if err != nil {
		return 0, fmt.Errorf("invalid counter format: %w", err)
	}
	return count, nil
}

func (c *RateLimitCache) ResetCounter(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.client.Del(ctx, rateLimitPrefix+key); err != nil {
		return fmt.Errorf("failed to reset rate limit counter: %w", err)
	}
	return nil
}
