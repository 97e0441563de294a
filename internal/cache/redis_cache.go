package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"pondokpos/backend/internal/domain"
)

type RedisStockSummaryCache struct {
	client *redis.Client
}

func NewRedisStockSummaryCache(addr string, password string, db int) *RedisStockSummaryCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisStockSummaryCache{client: client}
}

func (c *RedisStockSummaryCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisStockSummaryCache) Close() error {
	return c.client.Close()
}

func (c *RedisStockSummaryCache) Get(ctx context.Context, key string) (*domain.LowStockReport, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var report domain.LowStockReport
	if err := json.Unmarshal([]byte(val), &report); err != nil {
		return nil, false, err
	}
	return &report, true, nil
}

func (c *RedisStockSummaryCache) Set(ctx context.Context, key string, value *domain.LowStockReport, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

func (c *RedisStockSummaryCache) Invalidate(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}
