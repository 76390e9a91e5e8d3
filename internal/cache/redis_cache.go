package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"tokoku/backend/internal/domain"
)

type RedisStockCache struct {
	client *redis.Client
}

func NewRedisStockCache(addr string, password string, db int) *RedisStockCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisStockCache{client: client}
}

func (c *RedisStockCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisStockCache) Close() error {
	return c.client.Close()
}

func stockKey(userID, storeID string) string {
	return fmt.Sprintf("stocklist:%s:%s", userID, storeID)
}

func (c *RedisStockCache) Get(ctx context.Context, userID, storeID string) ([]domain.StockEntry, bool, error) {
	val, err := c.client.Get(ctx, stockKey(userID, storeID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entries []domain.StockEntry
	if err := json.Unmarshal([]byte(val), &entries); err != nil {
		return nil, false, err
	}
	return entries, true, nil
}

func (c *RedisStockCache) Set(ctx context.Context, userID, storeID string, entries []domain.StockEntry, ttl time.Duration) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, stockKey(userID, storeID), payload, ttl).Err()
}

func (c *RedisStockCache) Invalidate(ctx context.Context, userID, storeID string) error {
	return c.client.Del(ctx, stockKey(userID, storeID)).Err()
}
