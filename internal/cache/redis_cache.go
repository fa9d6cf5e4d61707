package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"salesadmin/backend/internal/domain"
)

type RedisRefDataCache struct {
	client *redis.Client
}

func NewRedisRefDataCache(addr string, password string, db int) *RedisRefDataCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisRefDataCache{client: client}
}

func (c *RedisRefDataCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisRefDataCache) Close() error {
	return c.client.Close()
}

func (c *RedisRefDataCache) Get(ctx context.Context, key string) (*domain.ReferenceData, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var ref domain.ReferenceData
	if err := json.Unmarshal([]byte(val), &ref); err != nil {
		return nil, false, err
	}
	return &ref, true, nil
}

func (c *RedisRefDataCache) Set(ctx context.Context, key string, value *domain.ReferenceData, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}
