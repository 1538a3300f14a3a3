// Package redis 提供 Redis 缓存实现
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var cacheTracer = otel.Tracer("redis.cache")

// Cache 向量缓存服务
type Cache struct {
	client *Client
}

// NewCache 创建缓存服务
func NewCache(client *Client) *Cache {
	return &Cache{
		client: client,
	}
}

// GetVector 读取向量，未命中返回 ok=false
func (c *Cache) GetVector(ctx context.Context, key string) ([]float64, bool, error) {
	ctx, span := cacheTracer.Start(ctx, "cache.GetVector",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	val, err := c.client.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			span.SetAttributes(attribute.Bool("cache.hit", false))
			return nil, false, nil
		}
		span.RecordError(err)
		return nil, false, err
	}

	var vec []float64
	if err := json.Unmarshal(val, &vec); err != nil {
		span.RecordError(err)
		return nil, false, fmt.Errorf("failed to unmarshal vector: %w", err)
	}

	span.SetAttributes(attribute.Bool("cache.hit", true))
	return vec, true, nil
}

// SetVector 写入向量，ttl<=0 表示不过期
func (c *Cache) SetVector(ctx context.Context, key string, vec []float64, ttl time.Duration) error {
	ctx, span := cacheTracer.Start(ctx, "cache.SetVector",
		trace.WithAttributes(
			attribute.String("cache.key", key),
			attribute.Int("cache.dim", len(vec)),
			attribute.Int64("cache.ttl_ms", ttl.Milliseconds()),
		))
	defer span.End()

	bytes, err := json.Marshal(vec)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to marshal vector: %w", err)
	}

	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.rdb.Set(ctx, key, bytes, ttl).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// InvalidatePrefix 删除指定前缀下的全部键，返回删除数量
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) (int, error) {
	pattern := prefix + "*"
	ctx, span := cacheTracer.Start(ctx, "cache.InvalidatePrefix",
		trace.WithAttributes(attribute.String("cache.pattern", pattern)))
	defer span.End()

	iter := c.client.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		span.RecordError(err)
		return 0, err
	}

	if len(keys) == 0 {
		return 0, nil
	}
	span.SetAttributes(attribute.Int("cache.invalidated_count", len(keys)))
	if err := c.client.rdb.Del(ctx, keys...).Err(); err != nil {
		span.RecordError(err)
		return 0, err
	}
	return len(keys), nil
}
