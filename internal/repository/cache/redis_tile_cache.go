package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tile-microservice/internal/domain/repository"
)

const scanBatch = 500

type redisTileCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisTileCache - кэш тайлов в Redis
func NewRedisTileCache(r *Redis) repository.TileCache {
	return &redisTileCache{
		client: r.Client(),
		logger: r.logger,
	}
}

func (c *redisTileCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrCacheMiss
	}
	if err != nil {
		c.logger.Error("Failed to get tile from cache", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("cache get error: %w", err)
	}

	c.logger.Debug("Cache hit", zap.String("key", key))
	return val, nil
}

func (c *redisTileCache) Set(ctx context.Context, key string, tile []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, tile, ttl).Err(); err != nil {
		c.logger.Error("Failed to set tile cache", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

func (c *redisTileCache) InvalidateLayer(ctx context.Context, layerID int64) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	match := layerPrefix(layerID) + "*"

	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return removed, fmt.Errorf("cache scan error: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("cache delete error: %w", err)
			}
			removed += int(n)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	c.logger.Info("Layer tiles invalidated", zap.Int64("layer_id", layerID), zap.Int("removed", removed))
	return removed, nil
}
