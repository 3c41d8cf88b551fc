package cache

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/tile-microservice/internal/domain/repository"
)

// memoryTileCache - LRU с общим TTL. ttl в Set игнорируется: срок задан при создании.
type memoryTileCache struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemoryTileCache - кэш тайлов в памяти процесса
func NewMemoryTileCache(size int, ttl time.Duration) repository.TileCache {
	return &memoryTileCache{
		lru: expirable.NewLRU[string, []byte](size, nil, ttl),
	}
}

func (c *memoryTileCache) Get(_ context.Context, key string) ([]byte, error) {
	tile, ok := c.lru.Get(key)
	if !ok {
		return nil, repository.ErrCacheMiss
	}
	return tile, nil
}

func (c *memoryTileCache) Set(_ context.Context, key string, tile []byte, _ time.Duration) error {
	c.lru.Add(key, tile)
	return nil
}

func (c *memoryTileCache) InvalidateLayer(_ context.Context, layerID int64) (int, error) {
	prefix := layerPrefix(layerID)
	removed := 0
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) && c.lru.Remove(key) {
			removed++
		}
	}
	return removed, nil
}

// noopTileCache - кэш выключен, каждый запрос выполняется заново
type noopTileCache struct{}

func NewNoopTileCache() repository.TileCache {
	return noopTileCache{}
}

func (noopTileCache) Get(context.Context, string) ([]byte, error) {
	return nil, repository.ErrCacheMiss
}

func (noopTileCache) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (noopTileCache) InvalidateLayer(context.Context, int64) (int, error) {
	return 0, nil
}
