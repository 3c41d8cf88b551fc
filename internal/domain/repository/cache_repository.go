package repository

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss - ключа нет в кэше
var ErrCacheMiss = errors.New("cache: miss")

// TileCache - кэш готовых MVT тайлов
type TileCache interface {
	// Get возвращает ErrCacheMiss, если тайла нет
	Get(ctx context.Context, key string) ([]byte, error)

	Set(ctx context.Context, key string, tile []byte, ttl time.Duration) error

	// InvalidateLayer удаляет все тайлы слоя и возвращает число удаленных ключей
	InvalidateLayer(ctx context.Context, layerID int64) (int, error)
}
