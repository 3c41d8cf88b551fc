// Package bootstrap собирает общие для бинарников зависимости из конфигурации.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tile-microservice/internal/config"
	"github.com/tile-microservice/internal/domain/repository"
	"github.com/tile-microservice/internal/repository/cache"
	"github.com/tile-microservice/internal/repository/remote"
	"github.com/tile-microservice/internal/repository/sqlite"
	"github.com/tile-microservice/internal/repository/yamlcatalog"
)

// Драйверы хранилища метаданных
const (
	MetadataSQLite = "sqlite"
	MetadataYAML   = "yaml"
)

// Бэкенды кэша тайлов
const (
	CacheRedis  = "redis"
	CacheMemory = "memory"
)

// HealthFunc - проверка живости зависимости
type HealthFunc func(ctx context.Context) error

// OpenMetadata открывает хранилище слоев, подключений и окружений
func OpenMetadata(cfg *config.MetadataConfig, logger *zap.Logger) (repository.MetadataRepository, HealthFunc, error) {
	switch cfg.Driver {
	case MetadataSQLite:
		db, err := sqlite.New(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewMetadataRepository(db), db.Health, nil

	case MetadataYAML:
		catalog, err := yamlcatalog.Load(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Metadata catalog loaded", zap.String("path", cfg.Path))
		return catalog, func(context.Context) error { return nil }, nil
	}

	return nil, nil, fmt.Errorf("unknown metadata driver %q", cfg.Driver)
}

// NewRegistry создает реестр пулов к удаленным базам
func NewRegistry(cfg *config.Config, source repository.ConnectionSource, logger *zap.Logger) *remote.Registry {
	return remote.NewRegistry(source, remote.NewPgxPoolFactory(), remote.Options{
		Pool: remote.PoolOptions{
			MaxConns:       cfg.Pool.MaxConns,
			MinConns:       cfg.Pool.MinConns,
			ConnectTimeout: cfg.Pool.ConnectTimeout,
			AcquireTimeout: cfg.Pool.AcquireTimeout,
		},
		Requirements: remote.Requirements{
			MinPostgres: cfg.Capability.MinPostgres,
			MinPostGIS:  cfg.Capability.MinPostGIS,
		},
	}, logger)
}

// NewTileCache выбирает бэкенд кэша тайлов. Redis клиент возвращается, если он был открыт.
// Выключенный кэш - noop: каждый запрос тайла выполняется на удаленной базе.
func NewTileCache(cfg *config.Config, logger *zap.Logger) (repository.TileCache, *cache.Redis, error) {
	if !cfg.Cache.Enabled {
		logger.Info("Tile cache disabled")
		return cache.NewNoopTileCache(), nil, nil
	}

	switch cfg.Cache.Backend {
	case CacheRedis:
		client, err := cache.NewRedis(&cfg.Redis, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Tile cache: redis", zap.Duration("ttl", cfg.Cache.TTL))
		return cache.NewRedisTileCache(client), client, nil

	case CacheMemory:
		logger.Info("Tile cache: memory",
			zap.Int("size", cfg.Cache.Size),
			zap.Duration("ttl", cfg.Cache.TTL))
		return cache.NewMemoryTileCache(cfg.Cache.Size, cfg.Cache.TTL), nil, nil
	}

	return nil, nil, fmt.Errorf("unknown tile cache backend %q", cfg.Cache.Backend)
}
