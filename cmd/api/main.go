package main

// @title Tile Microservice API
// @version 1.0.0
// @description Динамические векторные тайлы (MVT) из PostGIS баз пользователя.
// @description
// @description Основные возможности:
// @description - MVT тайлы слоя по SQL запросу с переменными окружения
// @description - Выборки строк по прямоугольнику и по _qid
// @description - Колонки запроса, частоты значений и гистограммы
// @description - Выгрузка в GeoJSON, CSV и Shapefile

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8090
// @BasePath /
// @schemes http https

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/tile-microservice/docs"
	"github.com/tile-microservice/internal/bootstrap"
	"github.com/tile-microservice/internal/config"
	httpDelivery "github.com/tile-microservice/internal/delivery/http"
	"github.com/tile-microservice/internal/delivery/http/handler"
	"github.com/tile-microservice/internal/metrics"
	"github.com/tile-microservice/internal/pkg/logger"
	"github.com/tile-microservice/internal/repository/cache"
	redisRepo "github.com/tile-microservice/internal/repository/redis"
	"github.com/tile-microservice/internal/usecase"
	"github.com/tile-microservice/internal/worker"
	"github.com/tile-microservice/internal/worker/invalidation"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level, "tile-api")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Tile Microservice")
	log.Info("Configuration loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("server_addr", cfg.GetServerAddr()),
		zap.String("metadata_driver", cfg.Metadata.Driver),
		zap.Bool("tile_cache", cfg.Cache.Enabled),
	)

	// 3. Open metadata store (layers, connections, environments)
	metadata, metadataHealth, err := bootstrap.OpenMetadata(&cfg.Metadata, log)
	if err != nil {
		log.Fatal("Failed to open metadata store", zap.Error(err))
	}
	defer func() {
		if err := metadata.Close(); err != nil {
			log.Error("Failed to close metadata store", zap.Error(err))
		}
	}()

	// 4. Remote connection registry
	registry := bootstrap.NewRegistry(cfg, metadata, log)
	defer registry.Close()

	// 5. Tile cache
	tileCache, cacheRedis, err := bootstrap.NewTileCache(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tile cache", zap.Error(err))
	}
	if cacheRedis != nil {
		defer func() {
			if err := cacheRedis.Close(); err != nil {
				log.Error("Failed to close Redis connection", zap.Error(err))
			}
		}()
	}

	// 6. Metrics
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		m.RegisterPoolGauge(registry.Len)
	}

	// 7. Initialize Use Cases
	tileUC := usecase.NewTileUseCase(metadata, registry, tileCache, m, log, cfg.Cache.TTL)
	recordUC := usecase.NewRecordUseCase(metadata, registry, log)
	exportUC := usecase.NewExportUseCase(registry, log)
	connectionUC := usecase.NewConnectionUseCase(registry, log)

	log.Info("Use cases initialized")

	// 8. Initialize HTTP Handlers
	checks := map[string]handler.HealthCheck{
		"metadata": handler.HealthCheck(metadataHealth),
	}
	if cacheRedis != nil {
		checks["redis"] = cacheRedis.Health
	}

	handlers := httpDelivery.Handlers{
		Tile:       handler.NewTileHandler(tileUC, cfg.Server.TileCacheControl, log),
		Record:     handler.NewRecordHandler(recordUC, exportUC, log),
		Connection: handler.NewConnectionHandler(connectionUC, log),
		Health:     handler.NewHealthHandler(checks),
	}

	// 9. Invalidation worker: пулы живут в этом процессе, поэтому события слушает он сам
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var workerManager *worker.WorkerManager
	if cfg.Worker.Enabled {
		streamRedis := cacheRedis
		if streamRedis == nil {
			streamRedis, err = cache.NewRedis(&cfg.Redis, log)
			if err != nil {
				log.Fatal("Failed to connect to Redis", zap.Error(err))
			}
			defer streamRedis.Close()
		}

		streamRepo := redisRepo.NewStreamRepository(streamRedis.Client(), cfg.Worker.StreamReadTimeout, log)
		invalidationWorker := invalidation.NewWorker(
			streamRepo,
			registry,
			tileCache,
			replicaGroup(cfg.Worker.ConsumerGroup),
			cfg.Worker.BatchSize,
			log,
		)

		workerManager = worker.NewWorkerManager(log)
		workerManager.Register(invalidationWorker)
		if err := workerManager.Start(ctx); err != nil {
			log.Fatal("Failed to start workers", zap.Error(err))
		}
	}

	// 10. Initialize HTTP Server
	server := httpDelivery.NewServer(cfg, log, m, handlers)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started successfully",
		zap.String("address", cfg.GetServerAddr()),
		zap.String("env", cfg.Server.Env),
	)

	// 11. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	cancel()
	if workerManager != nil {
		if err := workerManager.Stop(); err != nil {
			log.Error("Error stopping workers", zap.Error(err))
		}
	}

	log.Info("Server stopped successfully")
}

// replicaGroup - у каждой реплики своя consumer group: события подключений
// должны дойти до пулов в каждом процессе, а не в одном из них
func replicaGroup(group string) string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return group
	}
	return group + ":" + hostname
}
