package http

import (
	"context"
	stderrors "errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberSwagger "github.com/swaggo/fiber-swagger"
	"go.uber.org/zap"

	"github.com/tile-microservice/internal/config"
	"github.com/tile-microservice/internal/delivery/http/handler"
	"github.com/tile-microservice/internal/delivery/http/middleware"
	"github.com/tile-microservice/internal/metrics"
	"github.com/tile-microservice/internal/pkg/errors"
	"github.com/tile-microservice/internal/pkg/utils"
)

// Handlers - обработчики, которые монтирует сервер
type Handlers struct {
	Tile       *handler.TileHandler
	Record     *handler.RecordHandler
	Connection *handler.ConnectionHandler
	Health     *handler.HealthHandler
}

// Server - HTTP сервер на основе Fiber
type Server struct {
	app      *fiber.App
	config   *config.Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
	handlers Handlers
}

// NewServer - создание нового HTTP сервера. metrics может быть nil.
func NewServer(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics, handlers Handlers) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "Tile Microservice",
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  2 * cfg.Server.WriteTimeout,
		BodyLimit:    8 * 1024 * 1024,
		ErrorHandler: customErrorHandler(logger),
	})

	s := &Server{
		app:      app,
		config:   cfg,
		logger:   logger,
		metrics:  m,
		handlers: handlers,
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

// App нужен тестам для app.Test
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) setupMiddlewares() {
	s.app.Use(middleware.Recovery(s.logger))
	s.app.Use(middleware.Logger(s.logger))
	s.app.Use(middleware.CORS(s.config.Server.CORSOrigins))
	if s.metrics != nil {
		s.app.Use(middleware.Metrics(s.metrics))
	}
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

func (s *Server) setupRoutes() {
	s.app.Get("/swagger/*", fiberSwagger.WrapHandler)

	s.app.Get("/ping", s.handlers.Health.Ping)
	s.app.Get("/health", s.handlers.Health.Health)

	if s.metrics != nil && s.config.Metrics.Enabled {
		s.app.Get(s.config.Metrics.Path, adaptor.HTTPHandler(s.metrics.Handler()))
	}

	// Тайлы: y с любым расширением (.pbf, .mvt, .vector.pbf) или без него
	s.app.Get("/ts/:z/:x/:y", s.handlers.Tile.GetTile)

	api := s.app.Group("/api/v1")

	api.Get("/layers/:id/tile-url", s.handlers.Tile.GetTileURL)

	records := api.Group("/records")
	records.Post("/bbox", s.handlers.Record.ByBbox)
	records.Post("/identity", s.handlers.Record.ByIdentity)
	records.Post("/columns", s.handlers.Record.Columns)
	records.Post("/metrics", s.handlers.Record.Metrics)
	records.Post("/match", s.handlers.Record.Match)
	records.Post("/export", s.handlers.Record.Export)

	connections := api.Group("/connections")
	connections.Post("/test", s.handlers.Connection.Test)
	connections.Post("/:id/connect", s.handlers.Connection.Connect)
	connections.Post("/:id/reconnect", s.handlers.Connection.Reconnect)
}

// Start - запуск HTTP сервера
func (s *Server) Start() error {
	addr := s.config.GetServerAddr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))
	return s.app.Listen(addr)
}

// Shutdown - graceful shutdown HTTP сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// customErrorHandler приводит необработанные ошибки к общему формату ответа
func customErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if stderrors.As(err, &fe) {
			if fe.Code == fiber.StatusNotFound {
				return utils.SendError(c, errors.New("NOT_FOUND", fe.Message, fe.Code))
			}
			return utils.SendError(c, errors.New("HTTP_ERROR", fe.Message, fe.Code))
		}

		logger.Error("HTTP Error",
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return utils.SendError(c, err)
	}
}
