package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tile-microservice/internal/domain"
	"github.com/tile-microservice/internal/pkg/utils"
	"github.com/tile-microservice/internal/usecase/dto"
)

// ConnectionService - подключение к удаленным базам
type ConnectionService interface {
	ConnectRemote(ctx context.Context, connectionID int64) dto.ConnectionStatus
	Reconnect(ctx context.Context, connectionID int64) dto.ConnectionStatus
	TestConnection(ctx context.Context, conn domain.Connection) dto.ConnectionStatus
}

// ConnectionHandler отдает {success, error} с кодом 200 и при неудачном подключении
type ConnectionHandler struct {
	connectionUC ConnectionService
	logger       *zap.Logger
}

func NewConnectionHandler(connectionUC ConnectionService, logger *zap.Logger) *ConnectionHandler {
	return &ConnectionHandler{
		connectionUC: connectionUC,
		logger:       logger,
	}
}

// Connect godoc
// @Summary Открыть подключение
// @Tags Connections
// @Produce json
// @Param id path int true "Connection ID"
// @Success 200 {object} utils.SuccessResponse{data=dto.ConnectionStatus}
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/connections/{id}/connect [post]
func (h *ConnectionHandler) Connect(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, h.connectionUC.ConnectRemote(c.Context(), id), nil)
}

// Reconnect godoc
// @Summary Пересоздать пул подключения
// @Description Вызывается после изменения параметров подключения. Старый пул закрывается после замены.
// @Tags Connections
// @Produce json
// @Param id path int true "Connection ID"
// @Success 200 {object} utils.SuccessResponse{data=dto.ConnectionStatus}
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/connections/{id}/reconnect [post]
func (h *ConnectionHandler) Reconnect(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, h.connectionUC.Reconnect(c.Context(), id), nil)
}

// Test godoc
// @Summary Проверить параметры подключения
// @Description Открывает временный пул, проверяет версии PostgreSQL/PostGIS и закрывает его. Реестр не меняется.
// @Tags Connections
// @Accept json
// @Produce json
// @Param request body dto.TestConnectionRequest true "Параметры"
// @Success 200 {object} utils.SuccessResponse{data=dto.ConnectionStatus}
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/connections/test [post]
func (h *ConnectionHandler) Test(c *fiber.Ctx) error {
	var req dto.TestConnectionRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, h.connectionUC.TestConnection(c.Context(), req.Connection), nil)
}
