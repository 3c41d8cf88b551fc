package handler

import (
	"context"
	stderrors "errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tile-microservice/internal/delivery/http/middleware"
	"github.com/tile-microservice/internal/domain"
	"github.com/tile-microservice/internal/pkg/errors"
	"github.com/tile-microservice/internal/pkg/utils"
	"github.com/tile-microservice/internal/usecase/dto"
)

const contentTypeMVT = "application/x-protobuf"

// TileService - то, что нужно обработчику тайлов от use case
type TileService interface {
	GetTile(ctx context.Context, coord domain.TileCoord, encoded string) ([]byte, error)
	TileURL(ctx context.Context, layerID, environmentID, subEnvironmentID int64) (*dto.TileURLResponse, error)
}

// TileHandler - тайловый эндпоинт для рендерера карты
type TileHandler struct {
	tileUC       TileService
	cacheControl string
	logger       *zap.Logger
}

func NewTileHandler(tileUC TileService, cacheControl string, logger *zap.Logger) *TileHandler {
	return &TileHandler{
		tileUC:       tileUC,
		cacheControl: cacheControl,
		logger:       logger,
	}
}

// GetTile godoc
// @Summary Векторный тайл слоя
// @Description Возвращает MVT тайл слоя. Контекст (слой, подключение, переменные) передается в параметре c как base64 JSON. Если тайл пустой или запрос не удался, отдается 204 без тела, чтобы не ломать сетку тайлов.
// @Tags Tiles
// @Produce application/x-protobuf
// @Param z path int true "Zoom"
// @Param x path int true "X"
// @Param y path int true "Y"
// @Param c query string true "Encoded tile context"
// @Success 200 {string} binary
// @Success 204
// @Failure 400 {object} utils.ErrorResponse
// @Router /ts/{z}/{x}/{y}.pbf [get]
func (h *TileHandler) GetTile(c *fiber.Ctx) error {
	coord, ok := parseCoord(c)
	if !ok {
		return utils.SendError(c, errors.ErrInvalidTileCoordinates)
	}

	tile, err := h.tileUC.GetTile(c.Context(), coord, c.Query("c"))
	if err != nil {
		if stderrors.Is(err, errors.ErrInvalidTileCoordinates) {
			return utils.SendError(c, err)
		}
		// рендерер карты не должен видеть ошибок, только пустой тайл
		h.logger.Debug("Tile degraded to empty",
			zap.String("request_id", middleware.RequestID(c)),
			zap.Int("z", coord.Z), zap.Int("x", coord.X), zap.Int("y", coord.Y),
			zap.Error(err))
		return c.SendStatus(fiber.StatusNoContent)
	}

	if len(tile) == 0 {
		return c.SendStatus(fiber.StatusNoContent)
	}

	c.Set(fiber.HeaderContentType, contentTypeMVT)
	if h.cacheControl != "" {
		c.Set(fiber.HeaderCacheControl, h.cacheControl)
	}
	return c.Send(tile)
}

// GetTileURL godoc
// @Summary URL тайлов слоя
// @Description Собирает закодированный контекст тайла для слоя в окружении и шаблон URL тайлов
// @Tags Tiles
// @Produce json
// @Param id path int true "Layer ID"
// @Param environmentId query int false "Environment ID"
// @Param subEnvironmentId query int false "Sub-environment ID"
// @Success 200 {object} utils.SuccessResponse{data=dto.TileURLResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/layers/{id}/tile-url [get]
func (h *TileHandler) GetTileURL(c *fiber.Ctx) error {
	layerID, err := paramID(c, "id")
	if err != nil {
		return utils.SendError(c, err)
	}

	res, err := h.tileUC.TileURL(c.Context(), layerID,
		int64(c.QueryInt("environmentId", 0)),
		int64(c.QueryInt("subEnvironmentId", 0)))
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, res, nil)
}

func parseCoord(c *fiber.Ctx) (domain.TileCoord, bool) {
	z, errZ := strconv.Atoi(c.Params("z"))
	x, errX := strconv.Atoi(c.Params("x"))
	// расширение после y не влияет на тайл
	yRaw, _, _ := strings.Cut(c.Params("y"), ".")
	y, errY := strconv.Atoi(yRaw)
	if errZ != nil || errX != nil || errY != nil {
		return domain.TileCoord{}, false
	}
	return domain.TileCoord{Z: z, X: x, Y: y}, true
}
