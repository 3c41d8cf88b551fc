package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tile-microservice/internal/pkg/utils"
	"github.com/tile-microservice/internal/usecase/dto"
)

// RecordService - выборки строк слоя
type RecordService interface {
	RecordsByBbox(ctx context.Context, req dto.BboxRecordsRequest) (*dto.RecordsResponse, error)
	RecordsByIdentity(ctx context.Context, req dto.IdentityRecordsRequest) (*dto.RecordsResponse, error)
	TableColumns(ctx context.Context, req dto.ColumnsRequest) (*dto.ColumnsResponse, error)
	ColumnMetrics(ctx context.Context, req dto.ColumnMetricsRequest) (*dto.ColumnMetricsResponse, error)
	MatchLayers(ctx context.Context, req dto.MatchLayersRequest) (*dto.MatchLayersResponse, error)
}

// ExportService - выгрузка строк в файл
type ExportService interface {
	Export(ctx context.Context, req dto.ExportRequest) (*dto.ExportFile, error)
}

type RecordHandler struct {
	recordUC RecordService
	exportUC ExportService
	logger   *zap.Logger
}

func NewRecordHandler(recordUC RecordService, exportUC ExportService, logger *zap.Logger) *RecordHandler {
	return &RecordHandler{
		recordUC: recordUC,
		exportUC: exportUC,
		logger:   logger,
	}
}

func elapsed(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

// ByBbox godoc
// @Summary Строки в прямоугольнике
// @Description Строки запроса слоя, пересекающие прямоугольник, с _qid, GeoJSON геометрии и охвата. С countOnly возвращает только количество.
// @Tags Records
// @Accept json
// @Produce json
// @Param request body dto.BboxRecordsRequest true "Запрос"
// @Success 200 {object} utils.SuccessResponse{data=dto.RecordsResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Failure 502 {object} utils.ErrorResponse
// @Router /api/v1/records/bbox [post]
func (h *RecordHandler) ByBbox(c *fiber.Ctx) error {
	start := time.Now()
	var req dto.BboxRecordsRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	res, err := h.recordUC.RecordsByBbox(c.Context(), req)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, res, &utils.Meta{Total: int(res.Count), TimeMSec: elapsed(start)})
}

// ByIdentity godoc
// @Summary Строки по _qid
// @Description Обновляет ранее выделенные объекты: по одной строке на идентификатор
// @Tags Records
// @Accept json
// @Produce json
// @Param request body dto.IdentityRecordsRequest true "Запрос"
// @Success 200 {object} utils.SuccessResponse{data=dto.RecordsResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /api/v1/records/identity [post]
func (h *RecordHandler) ByIdentity(c *fiber.Ctx) error {
	start := time.Now()
	var req dto.IdentityRecordsRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	res, err := h.recordUC.RecordsByIdentity(c.Context(), req)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, res, &utils.Meta{Total: int(res.Count), TimeMSec: elapsed(start)})
}

// Columns godoc
// @Summary Колонки запроса
// @Tags Records
// @Accept json
// @Produce json
// @Param request body dto.ColumnsRequest true "Запрос"
// @Success 200 {object} utils.SuccessResponse{data=dto.ColumnsResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /api/v1/records/columns [post]
func (h *RecordHandler) Columns(c *fiber.Ctx) error {
	var req dto.ColumnsRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	res, err := h.recordUC.TableColumns(c.Context(), req)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, res, &utils.Meta{Total: len(res.Fields)})
}

// Metrics godoc
// @Summary Метрики колонки
// @Description categorical - top-N значений по частоте, numeric - гистограмма с пустыми интервалами
// @Tags Records
// @Accept json
// @Produce json
// @Param request body dto.ColumnMetricsRequest true "Запрос"
// @Success 200 {object} utils.SuccessResponse{data=dto.ColumnMetricsResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /api/v1/records/metrics [post]
func (h *RecordHandler) Metrics(c *fiber.Ctx) error {
	start := time.Now()
	var req dto.ColumnMetricsRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	res, err := h.recordUC.ColumnMetrics(c.Context(), req)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, res, &utils.Meta{Total: len(res.Metrics), TimeMSec: elapsed(start)})
}

// Match godoc
// @Summary Слои с объектами в прямоугольнике
// @Description Считает строки каждого слоя в прямоугольнике и возвращает только слои с совпадениями
// @Tags Records
// @Accept json
// @Produce json
// @Param request body dto.MatchLayersRequest true "Запрос"
// @Success 200 {object} utils.SuccessResponse{data=dto.MatchLayersResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/records/match [post]
func (h *RecordHandler) Match(c *fiber.Ctx) error {
	start := time.Now()
	var req dto.MatchLayersRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	res, err := h.recordUC.MatchLayers(c.Context(), req)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, res, &utils.Meta{Total: len(res.Matches), TimeMSec: elapsed(start)})
}

// Export godoc
// @Summary Выгрузка строк
// @Description Выгружает строки прямоугольника или набора _qid в GeoJSON, CSV или zip с Shapefile
// @Tags Records
// @Accept json
// @Produce octet-stream
// @Param request body dto.ExportRequest true "Запрос"
// @Success 200 {file} file
// @Failure 400 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /api/v1/records/export [post]
func (h *RecordHandler) Export(c *fiber.Ctx) error {
	var req dto.ExportRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	file, err := h.exportUC.Export(c.Context(), req)
	if err != nil {
		return utils.SendError(c, err)
	}

	c.Set(fiber.HeaderContentType, file.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, file.Name))
	return c.Send(file.Data)
}
