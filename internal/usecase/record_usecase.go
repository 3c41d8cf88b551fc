package usecase

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tile-microservice/internal/domain"
	"github.com/tile-microservice/internal/domain/repository"
	"github.com/tile-microservice/internal/pkg/errors"
	"github.com/tile-microservice/internal/pkg/sqltemplate"
	"github.com/tile-microservice/internal/query"
	"github.com/tile-microservice/internal/usecase/dto"
)

// matchConcurrency - сколько слоев считается параллельно в MatchLayers
const matchConcurrency = 4

// RecordUseCase - выборки строк слоя для выделения объектов и панели атрибутов
type RecordUseCase struct {
	metadata repository.MetadataRepository
	remotes  RemoteResolver
	logger   *zap.Logger
}

func NewRecordUseCase(metadata repository.MetadataRepository, remotes RemoteResolver, logger *zap.Logger) *RecordUseCase {
	return &RecordUseCase{
		metadata: metadata,
		remotes:  remotes,
		logger:   logger,
	}
}

// RecordsByBbox - строки, пересекающие прямоугольник, или только их количество
func (uc *RecordUseCase) RecordsByBbox(ctx context.Context, req dto.BboxRecordsRequest) (*dto.RecordsResponse, error) {
	sql, err := query.BuildBbox(query.BboxRequest{
		SQL:            sqltemplate.Merge(req.SQL, req.Variables),
		GeometryColumn: req.GeometryColumn,
		Box:            req.Box,
		CountOnly:      req.CountOnly,
	})
	if err != nil {
		return nil, toAppError(err)
	}

	rem, err := uc.remotes.Resolve(ctx, req.ConnectionID)
	if err != nil {
		return nil, toAppError(err)
	}

	if req.CountOnly {
		n, err := rem.Count(ctx, sql)
		if err != nil {
			return nil, toAppError(err)
		}
		return &dto.RecordsResponse{Fields: []domain.Field{}, Records: []domain.Record{}, Count: n}, nil
	}

	rs, err := rem.Records(ctx, sql, req.StripGeometry)
	if err != nil {
		return nil, toAppError(err)
	}
	return recordsResponse(rs), nil
}

// RecordsByIdentity - строки по набору _qid, по одной на идентификатор
func (uc *RecordUseCase) RecordsByIdentity(ctx context.Context, req dto.IdentityRecordsRequest) (*dto.RecordsResponse, error) {
	sql, err := query.BuildByIdentity(sqltemplate.Merge(req.SQL, req.Variables), req.GeometryColumn, req.IDs)
	if stderrors.Is(err, query.ErrEmptyIdentitySet) {
		return recordsResponse(domain.RecordSet{}), nil
	}
	if err != nil {
		return nil, toAppError(err)
	}

	rem, err := uc.remotes.Resolve(ctx, req.ConnectionID)
	if err != nil {
		return nil, toAppError(err)
	}

	rs, err := rem.Records(ctx, sql, req.StripGeometry)
	if err != nil {
		return nil, toAppError(err)
	}
	return recordsResponse(rs), nil
}

// TableColumns - колонки результата запроса с классифицированными типами
func (uc *RecordUseCase) TableColumns(ctx context.Context, req dto.ColumnsRequest) (*dto.ColumnsResponse, error) {
	sql, err := query.BuildColumns(sqltemplate.Merge(req.SQL, req.Variables))
	if err != nil {
		return nil, toAppError(err)
	}

	rem, err := uc.remotes.Resolve(ctx, req.ConnectionID)
	if err != nil {
		return nil, toAppError(err)
	}

	rs, err := rem.Records(ctx, sql, false)
	if err != nil {
		return nil, toAppError(err)
	}
	return &dto.ColumnsResponse{Fields: nonNilFields(rs.Fields)}, nil
}

// ColumnMetrics - top-N категорий колонки или ее гистограмма
func (uc *RecordUseCase) ColumnMetrics(ctx context.Context, req dto.ColumnMetricsRequest) (*dto.ColumnMetricsResponse, error) {
	sql := sqltemplate.Merge(req.SQL, req.Variables)

	var (
		metricsSQL string
		err        error
	)
	switch req.Mode {
	case dto.MetricsCategorical:
		metricsSQL, err = query.BuildCategoricalMetrics(sql, req.Column, req.Limit)
	case dto.MetricsNumeric:
		metricsSQL, err = query.BuildNumericMetrics(sql, req.Column, req.Limit)
	default:
		return nil, errors.ErrInvalidInput.WithMessage("Unknown metrics mode: " + req.Mode)
	}
	if err != nil {
		return nil, toAppError(err)
	}

	rem, err := uc.remotes.Resolve(ctx, req.ConnectionID)
	if err != nil {
		return nil, toAppError(err)
	}

	rs, err := rem.Records(ctx, metricsSQL, false)
	if err != nil {
		return nil, toAppError(err)
	}

	out := make([]domain.ColumnMetric, 0, len(rs.Records))
	for _, rec := range rs.Records {
		if req.Mode == dto.MetricsCategorical {
			out = append(out, domain.ColumnMetric{
				Field:     rec["field"],
				Count:     toInt64(rec["count"]),
				Total:     toInt64(rec["total"]),
				Frequency: toInt64(rec["count"]),
			})
			continue
		}
		out = append(out, domain.ColumnMetric{
			Bin:       int(toInt64(rec["bin"])),
			Low:       toFloat64(rec["low"]),
			High:      toFloat64(rec["high"]),
			Frequency: toInt64(rec["frequency"]),
		})
	}

	return &dto.ColumnMetricsResponse{Column: req.Column, Mode: req.Mode, Metrics: out}, nil
}

// MatchLayers считает строки в прямоугольнике для каждого слоя и оставляет только слои с совпадениями.
// Ошибка одного слоя не прерывает подсчет остальных: слой логируется и пропускается.
func (uc *RecordUseCase) MatchLayers(ctx context.Context, req dto.MatchLayersRequest) (*dto.MatchLayersResponse, error) {
	env, vars, err := environmentVariables(ctx, uc.metadata, req.EnvironmentID, req.SubEnvironmentID)
	if err != nil {
		return nil, err
	}
	for k, v := range req.Variables {
		vars[k] = v
	}

	counts := make([]int64, len(req.LayerIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(matchConcurrency)

	for i, layerID := range req.LayerIDs {
		g.Go(func() error {
			n, err := uc.countLayer(gctx, layerID, env, vars, req.Box)
			if err != nil {
				uc.logger.Warn("Layer count failed, skipping",
					zap.Int64("layer_id", layerID),
					zap.Error(err))
				return nil
			}
			counts[i] = n
			return nil
		})
	}
	_ = g.Wait()

	matches := make([]domain.LayerMatch, 0, len(req.LayerIDs))
	for i, layerID := range req.LayerIDs {
		if counts[i] > 0 {
			matches = append(matches, domain.LayerMatch{LayerID: layerID, Count: counts[i]})
		}
	}
	return &dto.MatchLayersResponse{Matches: matches}, nil
}

func (uc *RecordUseCase) countLayer(ctx context.Context, layerID int64, env *domain.Environment, vars domain.Variables, box domain.BoundingBox) (int64, error) {
	layer, err := uc.metadata.GetLayer(ctx, layerID)
	if err != nil {
		return 0, err
	}
	sql := sqltemplate.Merge(layer.Code, vars)
	if strings.TrimSpace(sql) == "" {
		return 0, nil
	}

	connectionID, err := layerConnection(ctx, uc.metadata, layer, env)
	if err != nil {
		return 0, err
	}

	countSQL, err := query.BuildBbox(query.BboxRequest{
		SQL:            sql,
		GeometryColumn: layer.GeometryColumnOrDefault(),
		Box:            box,
		CountOnly:      true,
	})
	if err != nil {
		return 0, err
	}

	rem, err := uc.remotes.Resolve(ctx, connectionID)
	if err != nil {
		return 0, err
	}
	return rem.Count(ctx, countSQL)
}

func recordsResponse(rs domain.RecordSet) *dto.RecordsResponse {
	records := rs.Records
	if records == nil {
		records = []domain.Record{}
	}
	return &dto.RecordsResponse{
		Fields:  nonNilFields(rs.Fields),
		Records: records,
		Count:   int64(len(records)),
	}
}

func nonNilFields(fields []domain.Field) []domain.Field {
	if fields == nil {
		return []domain.Field{}
	}
	return fields
}

// toInt64 и toFloat64 принимают значения в том виде, в каком их отдает remote.Records
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int16:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case float32:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	}
	return 0
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case int:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	}
	return 0
}
