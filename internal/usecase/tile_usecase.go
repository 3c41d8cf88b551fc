package usecase

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/tile-microservice/internal/domain"
	"github.com/tile-microservice/internal/domain/repository"
	"github.com/tile-microservice/internal/metrics"
	"github.com/tile-microservice/internal/pkg/errors"
	"github.com/tile-microservice/internal/pkg/sqltemplate"
	"github.com/tile-microservice/internal/pkg/tilecontext"
	"github.com/tile-microservice/internal/pkg/utils"
	"github.com/tile-microservice/internal/query"
	"github.com/tile-microservice/internal/repository/cache"
	"github.com/tile-microservice/internal/usecase/dto"
)

// TilePathTemplate - путь тайлового эндпоинта для клиентов карты
const TilePathTemplate = "/ts/{z}/{x}/{y}.pbf"

// tileFlightTimeout ограничивает общее выполнение тайла, которое не зависит от отмены отдельных запросов
const tileFlightTimeout = 2 * time.Minute

type TileUseCase struct {
	metadata     repository.MetadataRepository
	remotes      RemoteResolver
	tileCache    repository.TileCache
	metrics      *metrics.Metrics
	logger       *zap.Logger
	tileCacheTTL time.Duration
	// flights склеивает одновременные одинаковые запросы тайла в одно выполнение
	flights singleflight.Group
}

func NewTileUseCase(
	metadata repository.MetadataRepository,
	remotes RemoteResolver,
	tileCache repository.TileCache,
	m *metrics.Metrics,
	logger *zap.Logger,
	tileCacheTTL time.Duration,
) *TileUseCase {
	return &TileUseCase{
		metadata:     metadata,
		remotes:      remotes,
		tileCache:    tileCache,
		metrics:      m,
		logger:       logger,
		tileCacheTTL: tileCacheTTL,
	}
}

// GetTile возвращает MVT тайл слоя из закодированного контекста.
// nil без ошибки - пустой тайл (нет SQL или нет строк).
func (uc *TileUseCase) GetTile(ctx context.Context, coord domain.TileCoord, encoded string) ([]byte, error) {
	start := time.Now()

	if _, ok := utils.ValidateTile(coord.Z, coord.X, coord.Y); !ok {
		return nil, errors.ErrInvalidTileCoordinates
	}

	tc, err := tilecontext.Decode(encoded)
	if err != nil {
		uc.metrics.ObserveTile(metrics.OutcomeEmpty, 0, 0)
		return nil, errors.Wrap(errors.ErrInvalidTileContext, err)
	}

	layer, err := uc.metadata.GetLayer(ctx, tc.LayerID)
	if err != nil {
		return nil, uc.fail(notFound(err, errors.ErrLayerNotFound))
	}

	sql := sqltemplate.Merge(layer.Code, tc.Variables)
	if strings.TrimSpace(sql) == "" {
		uc.metrics.ObserveTile(metrics.OutcomeEmpty, 0, 0)
		return nil, nil
	}

	connectionID := tc.ConnectionID
	if connectionID == 0 {
		if connectionID, err = layerConnection(ctx, uc.metadata, layer, nil); err != nil {
			return nil, uc.fail(err)
		}
	}

	tileSQL, err := query.BuildTile(query.TileRequest{
		SQL:            sql,
		GeometryColumn: layer.GeometryColumnOrDefault(),
		Kind:           layer.Kind,
		Coord:          coord,
		StyleColumns:   layer.Style.Columns(),
	})
	if err != nil {
		return nil, uc.fail(toAppError(err))
	}

	key := cache.TileKey(layer.ID, coord, tileSQL)
	if tile, err := uc.tileCache.Get(ctx, key); err == nil {
		uc.metrics.CacheHit()
		uc.metrics.ObserveTile(metrics.OutcomeCached, 0, len(tile))
		return tile, nil
	}
	uc.metrics.CacheMiss()

	ch := uc.flights.DoChan(key, func() (interface{}, error) {
		// к выполнению присоединяются другие запросы, поэтому отмена первого его не прерывает
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tileFlightTimeout)
		defer cancel()

		rem, err := uc.remotes.Resolve(fctx, connectionID)
		if err != nil {
			return nil, err
		}
		tile, err := rem.Tile(fctx, tileSQL)
		if err != nil {
			return nil, err
		}
		if len(tile) > 0 {
			if err := uc.tileCache.Set(fctx, key, tile, uc.tileCacheTTL); err != nil {
				uc.logger.Warn("Failed to cache tile", zap.String("key", key), zap.Error(err))
			}
		}
		return tile, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res.Err = errors.Wrap(errors.ErrQueryFailed.WithMessage("Tile request cancelled"), ctx.Err())
	}
	v, err, shared := res.Val, res.Err, res.Shared
	if err != nil {
		uc.logger.Debug("Tile query failed",
			zap.Int64("layer_id", layer.ID),
			zap.Int64("connection_id", connectionID),
			zap.Int("z", coord.Z), zap.Int("x", coord.X), zap.Int("y", coord.Y),
			zap.Strings("unresolved", sqltemplate.Unresolved(layer.Code, tc.Variables)),
			zap.Error(err))
		return nil, uc.fail(toAppError(err))
	}

	tile, _ := v.([]byte)
	if len(tile) == 0 {
		uc.metrics.ObserveTile(metrics.OutcomeEmpty, time.Since(start).Seconds(), 0)
		return nil, nil
	}
	if !shared {
		uc.metrics.ObserveTile(metrics.OutcomeRendered, time.Since(start).Seconds(), len(tile))
	}
	return tile, nil
}

func (uc *TileUseCase) fail(err error) error {
	uc.metrics.ObserveTile(metrics.OutcomeFailed, 0, 0)
	if appErr, ok := errors.As(err); ok {
		uc.metrics.RemoteError(appErr.Code)
	}
	return err
}

// TileURL собирает контекст тайла слоя для окружения и шаблон URL с ним
func (uc *TileUseCase) TileURL(ctx context.Context, layerID, environmentID, subEnvironmentID int64) (*dto.TileURLResponse, error) {
	layer, err := uc.metadata.GetLayer(ctx, layerID)
	if err != nil {
		return nil, notFound(err, errors.ErrLayerNotFound)
	}

	env, vars, err := environmentVariables(ctx, uc.metadata, environmentID, subEnvironmentID)
	if err != nil {
		return nil, err
	}

	connectionID, err := layerConnection(ctx, uc.metadata, layer, env)
	if err != nil {
		return nil, err
	}

	encoded, err := tilecontext.Encode(domain.TileContext{
		LayerID:      layer.ID,
		ConnectionID: connectionID,
		Variables:    vars,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrInternalServer, err)
	}

	minZoom, maxZoom := layer.ZoomRange()
	return &dto.TileURLResponse{
		LayerID:      layer.ID,
		ConnectionID: connectionID,
		Context:      encoded,
		URL:          fmt.Sprintf("%s?c=%s", TilePathTemplate, url.QueryEscape(encoded)),
		MinZoom:      minZoom,
		MaxZoom:      maxZoom,
	}, nil
}
