package usecase

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/tile-microservice/internal/pkg/errors"
	"github.com/tile-microservice/internal/pkg/export"
	"github.com/tile-microservice/internal/pkg/sqltemplate"
	"github.com/tile-microservice/internal/query"
	"github.com/tile-microservice/internal/usecase/dto"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// ExportUseCase выгружает строки прямоугольника или набора _qid в файл
type ExportUseCase struct {
	remotes RemoteResolver
	logger  *zap.Logger
}

func NewExportUseCase(remotes RemoteResolver, logger *zap.Logger) *ExportUseCase {
	return &ExportUseCase{remotes: remotes, logger: logger}
}

func (uc *ExportUseCase) Export(ctx context.Context, req dto.ExportRequest) (*dto.ExportFile, error) {
	sql := sqltemplate.Merge(req.SQL, req.Variables)

	var (
		exportSQL string
		err       error
	)
	switch {
	case len(req.IDs) > 0:
		exportSQL, err = query.BuildByIdentity(sql, req.GeometryColumn, req.IDs)
	case req.Box != nil:
		exportSQL, err = query.BuildBbox(query.BboxRequest{SQL: sql, GeometryColumn: req.GeometryColumn, Box: *req.Box})
	default:
		return nil, errors.ErrInvalidInput.WithMessage("Either bbox or ids is required")
	}
	if err != nil {
		return nil, toAppError(err)
	}

	rem, err := uc.remotes.Resolve(ctx, req.ConnectionID)
	if err != nil {
		return nil, toAppError(err)
	}

	rs, err := rem.Records(ctx, exportSQL, true)
	if err != nil {
		return nil, toAppError(err)
	}

	features, err := export.Features(rs)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInternalServer, err)
	}

	name := fileName(req.Name)
	file := &dto.ExportFile{Features: len(features)}

	switch req.Format {
	case dto.FormatGeoJSON:
		file.Data, err = export.GeoJSON(features)
		file.Name = name + ".geojson"
		file.ContentType = "application/geo+json"
	case dto.FormatCSV:
		file.Data, err = export.CSV(rs.Fields, features)
		file.Name = name + ".csv"
		file.ContentType = "text/csv"
	case dto.FormatShapefile:
		file.Data, file.Features, err = export.Shapefile(name, rs.Fields, features)
		file.Name = name + ".zip"
		file.ContentType = "application/zip"
	default:
		return nil, errors.ErrInvalidInput.WithMessage("Unknown export format: " + req.Format)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidInput.WithMessage(err.Error()), err)
	}

	uc.logger.Info("Export completed",
		zap.String("format", req.Format),
		zap.Int("features", file.Features),
		zap.Int("bytes", len(file.Data)))
	return file, nil
}

func fileName(name string) string {
	name = strings.Trim(unsafeFileChars.ReplaceAllString(name, "_"), "_")
	if name == "" {
		return "export"
	}
	return name
}
