package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tile-microservice/internal/domain"
	"github.com/tile-microservice/internal/domain/repository"
)

type metadataRepository struct {
	db *DB
}

// NewMetadataRepository создает read-only репозиторий метаданных поверх sqlite
func NewMetadataRepository(db *DB) repository.MetadataRepository {
	return &metadataRepository{db: db}
}

type layerRow struct {
	ID             int64          `db:"id"`
	Order          int            `db:"layer_order"`
	Name           sql.NullString `db:"name"`
	Code           sql.NullString `db:"code"`
	GeometryColumn sql.NullString `db:"geometry_column"`
	GeometryType   sql.NullString `db:"geometry_type_id"`
	Fields         sql.NullString `db:"fields"`
	Style          sql.NullString `db:"style"`
	Visible        bool           `db:"visible"`
	MinZoom        float64        `db:"min_zoom"`
	MaxZoom        float64        `db:"max_zoom"`
	WorkspaceID    int64          `db:"workspace_id"`
	DataSourceID   sql.NullInt64  `db:"data_source_id"`
}

const layerQuery = `
	SELECT id, layer_order, name, code, geometry_column, geometry_type_id,
	       fields, style, visible, min_zoom, max_zoom, workspace_id, data_source_id
	FROM layer
	WHERE id = ?
`

func (r *metadataRepository) GetLayer(ctx context.Context, id int64) (*domain.Layer, error) {
	var row layerRow
	if err := r.db.GetContext(ctx, &row, layerQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(repository.ErrNotFound, "layer %d", id)
		}
		return nil, eris.Wrapf(err, "get layer %d", id)
	}

	kind, err := domain.ParseGeometryKind(row.GeometryType.String)
	if err != nil {
		return nil, eris.Wrapf(err, "layer %d", id)
	}

	style, err := domain.ParseStyle(kind, []byte(row.Style.String))
	if err != nil {
		// битый стиль не мешает отрисовке геометрии
		r.db.logger.Warn("Failed to parse layer style", zap.Int64("layer_id", id), zap.Error(err))
		style = domain.Style{Kind: kind}
	}

	var fields []domain.Field
	if row.Fields.Valid && row.Fields.String != "" {
		if err := json.Unmarshal([]byte(row.Fields.String), &fields); err != nil {
			r.db.logger.Warn("Failed to parse layer fields", zap.Int64("layer_id", id), zap.Error(err))
			fields = nil
		}
	}

	return &domain.Layer{
		ID:             row.ID,
		Order:          row.Order,
		Name:           row.Name.String,
		Code:           row.Code.String,
		GeometryColumn: row.GeometryColumn.String,
		Kind:           kind,
		Style:          style,
		Fields:         fields,
		Visible:        row.Visible,
		MinZoom:        row.MinZoom,
		MaxZoom:        row.MaxZoom,
		WorkspaceID:    row.WorkspaceID,
		DataSourceID:   row.DataSourceID.Int64,
	}, nil
}

type connectionRow struct {
	ID             int64          `db:"id"`
	Name           sql.NullString `db:"name"`
	Host           sql.NullString `db:"host"`
	Port           sql.NullInt64  `db:"port"`
	Database       sql.NullString `db:"database"`
	Username       sql.NullString `db:"username"`
	Password       sql.NullString `db:"password"`
	SSL            bool           `db:"ssl"`
	MaxConnections int            `db:"max_connections"`
	DataSourceID   sql.NullInt64  `db:"data_source_id"`
}

const connectionQuery = `
	SELECT id, name, host, port, database, username, password, ssl, max_connections, data_source_id
	FROM connection
	WHERE id = ?
`

func (r *metadataRepository) GetConnection(ctx context.Context, id int64) (*domain.Connection, error) {
	var row connectionRow
	if err := r.db.GetContext(ctx, &row, connectionQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(repository.ErrNotFound, "connection %d", id)
		}
		return nil, eris.Wrapf(err, "get connection %d", id)
	}

	return &domain.Connection{
		ID:             row.ID,
		Name:           row.Name.String,
		Host:           row.Host.String,
		Port:           int(row.Port.Int64),
		Database:       row.Database.String,
		Username:       row.Username.String,
		Password:       row.Password.String,
		SSL:            row.SSL,
		MaxConnections: row.MaxConnections,
		DataSourceID:   row.DataSourceID.Int64,
	}, nil
}

const dataSourceQuery = `
	SELECT id, COALESCE(name, '') AS name, COALESCE(default_connection_id, 0) AS default_connection_id
	FROM data_source
	WHERE id = ?
`

func (r *metadataRepository) GetDataSource(ctx context.Context, id int64) (*domain.DataSource, error) {
	var ds domain.DataSource
	if err := r.db.GetContext(ctx, &ds, dataSourceQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(repository.ErrNotFound, "data source %d", id)
		}
		return nil, eris.Wrapf(err, "get data source %d", id)
	}
	return &ds, nil
}

const (
	environmentQuery = `SELECT id, COALESCE(name, '') AS name FROM environment WHERE id = ?`

	environmentConnectionsQuery = `
	SELECT data_source_id, connection_id
	FROM environment_data_source_connection
	WHERE environment_id = ?
`

	subEnvironmentsQuery = `
	SELECT id, COALESCE(name, '') AS name, json
	FROM sub_environment
	WHERE environment_id = ?
	ORDER BY id
`
)

type subEnvironmentRow struct {
	ID   int64          `db:"id"`
	Name string         `db:"name"`
	JSON sql.NullString `db:"json"`
}

type environmentConnectionRow struct {
	DataSourceID int64 `db:"data_source_id"`
	ConnectionID int64 `db:"connection_id"`
}

func (r *metadataRepository) GetEnvironment(ctx context.Context, id int64) (*domain.Environment, error) {
	env := domain.Environment{
		Variables:   domain.Variables{},
		Connections: map[int64]int64{},
	}
	var head struct {
		ID   int64  `db:"id"`
		Name string `db:"name"`
	}
	if err := r.db.GetContext(ctx, &head, environmentQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(repository.ErrNotFound, "environment %d", id)
		}
		return nil, eris.Wrapf(err, "get environment %d", id)
	}
	env.ID, env.Name = head.ID, head.Name

	var links []environmentConnectionRow
	if err := r.db.SelectContext(ctx, &links, environmentConnectionsQuery, id); err != nil {
		return nil, eris.Wrapf(err, "get environment %d connections", id)
	}
	for _, l := range links {
		env.Connections[l.DataSourceID] = l.ConnectionID
	}

	var subs []subEnvironmentRow
	if err := r.db.SelectContext(ctx, &subs, subEnvironmentsQuery, id); err != nil {
		return nil, eris.Wrapf(err, "get environment %d sub environments", id)
	}
	for _, s := range subs {
		sub := domain.SubEnvironment{ID: s.ID, Name: s.Name, Variables: domain.Variables{}}
		if s.JSON.Valid && s.JSON.String != "" {
			if err := json.Unmarshal([]byte(s.JSON.String), &sub.Variables); err != nil {
				r.db.logger.Warn("Failed to parse sub environment variables",
					zap.Int64("sub_environment_id", s.ID), zap.Error(err))
			}
		}
		env.SubEnvironments = append(env.SubEnvironments, sub)
	}

	return &env, nil
}

func (r *metadataRepository) Close() error {
	return r.db.Close()
}
