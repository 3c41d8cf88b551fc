package repository

import (
	"context"
	"errors"

	"github.com/tile-microservice/internal/domain"
)

// ErrNotFound возвращается хранилищем метаданных, если сущность отсутствует
var ErrNotFound = errors.New("metadata: not found")

// MetadataRepository - read-only доступ к рабочему пространству (слои, подключения, окружения)
type MetadataRepository interface {
	GetLayer(ctx context.Context, id int64) (*domain.Layer, error)
	GetConnection(ctx context.Context, id int64) (*domain.Connection, error)
	GetDataSource(ctx context.Context, id int64) (*domain.DataSource, error)
	GetEnvironment(ctx context.Context, id int64) (*domain.Environment, error)
	Close() error
}

// ConnectionSource - то, что нужно реестру подключений от хранилища метаданных
type ConnectionSource interface {
	GetConnection(ctx context.Context, id int64) (*domain.Connection, error)
}
