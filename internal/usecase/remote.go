package usecase

import (
	"context"

	"github.com/tile-microservice/internal/domain"
	"github.com/tile-microservice/internal/domain/repository"
	"github.com/tile-microservice/internal/pkg/errors"
	"github.com/tile-microservice/internal/repository/remote"
)

// RemoteResolver - реестр пулов удаленных баз
type RemoteResolver interface {
	Resolve(ctx context.Context, connectionID int64) (*remote.Remote, error)
}

// ConnectionRegistry - операции над реестром, доступные через API
type ConnectionRegistry interface {
	RemoteResolver
	Reconnect(ctx context.Context, connectionID int64) (*remote.Remote, error)
	TestConnection(ctx context.Context, conn domain.Connection) (remote.Versions, error)
}

// layerConnection определяет подключение слоя: переопределение окружения или подключение источника по умолчанию
func layerConnection(ctx context.Context, metadata repository.MetadataRepository, layer *domain.Layer, env *domain.Environment) (int64, error) {
	ds, err := metadata.GetDataSource(ctx, layer.DataSourceID)
	if err != nil {
		return 0, notFound(err, errors.ErrConnectionNotFound.WithMessage("Data source not found"))
	}
	id := env.ConnectionFor(*ds)
	if id == 0 {
		return 0, errors.ErrConnectionNotFound.WithMessage("Data source has no connection")
	}
	return id, nil
}

// environmentVariables - переменные окружения (с подокружением) или пустой набор, если окружение не задано
func environmentVariables(ctx context.Context, metadata repository.MetadataRepository, envID, subID int64) (*domain.Environment, domain.Variables, error) {
	if envID == 0 {
		return nil, domain.Variables{}, nil
	}
	env, err := metadata.GetEnvironment(ctx, envID)
	if err != nil {
		return nil, nil, notFound(err, errors.ErrEnvironmentNotFound)
	}
	vars, ok := env.ResolveVariables(subID)
	if !ok {
		return nil, nil, errors.ErrEnvironmentNotFound.WithMessage("Sub-environment not found")
	}
	return env, vars, nil
}
