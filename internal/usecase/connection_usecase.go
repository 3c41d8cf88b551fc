package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/tile-microservice/internal/domain"
	"github.com/tile-microservice/internal/repository/remote"
	"github.com/tile-microservice/internal/usecase/dto"
)

// ConnectionUseCase - подключение и проверка удаленных баз.
// Ошибки не пробрасываются, а возвращаются как {success:false, error}.
type ConnectionUseCase struct {
	registry ConnectionRegistry
	logger   *zap.Logger
}

func NewConnectionUseCase(registry ConnectionRegistry, logger *zap.Logger) *ConnectionUseCase {
	return &ConnectionUseCase{
		registry: registry,
		logger:   logger,
	}
}

// ConnectRemote открывает (или берет из реестра) пул подключения
func (uc *ConnectionUseCase) ConnectRemote(ctx context.Context, connectionID int64) dto.ConnectionStatus {
	rem, err := uc.registry.Resolve(ctx, connectionID)
	return uc.status(connectionID, rem, err)
}

// Reconnect пересоздает пул после изменения параметров подключения
func (uc *ConnectionUseCase) Reconnect(ctx context.Context, connectionID int64) dto.ConnectionStatus {
	rem, err := uc.registry.Reconnect(ctx, connectionID)
	return uc.status(connectionID, rem, err)
}

// TestConnection проверяет параметры без сохранения пула в реестре
func (uc *ConnectionUseCase) TestConnection(ctx context.Context, conn domain.Connection) dto.ConnectionStatus {
	versions, err := uc.registry.TestConnection(ctx, conn)
	if err != nil {
		uc.logger.Info("Connection test failed",
			zap.Stringer("connection", conn),
			zap.String("kind", remote.KindOf(err).String()),
			zap.Error(err))
		return dto.ConnectionStatus{Success: false, Error: errorText(err)}
	}
	return dto.ConnectionStatus{Success: true, Postgres: versions.Postgres, PostGIS: versions.PostGIS}
}

func (uc *ConnectionUseCase) status(connectionID int64, rem *remote.Remote, err error) dto.ConnectionStatus {
	if err != nil {
		uc.logger.Warn("Connection failed",
			zap.Int64("connection_id", connectionID),
			zap.String("kind", remote.KindOf(err).String()),
			zap.Error(err))
		return dto.ConnectionStatus{Success: false, Error: errorText(err)}
	}
	return dto.ConnectionStatus{Success: true, Postgres: rem.Versions.Postgres, PostGIS: rem.Versions.PostGIS}
}

// errorText никогда не возвращает пустую строку
func errorText(err error) string {
	msg := strings.TrimSpace(remote.Message(err))
	if msg == "" {
		msg = remote.KindOf(err).String() + " error"
	}
	return msg
}
