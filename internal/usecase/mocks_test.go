package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tile-microservice/internal/domain"
	"github.com/tile-microservice/internal/repository/remote"
)

// MockMetadataRepository is a mock of MetadataRepository
type MockMetadataRepository struct {
	mock.Mock
}

func (m *MockMetadataRepository) GetLayer(ctx context.Context, id int64) (*domain.Layer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Layer), args.Error(1)
}

func (m *MockMetadataRepository) GetConnection(ctx context.Context, id int64) (*domain.Connection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Connection), args.Error(1)
}

func (m *MockMetadataRepository) GetDataSource(ctx context.Context, id int64) (*domain.DataSource, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DataSource), args.Error(1)
}

func (m *MockMetadataRepository) GetEnvironment(ctx context.Context, id int64) (*domain.Environment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Environment), args.Error(1)
}

func (m *MockMetadataRepository) Close() error {
	return m.Called().Error(0)
}

// MockRegistry is a mock of ConnectionRegistry
type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) Resolve(ctx context.Context, connectionID int64) (*remote.Remote, error) {
	args := m.Called(ctx, connectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*remote.Remote), args.Error(1)
}

func (m *MockRegistry) Reconnect(ctx context.Context, connectionID int64) (*remote.Remote, error) {
	args := m.Called(ctx, connectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*remote.Remote), args.Error(1)
}

func (m *MockRegistry) TestConnection(ctx context.Context, conn domain.Connection) (remote.Versions, error) {
	args := m.Called(ctx, conn)
	return args.Get(0).(remote.Versions), args.Error(1)
}

// MockTileCache is a mock of TileCache
type MockTileCache struct {
	mock.Mock
}

func (m *MockTileCache) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockTileCache) Set(ctx context.Context, key string, tile []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, tile, ttl)
	return args.Error(0)
}

func (m *MockTileCache) InvalidateLayer(ctx context.Context, layerID int64) (int, error) {
	args := m.Called(ctx, layerID)
	return args.Int(0), args.Error(1)
}

const testGeometryOID = 16400

func newRemote(t *testing.T, connectionID int64) (*remote.Remote, pgxmock.PgxPoolIface) {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return &remote.Remote{
		ConnectionID: connectionID,
		Pool:         pool,
		GeometryOID:  testGeometryOID,
		Versions:     remote.Versions{Postgres: "16.2", PostGIS: "3.4.2"},
	}, pool
}
