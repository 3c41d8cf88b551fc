package handler_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tile-microservice/internal/domain"
	"github.com/tile-microservice/internal/usecase/dto"
)

type MockTileService struct {
	mock.Mock
}

func (m *MockTileService) GetTile(ctx context.Context, coord domain.TileCoord, encoded string) ([]byte, error) {
	args := m.Called(ctx, coord, encoded)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockTileService) TileURL(ctx context.Context, layerID, environmentID, subEnvironmentID int64) (*dto.TileURLResponse, error) {
	args := m.Called(ctx, layerID, environmentID, subEnvironmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TileURLResponse), args.Error(1)
}

type MockRecordService struct {
	mock.Mock
}

func (m *MockRecordService) RecordsByBbox(ctx context.Context, req dto.BboxRecordsRequest) (*dto.RecordsResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.RecordsResponse), args.Error(1)
}

func (m *MockRecordService) RecordsByIdentity(ctx context.Context, req dto.IdentityRecordsRequest) (*dto.RecordsResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.RecordsResponse), args.Error(1)
}

func (m *MockRecordService) TableColumns(ctx context.Context, req dto.ColumnsRequest) (*dto.ColumnsResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ColumnsResponse), args.Error(1)
}

func (m *MockRecordService) ColumnMetrics(ctx context.Context, req dto.ColumnMetricsRequest) (*dto.ColumnMetricsResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ColumnMetricsResponse), args.Error(1)
}

func (m *MockRecordService) MatchLayers(ctx context.Context, req dto.MatchLayersRequest) (*dto.MatchLayersResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.MatchLayersResponse), args.Error(1)
}

type MockExportService struct {
	mock.Mock
}

func (m *MockExportService) Export(ctx context.Context, req dto.ExportRequest) (*dto.ExportFile, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ExportFile), args.Error(1)
}

type MockConnectionService struct {
	mock.Mock
}

func (m *MockConnectionService) ConnectRemote(ctx context.Context, connectionID int64) dto.ConnectionStatus {
	return m.Called(ctx, connectionID).Get(0).(dto.ConnectionStatus)
}

func (m *MockConnectionService) Reconnect(ctx context.Context, connectionID int64) dto.ConnectionStatus {
	return m.Called(ctx, connectionID).Get(0).(dto.ConnectionStatus)
}

func (m *MockConnectionService) TestConnection(ctx context.Context, conn domain.Connection) dto.ConnectionStatus {
	return m.Called(ctx, conn).Get(0).(dto.ConnectionStatus)
}
