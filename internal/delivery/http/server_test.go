package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tile-microservice/internal/config"
	httpDelivery "github.com/tile-microservice/internal/delivery/http"
	"github.com/tile-microservice/internal/delivery/http/handler"
	"github.com/tile-microservice/internal/domain"
	"github.com/tile-microservice/internal/metrics"
	"github.com/tile-microservice/internal/usecase/dto"
)

type fakeTiles struct{}

func (fakeTiles) GetTile(_ context.Context, coord domain.TileCoord, _ string) ([]byte, error) {
	if coord.Z == 0 {
		return nil, nil
	}
	return []byte{0x1a}, nil
}

func (fakeTiles) TileURL(context.Context, int64, int64, int64) (*dto.TileURLResponse, error) {
	return &dto.TileURLResponse{}, nil
}

type fakeRecords struct{}

func (fakeRecords) RecordsByBbox(context.Context, dto.BboxRecordsRequest) (*dto.RecordsResponse, error) {
	return &dto.RecordsResponse{}, nil
}

func (fakeRecords) RecordsByIdentity(context.Context, dto.IdentityRecordsRequest) (*dto.RecordsResponse, error) {
	return &dto.RecordsResponse{}, nil
}

func (fakeRecords) TableColumns(context.Context, dto.ColumnsRequest) (*dto.ColumnsResponse, error) {
	return &dto.ColumnsResponse{}, nil
}

func (fakeRecords) ColumnMetrics(context.Context, dto.ColumnMetricsRequest) (*dto.ColumnMetricsResponse, error) {
	return &dto.ColumnMetricsResponse{}, nil
}

func (fakeRecords) MatchLayers(context.Context, dto.MatchLayersRequest) (*dto.MatchLayersResponse, error) {
	return &dto.MatchLayersResponse{}, nil
}

type fakeExports struct{}

func (fakeExports) Export(context.Context, dto.ExportRequest) (*dto.ExportFile, error) {
	return &dto.ExportFile{Name: "export.geojson", ContentType: "application/geo+json", Data: []byte("{}")}, nil
}

type fakeConnections struct{}

func (fakeConnections) ConnectRemote(context.Context, int64) dto.ConnectionStatus {
	return dto.ConnectionStatus{Success: true}
}

func (fakeConnections) Reconnect(context.Context, int64) dto.ConnectionStatus {
	return dto.ConnectionStatus{Success: true}
}

func (fakeConnections) TestConnection(context.Context, domain.Connection) dto.ConnectionStatus {
	return dto.ConnectionStatus{Success: true}
}

func newServer(t *testing.T, m *metrics.Metrics) *fiber.App {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{
			ReadTimeout:      time.Second,
			WriteTimeout:     time.Second,
			TileCacheControl: "no-cache",
			CORSOrigins:      "*",
		},
		Metrics: config.MetricsConfig{Enabled: m != nil, Path: "/metrics"},
	}
	log := zap.NewNop()

	srv := httpDelivery.NewServer(cfg, log, m, httpDelivery.Handlers{
		Tile:       handler.NewTileHandler(fakeTiles{}, cfg.Server.TileCacheControl, log),
		Record:     handler.NewRecordHandler(fakeRecords{}, fakeExports{}, log),
		Connection: handler.NewConnectionHandler(fakeConnections{}, log),
		Health:     handler.NewHealthHandler(nil),
	})
	return srv.App()
}

func TestServer_Routes(t *testing.T) {
	app := newServer(t, nil)

	cases := []struct {
		method, path string
		status       int
	}{
		{"GET", "/ping", fiber.StatusOK},
		{"GET", "/health", fiber.StatusOK},
		{"GET", "/ts/3/1/2.pbf?c=x", fiber.StatusOK},
		{"GET", "/ts/3/1/2.mvt?c=x", fiber.StatusOK},
		{"GET", "/ts/3/1/2?c=x", fiber.StatusOK},
		{"GET", "/ts/3/1/2.png?c=x", fiber.StatusOK},
		{"GET", "/ts/3/1/2.vector.pbf?c=x", fiber.StatusOK},
		{"GET", "/ts/0/0/0.pbf", fiber.StatusNoContent},
		{"GET", "/api/v1/layers/1/tile-url", fiber.StatusOK},
		{"POST", "/api/v1/connections/1/connect", fiber.StatusOK},
		{"POST", "/api/v1/connections/1/reconnect", fiber.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(tc.method, tc.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
		})
	}
}

func TestServer_UnknownRouteUsesErrorEnvelope(t *testing.T) {
	resp, err := newServer(t, nil).Test(httptest.NewRequest("GET", "/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestServer_CORS(t *testing.T) {
	req := httptest.NewRequest("GET", "/ts/3/1/2.pbf", nil)
	req.Header.Set("Origin", "https://map.example")

	resp, err := newServer(t, nil).Test(req)
	require.NoError(t, err)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_Metrics(t *testing.T) {
	m := metrics.New()
	app := newServer(t, m)

	_, err := app.Test(httptest.NewRequest("GET", "/ts/3/1/2.pbf", nil))
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.Contains(string(body), `tiles_http_requests_total{method="GET",route="/ts/:z/:x/:y",status="200"}`))
}

func TestServer_MetricsDisabled(t *testing.T) {
	resp, err := newServer(t, nil).Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
