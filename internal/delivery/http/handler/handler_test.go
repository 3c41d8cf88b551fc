package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tile-microservice/internal/delivery/http/handler"
	"github.com/tile-microservice/internal/domain"
	apperrors "github.com/tile-microservice/internal/pkg/errors"
	"github.com/tile-microservice/internal/usecase/dto"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, body io.Reader) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(body).Decode(&env))
	return env
}

func newTileApp(svc *MockTileService) *fiber.App {
	h := handler.NewTileHandler(svc, "public, max-age=60", zap.NewNop())
	app := fiber.New()
	app.Get("/ts/:z/:x/:y", h.GetTile)
	app.Get("/api/v1/layers/:id/tile-url", h.GetTileURL)
	return app
}

func TestTileHandler_GetTile_OK(t *testing.T) {
	svc := new(MockTileService)
	svc.On("GetTile", mock.Anything, domain.TileCoord{Z: 3, X: 4, Y: 2}, "abc").
		Return([]byte{0x1a, 0x02}, nil)

	resp, err := newTileApp(svc).Test(httptest.NewRequest("GET", "/ts/3/4/2.pbf?c=abc", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-protobuf", resp.Header.Get("Content-Type"))
	assert.Equal(t, "public, max-age=60", resp.Header.Get("Cache-Control"))
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, []byte{0x1a, 0x02}, body)
	svc.AssertExpectations(t)
}

func TestTileHandler_GetTile_WithoutExtension(t *testing.T) {
	svc := new(MockTileService)
	svc.On("GetTile", mock.Anything, domain.TileCoord{Z: 0, X: 0, Y: 0}, "").
		Return([]byte{0x01}, nil)

	resp, err := newTileApp(svc).Test(httptest.NewRequest("GET", "/ts/0/0/0", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestTileHandler_GetTile_AnyExtension(t *testing.T) {
	for _, path := range []string{"/ts/5/10/12.mvt", "/ts/5/10/12.png", "/ts/5/10/12.vector.pbf"} {
		t.Run(path, func(t *testing.T) {
			svc := new(MockTileService)
			svc.On("GetTile", mock.Anything, domain.TileCoord{Z: 5, X: 10, Y: 12}, "").
				Return([]byte{0x01}, nil)

			resp, err := newTileApp(svc).Test(httptest.NewRequest("GET", path, nil))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			svc.AssertExpectations(t)
		})
	}
}

func TestTileHandler_GetTile_EmptyIsNoContent(t *testing.T) {
	svc := new(MockTileService)
	svc.On("GetTile", mock.Anything, mock.Anything, "ctx").Return(nil, nil)

	resp, err := newTileApp(svc).Test(httptest.NewRequest("GET", "/ts/1/0/0.pbf?c=ctx", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Empty(t, body)
}

func TestTileHandler_GetTile_ErrorsDegradeToNoContent(t *testing.T) {
	for name, err := range map[string]error{
		"bad context":  apperrors.ErrInvalidTileContext,
		"remote error": apperrors.ErrQueryFailed.WithMessage(`relation "foo" does not exist`),
		"unknown":      errors.New("boom"),
	} {
		t.Run(name, func(t *testing.T) {
			svc := new(MockTileService)
			svc.On("GetTile", mock.Anything, mock.Anything, mock.Anything).Return(nil, err)

			resp, reqErr := newTileApp(svc).Test(httptest.NewRequest("GET", "/ts/2/1/1.pbf?c=x", nil))
			require.NoError(t, reqErr)
			assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
		})
	}
}

func TestTileHandler_GetTile_InvalidCoordinates(t *testing.T) {
	svc := new(MockTileService)

	resp, err := newTileApp(svc).Test(httptest.NewRequest("GET", "/ts/a/1/1.pbf", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	svc.AssertNotCalled(t, "GetTile", mock.Anything, mock.Anything, mock.Anything)

	svc.On("GetTile", mock.Anything, domain.TileCoord{Z: 1, X: 5, Y: 0}, "").
		Return(nil, apperrors.ErrInvalidTileCoordinates)
	resp, err = newTileApp(svc).Test(httptest.NewRequest("GET", "/ts/1/5/0.pbf", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestTileHandler_GetTileURL(t *testing.T) {
	svc := new(MockTileService)
	svc.On("TileURL", mock.Anything, int64(7), int64(2), int64(0)).Return(&dto.TileURLResponse{
		LayerID:      7,
		ConnectionID: 3,
		Context:      "eyJ9",
		URL:          "/ts/{z}/{x}/{y}.pbf?c=eyJ9",
	}, nil)

	resp, err := newTileApp(svc).Test(httptest.NewRequest("GET", "/api/v1/layers/7/tile-url?environmentId=2", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	env := decode(t, resp.Body)
	assert.True(t, env.Success)
	var data dto.TileURLResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, int64(3), data.ConnectionID)
	assert.Equal(t, "/ts/{z}/{x}/{y}.pbf?c=eyJ9", data.URL)
}

func TestTileHandler_GetTileURL_LayerNotFound(t *testing.T) {
	svc := new(MockTileService)
	svc.On("TileURL", mock.Anything, int64(9), int64(0), int64(0)).Return(nil, apperrors.ErrLayerNotFound)

	resp, err := newTileApp(svc).Test(httptest.NewRequest("GET", "/api/v1/layers/9/tile-url", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, apperrors.ErrLayerNotFound.Code, decode(t, resp.Body).Error.Code)
}

func TestTileHandler_GetTileURL_BadID(t *testing.T) {
	resp, err := newTileApp(new(MockTileService)).Test(httptest.NewRequest("GET", "/api/v1/layers/abc/tile-url", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func newRecordApp(records *MockRecordService, exports *MockExportService) *fiber.App {
	h := handler.NewRecordHandler(records, exports, zap.NewNop())
	app := fiber.New()
	app.Post("/records/bbox", h.ByBbox)
	app.Post("/records/identity", h.ByIdentity)
	app.Post("/records/columns", h.Columns)
	app.Post("/records/metrics", h.Metrics)
	app.Post("/records/match", h.Match)
	app.Post("/records/export", h.Export)
	return app
}

func jsonRequest(path, body string) *http.Request {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRecordHandler_ByBbox(t *testing.T) {
	records := new(MockRecordService)
	records.On("RecordsByBbox", mock.Anything, mock.MatchedBy(func(req dto.BboxRecordsRequest) bool {
		return req.ConnectionID == 1 &&
			req.SQL == "SELECT * FROM parcels WHERE zone = '{{zone}}'" &&
			req.Variables["zone"] == "A" &&
			req.GeometryColumn == "geom" &&
			req.Box == domain.BoundingBox{SwLng: 2, SwLat: 41, NeLng: 3, NeLat: 42}
	})).Return(&dto.RecordsResponse{
		Fields:  []domain.Field{{Name: "_qid", Type: domain.ColumnString}},
		Records: []domain.Record{{"_qid": "a1"}},
		Count:   1,
	}, nil)

	body := `{"connectionId":1,"sql":"SELECT * FROM parcels WHERE zone = '{{zone}}'","variables":{"zone":"A"},
		"geometryColumn":"geom","bbox":{"swLng":2,"swLat":41,"neLng":3,"neLat":42}}`
	resp, err := newRecordApp(records, nil).Test(jsonRequest("/records/bbox", body))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	env := decode(t, resp.Body)
	assert.True(t, env.Success)
	var data dto.RecordsResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, int64(1), data.Count)
	assert.Equal(t, "a1", data.Records[0]["_qid"])
	records.AssertExpectations(t)
}

func TestRecordHandler_ValidationFailure(t *testing.T) {
	records := new(MockRecordService)
	app := newRecordApp(records, nil)

	resp, err := app.Test(jsonRequest("/records/bbox", `{"sql":"  ","geometryColumn":"geom"}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	env := decode(t, resp.Body)
	require.NotNil(t, env.Error)
	assert.Equal(t, apperrors.ErrValidation.Code, env.Error.Code)
	assert.Contains(t, env.Error.Details, "ConnectionID")
	assert.Contains(t, env.Error.Details, "SQL")
	records.AssertNotCalled(t, "RecordsByBbox", mock.Anything, mock.Anything)
}

func TestRecordHandler_MalformedBody(t *testing.T) {
	resp, err := newRecordApp(new(MockRecordService), nil).Test(jsonRequest("/records/columns", `{"connectionId":`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestRecordHandler_RemoteErrorIsReturned(t *testing.T) {
	records := new(MockRecordService)
	records.On("TableColumns", mock.Anything, mock.Anything).
		Return(nil, apperrors.ErrQueryFailed.WithMessage(`relation "nope" does not exist`))

	resp, err := newRecordApp(records, nil).Test(jsonRequest("/records/columns", `{"connectionId":1,"sql":"SELECT * FROM nope"}`))
	require.NoError(t, err)
	assert.Equal(t, apperrors.ErrQueryFailed.StatusCode, resp.StatusCode)

	env := decode(t, resp.Body)
	assert.Equal(t, `relation "nope" does not exist`, env.Error.Message)
}

func TestRecordHandler_Metrics(t *testing.T) {
	records := new(MockRecordService)
	records.On("ColumnMetrics", mock.Anything, mock.MatchedBy(func(req dto.ColumnMetricsRequest) bool {
		return req.Column == "zone" && req.Mode == dto.MetricsCategorical && req.Limit == 5
	})).Return(&dto.ColumnMetricsResponse{
		Column: "zone",
		Mode:   dto.MetricsCategorical,
		Metrics: []domain.ColumnMetric{
			{Field: "A", Count: 3, Total: 4, Frequency: 3},
			{Field: "B", Count: 1, Total: 4, Frequency: 1},
		},
	}, nil)

	body := `{"connectionId":1,"sql":"SELECT * FROM parcels","column":"zone","mode":"categorical","limit":5}`
	resp, err := newRecordApp(records, nil).Test(jsonRequest("/records/metrics", body))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var data dto.ColumnMetricsResponse
	require.NoError(t, json.Unmarshal(decode(t, resp.Body).Data, &data))
	assert.Len(t, data.Metrics, 2)
}

func TestRecordHandler_MetricsRejectsUnknownMode(t *testing.T) {
	body := `{"connectionId":1,"sql":"SELECT 1","column":"zone","mode":"median"}`
	resp, err := newRecordApp(new(MockRecordService), nil).Test(jsonRequest("/records/metrics", body))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestRecordHandler_Identity(t *testing.T) {
	records := new(MockRecordService)
	records.On("RecordsByIdentity", mock.Anything, mock.MatchedBy(func(req dto.IdentityRecordsRequest) bool {
		return len(req.IDs) == 2 && req.StripGeometry
	})).Return(&dto.RecordsResponse{Count: 2}, nil)

	body := `{"connectionId":1,"sql":"SELECT * FROM parcels","geometryColumn":"geom","ids":["a","b"],"stripGeometry":true}`
	resp, err := newRecordApp(records, nil).Test(jsonRequest("/records/identity", body))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	records.AssertExpectations(t)
}

func TestRecordHandler_Match(t *testing.T) {
	records := new(MockRecordService)
	records.On("MatchLayers", mock.Anything, mock.MatchedBy(func(req dto.MatchLayersRequest) bool {
		return len(req.LayerIDs) == 3 && req.EnvironmentID == 4
	})).Return(&dto.MatchLayersResponse{
		Matches: []domain.LayerMatch{{LayerID: 1, Count: 2}, {LayerID: 3, Count: 1}},
	}, nil)

	body := `{"layerIds":[1,2,3],"environmentId":4,"bbox":{"swLng":0,"swLat":0,"neLng":1,"neLat":1}}`
	resp, err := newRecordApp(records, nil).Test(jsonRequest("/records/match", body))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var data dto.MatchLayersResponse
	require.NoError(t, json.Unmarshal(decode(t, resp.Body).Data, &data))
	assert.Len(t, data.Matches, 2)
}

func TestRecordHandler_Export(t *testing.T) {
	exports := new(MockExportService)
	exports.On("Export", mock.Anything, mock.MatchedBy(func(req dto.ExportRequest) bool {
		return req.Format == dto.FormatCSV && req.Box != nil
	})).Return(&dto.ExportFile{
		Name:        "parcels.csv",
		ContentType: "text/csv",
		Data:        []byte("_qid,wkt\n"),
		Features:    0,
	}, nil)

	body := `{"connectionId":1,"sql":"SELECT * FROM parcels","geometryColumn":"geom","format":"csv",
		"bbox":{"swLng":0,"swLat":0,"neLng":1,"neLat":1}}`
	resp, err := newRecordApp(nil, exports).Test(jsonRequest("/records/export", body))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="parcels.csv"`, resp.Header.Get("Content-Disposition"))
	data, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "_qid,wkt\n", string(data))
}

func newConnectionApp(svc *MockConnectionService) *fiber.App {
	h := handler.NewConnectionHandler(svc, zap.NewNop())
	app := fiber.New()
	app.Post("/connections/test", h.Test)
	app.Post("/connections/:id/connect", h.Connect)
	app.Post("/connections/:id/reconnect", h.Reconnect)
	return app
}

func TestConnectionHandler_ConnectFailureIsStillOK(t *testing.T) {
	svc := new(MockConnectionService)
	svc.On("ConnectRemote", mock.Anything, int64(5)).Return(dto.ConnectionStatus{
		Success: false,
		Error:   "dial tcp: connection refused",
	})

	resp, err := newConnectionApp(svc).Test(httptest.NewRequest("POST", "/connections/5/connect", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var status dto.ConnectionStatus
	require.NoError(t, json.Unmarshal(decode(t, resp.Body).Data, &status))
	assert.False(t, status.Success)
	assert.NotEmpty(t, status.Error)
}

func TestConnectionHandler_Reconnect(t *testing.T) {
	svc := new(MockConnectionService)
	svc.On("Reconnect", mock.Anything, int64(2)).Return(dto.ConnectionStatus{Success: true, Postgres: "16.2", PostGIS: "3.4.2"})

	resp, err := newConnectionApp(svc).Test(httptest.NewRequest("POST", "/connections/2/reconnect", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	svc.AssertExpectations(t)
}

func TestConnectionHandler_Test(t *testing.T) {
	svc := new(MockConnectionService)
	svc.On("TestConnection", mock.Anything, mock.MatchedBy(func(c domain.Connection) bool {
		return c.Host == "db.example" && c.Database == "gis" && c.Port == 5433
	})).Return(dto.ConnectionStatus{Success: true})

	body := `{"connection":{"host":"db.example","port":5433,"database":"gis","username":"u","password":"p"}}`
	resp, err := newConnectionApp(svc).Test(jsonRequest("/connections/test", body))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	svc.AssertExpectations(t)
}

func TestConnectionHandler_TestRequiresHost(t *testing.T) {
	resp, err := newConnectionApp(new(MockConnectionService)).
		Test(jsonRequest("/connections/test", `{"connection":{"database":"gis"}}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestConnectionHandler_BadID(t *testing.T) {
	resp, err := newConnectionApp(new(MockConnectionService)).Test(httptest.NewRequest("POST", "/connections/0/connect", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHealthHandler(t *testing.T) {
	h := handler.NewHealthHandler(map[string]handler.HealthCheck{
		"metadata": func(context.Context) error { return nil },
	})
	app := fiber.New()
	app.Get("/ping", h.Ping)
	app.Get("/health", h.Health)

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"message":"pong"}`, string(body))

	resp, err = app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	h := handler.NewHealthHandler(map[string]handler.HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	app := fiber.New()
	app.Get("/health", h.Health)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "unhealthy", out["status"])
}
