package dto

import "github.com/tile-microservice/internal/domain"

// RecordsResponse - строки и описание колонок. Для countOnly заполнен только Count.
type RecordsResponse struct {
	Fields  []domain.Field  `json:"fields"`
	Records []domain.Record `json:"records"`
	Count   int64           `json:"count"`
}

// ColumnsResponse - колонки запроса
type ColumnsResponse struct {
	Fields []domain.Field `json:"fields"`
}

// ColumnMetricsResponse - категории по убыванию частоты или интервалы гистограммы по возрастанию
type ColumnMetricsResponse struct {
	Column  string                `json:"column"`
	Mode    string                `json:"mode"`
	Metrics []domain.ColumnMetric `json:"metrics"`
}

// MatchLayersResponse - слои, в которых есть строки в прямоугольнике
type MatchLayersResponse struct {
	Matches []domain.LayerMatch `json:"matches"`
}

// ConnectionStatus - результат подключения или проверки подключения
type ConnectionStatus struct {
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	Postgres string `json:"postgres,omitempty"`
	PostGIS  string `json:"postgis,omitempty"`
}

// TileURLResponse - шаблон URL тайлов слоя с закодированным контекстом
type TileURLResponse struct {
	LayerID      int64   `json:"layerId"`
	ConnectionID int64   `json:"connectionId"`
	Context      string  `json:"context"`
	URL          string  `json:"url"`
	MinZoom      float64 `json:"minZoom"`
	MaxZoom      float64 `json:"maxZoom"`
}

// ExportFile - готовый файл выгрузки
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
	Features    int
}
