package dto

import "github.com/tile-microservice/internal/domain"

// RemoteQuery - общая часть запросов к удаленной базе: подключение, SQL слоя и переменные шаблона
type RemoteQuery struct {
	ConnectionID int64            `json:"connectionId" validate:"required,gt=0"`
	SQL          string           `json:"sql" validate:"sqlcode"`
	Variables    domain.Variables `json:"variables,omitempty"`
}

// BboxRecordsRequest - строки, пересекающие прямоугольник
type BboxRecordsRequest struct {
	RemoteQuery
	GeometryColumn string             `json:"geometryColumn" validate:"required"`
	Box            domain.BoundingBox `json:"bbox"`
	// CountOnly - вернуть только количество строк
	CountOnly     bool `json:"countOnly"`
	StripGeometry bool `json:"stripGeometry"`
}

// IdentityRecordsRequest - строки по набору _qid
type IdentityRecordsRequest struct {
	RemoteQuery
	GeometryColumn string   `json:"geometryColumn" validate:"required"`
	IDs            []string `json:"ids" validate:"max=10000"`
	StripGeometry  bool     `json:"stripGeometry"`
}

// ColumnsRequest - описание колонок запроса
type ColumnsRequest struct {
	RemoteQuery
}

// Режимы метрик колонки
const (
	MetricsCategorical = "categorical"
	MetricsNumeric     = "numeric"
)

// ColumnMetricsRequest - частоты значений колонки или гистограмма
type ColumnMetricsRequest struct {
	RemoteQuery
	Column string `json:"column" validate:"required"`
	Mode   string `json:"mode" validate:"required,oneof=categorical numeric"`
	// Limit - число категорий или интервалов гистограммы, 0 - по умолчанию
	Limit int `json:"limit" validate:"omitempty,min=1,max=1000"`
}

// MatchLayersRequest - предварительный подсчет строк в прямоугольнике по нескольким слоям
type MatchLayersRequest struct {
	LayerIDs         []int64            `json:"layerIds" validate:"required,min=1,max=100"`
	EnvironmentID    int64              `json:"environmentId"`
	SubEnvironmentID int64              `json:"subEnvironmentId"`
	Box              domain.BoundingBox `json:"bbox"`
	// Variables перекрывают переменные окружения
	Variables domain.Variables `json:"variables,omitempty"`
}

// TestConnectionRequest - проверка параметров подключения без сохранения
type TestConnectionRequest struct {
	Connection domain.Connection `json:"connection"`
}

// Форматы выгрузки
const (
	FormatGeoJSON   = "geojson"
	FormatCSV       = "csv"
	FormatShapefile = "shapefile"
)

// ExportRequest - выгрузка строк прямоугольника или набора _qid в файл
type ExportRequest struct {
	RemoteQuery
	GeometryColumn string              `json:"geometryColumn" validate:"required"`
	Box            *domain.BoundingBox `json:"bbox,omitempty"`
	IDs            []string            `json:"ids,omitempty"`
	Format         string              `json:"format" validate:"required,oneof=geojson csv shapefile"`
	// Name - базовое имя файла без расширения
	Name string `json:"name" validate:"omitempty,max=64"`
}
