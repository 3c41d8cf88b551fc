package domain

// ColumnType - упрощенный тип колонки результата
type ColumnType string

const (
	ColumnGeometry ColumnType = "geometry"
	ColumnDate     ColumnType = "date"
	ColumnNumber   ColumnType = "number"
	ColumnString   ColumnType = "string"
)

// Служебные колонки, которые добавляются к каждой строке результата
const (
	IdentityColumn     = "_qid"
	TileGeometryColumn = "_qgeom"
	GeoJSONColumn      = "_qgeojson"
	EnvelopeColumn     = "_qbbox"
	TileLayerName      = "vectile"
)

// Field - описание колонки результата
type Field struct {
	Name   string     `json:"name"`
	TypeID uint32     `json:"dataTypeID"`
	Type   ColumnType `json:"type"`
}

// Record - строка результата, ключ - имя колонки
type Record map[string]any

// Identity возвращает _qid строки, если он есть
func (r Record) Identity() string {
	s, _ := r[IdentityColumn].(string)
	return s
}

// RecordSet - результат запроса вместе с описанием колонок
type RecordSet struct {
	Fields  []Field  `json:"fields"`
	Records []Record `json:"records"`
}

// Len - количество строк
func (rs RecordSet) Len() int {
	return len(rs.Records)
}

// ColumnMetric - частота категории или интервала гистограммы
type ColumnMetric struct {
	Field     any     `json:"field,omitempty"`
	Count     int64   `json:"count,omitempty"`
	Total     int64   `json:"total,omitempty"`
	Bin       int     `json:"bin,omitempty"`
	Low       float64 `json:"low,omitempty"`
	High      float64 `json:"high,omitempty"`
	Frequency int64   `json:"frequency"`
}

// LayerMatch - результат предварительного подсчета для слоя
type LayerMatch struct {
	LayerID int64 `json:"layerId"`
	Count   int64 `json:"count"`
}
