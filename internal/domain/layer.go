package domain

import (
	"fmt"
	"strings"
)

// GeometryKind - тип геометрии слоя. Определяет политику упрощения и набор paint-свойств.
type GeometryKind string

const (
	KindPoint           GeometryKind = "point"
	KindLine            GeometryKind = "line"
	KindPolygon         GeometryKind = "polygon"
	KindExtrudedPolygon GeometryKind = "extrudedPolygon"
)

// paintPrefixes используется только на границе сериализации стиля
var paintPrefixes = map[GeometryKind]string{
	KindPoint:           "circle",
	KindLine:            "line",
	KindPolygon:         "fill",
	KindExtrudedPolygon: "fillExtrusion",
}

// ParseGeometryKind принимает идентификатор типа геометрии слоя
func ParseGeometryKind(s string) (GeometryKind, error) {
	k := GeometryKind(strings.TrimSpace(s))
	if _, ok := paintPrefixes[k]; !ok {
		return "", fmt.Errorf("unknown geometry kind %q", s)
	}
	return k, nil
}

func (k GeometryKind) Valid() bool {
	_, ok := paintPrefixes[k]
	return ok
}

// PaintPrefix - префикс ключей стиля для этого типа (circle, line, fill, fillExtrusion)
func (k GeometryKind) PaintPrefix() string {
	return paintPrefixes[k]
}

// IsAreal - полигональные типы упрощаются и кластеризуются по самой геометрии
func (k GeometryKind) IsAreal() bool {
	return k == KindPolygon || k == KindExtrudedPolygon
}

// Layer - слой, заданный пользовательским SQL
type Layer struct {
	ID             int64        `json:"id" yaml:"id"`
	Order          int          `json:"order" yaml:"order"`
	Name           string       `json:"name" yaml:"name"`
	Code           string       `json:"code" yaml:"code"`
	GeometryColumn string       `json:"geometryColumn" yaml:"geometryColumn"`
	Kind           GeometryKind `json:"geometryKind" yaml:"geometryKind"`
	Style          Style        `json:"style" yaml:"-"`
	Fields         []Field      `json:"fields,omitempty" yaml:"-"`
	Visible        bool         `json:"visible" yaml:"visible"`
	// MinZoom и MaxZoom - проценты от диапазона зума рендерера
	MinZoom      float64 `json:"minZoom" yaml:"minZoom"`
	MaxZoom      float64 `json:"maxZoom" yaml:"maxZoom"`
	WorkspaceID  int64   `json:"workspaceId" yaml:"workspaceId"`
	DataSourceID int64   `json:"dataSourceId" yaml:"dataSourceId"`
}

// GeometryColumnOrDefault возвращает колонку геометрии, по умолчанию "geom"
func (l *Layer) GeometryColumnOrDefault() string {
	if strings.TrimSpace(l.GeometryColumn) == "" {
		return "geom"
	}
	return l.GeometryColumn
}

// ZoomRange переводит процентный диапазон слоя в уровни зума рендерера (0-24)
func (l *Layer) ZoomRange() (float64, float64) {
	maxPct := l.MaxZoom
	if maxPct <= 0 {
		maxPct = 100
	}
	return percentToZoom(l.MinZoom), percentToZoom(maxPct)
}

// VisibleAt - слой включен и зум попадает в его диапазон
func (l *Layer) VisibleAt(zoom float64) bool {
	if !l.Visible {
		return false
	}
	lo, hi := l.ZoomRange()
	return zoom >= lo && zoom <= hi
}

func percentToZoom(percent float64) float64 {
	return percent * 24 / 100
}
