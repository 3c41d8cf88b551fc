// Package export превращает строки выборки (с колонкой _qgeojson) в файлы GeoJSON, CSV и Shapefile.
package export

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/tile-microservice/internal/domain"
)

// Feature - геометрия строки и ее атрибуты без служебных колонок
type Feature struct {
	ID         string
	Geometry   orb.Geometry
	Properties map[string]any
}

// Features разбирает строки выборки. Строки без геометрии сохраняются с Geometry == nil.
func Features(rs domain.RecordSet) ([]Feature, error) {
	out := make([]Feature, 0, len(rs.Records))
	columns := AttributeFields(rs.Fields)

	for i, rec := range rs.Records {
		geom, err := geometryOf(rec[domain.GeoJSONColumn])
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		props := make(map[string]any, len(columns))
		for _, f := range columns {
			props[f.Name] = rec[f.Name]
		}
		out = append(out, Feature{ID: rec.Identity(), Geometry: geom, Properties: props})
	}
	return out, nil
}

// AttributeFields - колонки, которые выгружаются как атрибуты
func AttributeFields(fields []domain.Field) []domain.Field {
	out := make([]domain.Field, 0, len(fields))
	for _, f := range fields {
		if f.Type == domain.ColumnGeometry {
			continue
		}
		switch f.Name {
		case domain.IdentityColumn, domain.GeoJSONColumn, domain.EnvelopeColumn, domain.TileGeometryColumn:
			continue
		}
		out = append(out, f)
	}
	return out
}

// geometryOf принимает JSONB так, как его отдает драйвер: map, строку или байты
func geometryOf(v any) (orb.Geometry, error) {
	var raw []byte
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		raw = []byte(val)
	case []byte:
		raw = val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		raw = b
	}

	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, fmt.Errorf("parse geometry: %w", err)
	}
	return g.Geometry(), nil
}
