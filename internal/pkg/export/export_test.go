package export

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tile-microservice/internal/domain"
)

func sampleRecords() domain.RecordSet {
	return domain.RecordSet{
		Fields: []domain.Field{
			{Name: "id", Type: domain.ColumnNumber},
			{Name: "name", Type: domain.ColumnString},
			{Name: "geom", Type: domain.ColumnGeometry},
			{Name: domain.IdentityColumn, Type: domain.ColumnString},
			{Name: domain.GeoJSONColumn, Type: domain.ColumnString},
			{Name: domain.EnvelopeColumn, Type: domain.ColumnString},
		},
		Records: []domain.Record{
			{
				"id": int64(1), "name": "a",
				domain.IdentityColumn: "q1",
				domain.GeoJSONColumn:  map[string]any{"type": "Point", "coordinates": []any{2.0, 41.0}},
			},
			{
				"id": int64(2), "name": "b",
				domain.IdentityColumn: "q2",
				domain.GeoJSONColumn:  `{"type":"Point","coordinates":[2.1,41.1]}`,
			},
		},
	}
}

func TestFeatures(t *testing.T) {
	features, err := Features(sampleRecords())
	require.NoError(t, err)
	require.Len(t, features, 2)

	assert.Equal(t, "q1", features[0].ID)
	assert.Equal(t, orb.Point{2, 41}, features[0].Geometry)
	assert.Equal(t, map[string]any{"id": int64(1), "name": "a"}, features[0].Properties)
	assert.Equal(t, orb.Point{2.1, 41.1}, features[1].Geometry)
}

func TestFeatures_BadGeometry(t *testing.T) {
	rs := domain.RecordSet{Records: []domain.Record{{domain.GeoJSONColumn: "not json"}}}
	_, err := Features(rs)
	assert.Error(t, err)
}

func TestGeoJSON(t *testing.T) {
	features, err := Features(sampleRecords())
	require.NoError(t, err)

	data, err := GeoJSON(features)
	require.NoError(t, err)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			ID         string         `json:"id"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "q1", fc.Features[0].ID)
	assert.Equal(t, "a", fc.Features[0].Properties["name"])
}

func TestCSV(t *testing.T) {
	rs := sampleRecords()
	features, err := Features(rs)
	require.NoError(t, err)

	data, err := CSV(rs.Fields, features)
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"_qid", "id", "name", "wkt"}, rows[0])
	assert.Equal(t, []string{"q1", "1", "a", "POINT(2 41)"}, rows[1])
}

func TestShapefile_Points(t *testing.T) {
	rs := sampleRecords()
	features, err := Features(rs)
	require.NoError(t, err)

	data, written, err := Shapefile("parcels", rs.Fields, features)
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	dir := t.TempDir()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	names := make([]string, 0, len(zr.File))
	for _, zf := range zr.File {
		names = append(names, zf.Name)
		rc, err := zf.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		_ = rc.Close()
		require.NoError(t, os.WriteFile(filepath.Join(dir, zf.Name), content, 0o644))
	}
	assert.ElementsMatch(t, []string{"parcels.shp", "parcels.shx", "parcels.dbf", "parcels.prj"}, names)

	reader, err := shp.Open(filepath.Join(dir, "parcels.shp"))
	require.NoError(t, err)
	defer reader.Close()

	count := 0
	for reader.Next() {
		_, shape := reader.Shape()
		require.IsType(t, &shp.Point{}, shape)
		count++
	}
	assert.Equal(t, 2, count)

	// атрибуты читаются из parcels.dbf рядом с .shp
	require.Len(t, reader.Fields(), 3)
	attr := func(row, field int) string {
		return strings.TrimRight(reader.ReadAttribute(row, field), "\x00 ")
	}
	assert.Equal(t, "q1", attr(0, 0))
	assert.Equal(t, "b", attr(1, 2))
}

func TestShapefile_NoGeometry(t *testing.T) {
	_, _, err := Shapefile("empty", nil, []Feature{{ID: "x"}})
	assert.Error(t, err)
}

func TestRingsOrientation(t *testing.T) {
	ccw := orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}
	parts := rings(ccw)
	require.Len(t, parts, 1)

	ring := make(orb.Ring, len(parts[0]))
	for i, p := range parts[0] {
		ring[i] = orb.Point{p.X, p.Y}
	}
	assert.Equal(t, orb.CW, ring.Orientation())
	// исходный полигон не изменился
	assert.Equal(t, orb.CCW, ccw[0].Orientation())
}

func TestDbfSchemaUniqueNames(t *testing.T) {
	_, names := dbfSchema([]domain.Field{
		{Name: "population_total", Type: domain.ColumnNumber},
		{Name: "population_total_2020", Type: domain.ColumnNumber},
	})
	assert.Equal(t, []string{"QID", "POPULATION", "POPULATI_1"}, names)
}
