package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"

	"github.com/tile-microservice/internal/domain"
)

// wgs84 - .prj для EPSG:4326
const wgs84 = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// Ограничения dBase
const (
	dbfNameLength   = 10
	dbfStringLength = 254
)

// Shapefile пишет объекты одного семейства геометрий (точки, линии или полигоны)
// и возвращает zip с .shp/.shx/.dbf/.prj. Тип берется по первой геометрии,
// объекты другого семейства и без геометрии пропускаются.
func Shapefile(name string, fields []domain.Field, features []Feature) ([]byte, int, error) {
	shapeType, ok := detectShapeType(features)
	if !ok {
		return nil, 0, fmt.Errorf("shapefile: no exportable geometry")
	}

	dir, err := os.MkdirTemp("", "export-shp-*")
	if err != nil {
		return nil, 0, err
	}
	defer os.RemoveAll(dir)

	base := filepath.Join(dir, name)
	w, err := shp.Create(base+".shp", shapeType)
	if err != nil {
		return nil, 0, fmt.Errorf("shapefile: create: %w", err)
	}

	columns := AttributeFields(fields)
	dbfFields, names := dbfSchema(columns)
	if err := w.SetFields(dbfFields); err != nil {
		w.Close()
		return nil, 0, fmt.Errorf("shapefile: fields: %w", err)
	}

	written := 0
	for _, f := range features {
		shape, ok := toShape(f.Geometry, shapeType)
		if !ok {
			continue
		}
		row := int(w.Write(shape))
		if err := w.WriteAttribute(row, 0, truncate(f.ID)); err != nil {
			w.Close()
			return nil, 0, fmt.Errorf("shapefile: attribute: %w", err)
		}
		for i, c := range columns {
			if err := w.WriteAttribute(row, i+1, dbfValue(c, f.Properties[c.Name])); err != nil {
				w.Close()
				return nil, 0, fmt.Errorf("shapefile: attribute %s: %w", names[i+1], err)
			}
		}
		written++
	}
	w.Close()

	// go-shp пишет атрибуты в "<base>dbf" без точки
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return nil, 0, fmt.Errorf("shapefile: dbf: %w", err)
	}

	if err := os.WriteFile(base+".prj", []byte(wgs84), 0o644); err != nil {
		return nil, 0, err
	}

	data, err := zipFiles(dir, name, []string{".shp", ".shx", ".dbf", ".prj"})
	if err != nil {
		return nil, 0, err
	}
	return data, written, nil
}

func detectShapeType(features []Feature) (shp.ShapeType, bool) {
	for _, f := range features {
		switch f.Geometry.(type) {
		case orb.Point:
			return shp.POINT, true
		case orb.LineString, orb.MultiLineString:
			return shp.POLYLINE, true
		case orb.Polygon, orb.MultiPolygon:
			return shp.POLYGON, true
		}
	}
	return shp.NULL, false
}

// dbfSchema - первая колонка _qid, дальше атрибуты. Имена обрезаются до 10 символов и делаются уникальными.
func dbfSchema(columns []domain.Field) ([]shp.Field, []string) {
	used := map[string]struct{}{}
	unique := func(n string) string {
		n = strings.ToUpper(n)
		if len(n) > dbfNameLength {
			n = n[:dbfNameLength]
		}
		candidate := n
		for i := 1; ; i++ {
			if _, ok := used[candidate]; !ok {
				break
			}
			suffix := fmt.Sprintf("_%d", i)
			cut := dbfNameLength - len(suffix)
			if cut > len(n) {
				cut = len(n)
			}
			candidate = n[:cut] + suffix
		}
		used[candidate] = struct{}{}
		return candidate
	}

	names := []string{unique("QID")}
	fields := []shp.Field{shp.StringField(names[0], 32)}
	for _, c := range columns {
		n := unique(c.Name)
		names = append(names, n)
		if c.Type == domain.ColumnNumber {
			fields = append(fields, shp.FloatField(n, 24, 8))
			continue
		}
		fields = append(fields, shp.StringField(n, dbfStringLength))
	}
	return fields, names
}

func dbfValue(f domain.Field, v any) any {
	if f.Type == domain.ColumnNumber {
		return toFloat(v)
	}
	return truncate(cell(v))
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case int16:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

func truncate(s string) string {
	if len(s) > dbfStringLength {
		return s[:dbfStringLength]
	}
	return s
}

func toShape(g orb.Geometry, t shp.ShapeType) (shp.Shape, bool) {
	switch geom := g.(type) {
	case orb.Point:
		if t != shp.POINT {
			return nil, false
		}
		return &shp.Point{X: geom[0], Y: geom[1]}, true

	case orb.LineString:
		if t != shp.POLYLINE {
			return nil, false
		}
		return shp.NewPolyLine([][]shp.Point{points(geom)}), true

	case orb.MultiLineString:
		if t != shp.POLYLINE || len(geom) == 0 {
			return nil, false
		}
		parts := make([][]shp.Point, 0, len(geom))
		for _, ls := range geom {
			parts = append(parts, points(ls))
		}
		return shp.NewPolyLine(parts), true

	case orb.Polygon:
		if t != shp.POLYGON || len(geom) == 0 {
			return nil, false
		}
		return polygon(rings(geom)), true

	case orb.MultiPolygon:
		if t != shp.POLYGON || len(geom) == 0 {
			return nil, false
		}
		var parts [][]shp.Point
		for _, p := range geom {
			parts = append(parts, rings(p)...)
		}
		return polygon(parts), true
	}
	return nil, false
}

func polygon(parts [][]shp.Point) *shp.Polygon {
	p := shp.Polygon(*shp.NewPolyLine(parts))
	return &p
}

// rings - внешнее кольцо по часовой стрелке, дыры против, как требует формат
func rings(p orb.Polygon) [][]shp.Point {
	out := make([][]shp.Point, 0, len(p))
	for i, r := range p {
		want := orb.CW
		if i > 0 {
			want = orb.CCW
		}
		if r.Orientation() != want {
			r = r.Clone()
			r.Reverse()
		}
		out = append(out, points(orb.LineString(r)))
	}
	return out
}

func points(ls orb.LineString) []shp.Point {
	out := make([]shp.Point, len(ls))
	for i, p := range ls {
		out[i] = shp.Point{X: p[0], Y: p[1]}
	}
	return out
}

func zipFiles(dir, name string, exts []string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, ext := range exts {
		if err := addFile(zw, filepath.Join(dir, name+ext), name+ext); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dst, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, f)
	return err
}
