package query

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/tile-microservice/internal/domain"
)

// Параметры MVT
const (
	MVTExtent = 4096
	MVTBuffer = 0
)

// TileRequest - входные данные для сборки запроса тайла
type TileRequest struct {
	SQL            string
	GeometryColumn string
	Kind           domain.GeometryKind
	Coord          domain.TileCoord
	// StyleColumns - колонки data-driven свойств активного стиля
	StyleColumns []string
}

// TileEnvelope - границы тайла в 4326
func TileEnvelope(c domain.TileCoord) string {
	return fmt.Sprintf("ST_Transform(ST_SetSRID(ST_TileEnvelope(%d, %d, %d), 3857), 4326)", c.Z, c.X, c.Y)
}

// BuildTile собирает запрос, возвращающий одну строку с одной bytea колонкой mvt.
// Для одинаковых входных данных результат байт-в-байт одинаковый.
func BuildTile(req TileRequest) (string, error) {
	inner, err := userSQL(req.SQL)
	if err != nil {
		return "", err
	}
	geom, err := geometryIdent(req.GeometryColumn)
	if err != nil {
		return "", err
	}

	plan := Policy(float64(req.Coord.Z), req.Kind)
	bbox := TileEnvelope(req.Coord)

	// фильтр по упрощенной геометрии: объекты, схлопнувшиеся в пустую геометрию, отбрасываются
	geometry := plan.GeometryExpr(geom)
	columns := []string{
		fmt.Sprintf("ST_AsMVTGeom(%s, %s, %d, %d, false) AS %s",
			geometry, bbox, MVTExtent, MVTBuffer, domain.TileGeometryColumn),
		identityColumn(),
	}
	columns = append(columns, styleColumns(req.StyleColumns)...)

	js := sq.Select(columns...).
		From(InnerAlias).
		Where(fmt.Sprintf("ST_Intersects(%s, %s)", geometry, bbox)).
		Where(fmt.Sprintf("NOT ST_IsEmpty(%s)", geometry))
	if distinct := plan.DistinctExpr(geom); distinct != "" {
		js = js.Options(distinct)
	}

	jsSQL, err := subquery(js)
	if err != nil {
		return "", err
	}

	final := sq.Select(fmt.Sprintf("ST_AsMVT(js, '%s', %d, '%s') AS mvt",
		domain.TileLayerName, MVTExtent, domain.TileGeometryColumn)).
		From("js")

	return render(final, materialized(InnerAlias, inner), materialized("js", jsSQL))
}

// styleColumns экранирует колонки стиля, убирает повторы и служебные имена
func styleColumns(cols []string) []string {
	seen := map[string]struct{}{
		domain.TileGeometryColumn: {},
		domain.IdentityColumn:     {},
	}
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, Ident(c))
	}
	return out
}
