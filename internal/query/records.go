package query

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/tile-microservice/internal/domain"
)

// BboxRequest - выборка строк слоя, пересекающих прямоугольник
type BboxRequest struct {
	SQL            string
	GeometryColumn string
	Box            domain.BoundingBox
	// CountOnly - вернуть только COUNT(*), без строк
	CountOnly bool
}

// MakeEnvelope - прямоугольник в 4326
func MakeEnvelope(b domain.BoundingBox) string {
	return fmt.Sprintf("ST_MakeEnvelope(%s, %s, %s, %s, 4326)",
		formatFloat(b.SwLng), formatFloat(b.SwLat), formatFloat(b.NeLng), formatFloat(b.NeLat))
}

// featureColumns - все колонки строки плюс _qid, GeoJSON геометрии и ее охвата
func featureColumns(geom string) []string {
	return []string{
		"*",
		identityColumn(),
		fmt.Sprintf("ST_AsGeoJSON(%s)::JSONB AS %s", geom, domain.GeoJSONColumn),
		fmt.Sprintf("ST_AsGeoJSON(ST_Envelope(%s))::JSONB AS %s", geom, domain.EnvelopeColumn),
	}
}

// BuildBbox собирает выборку по прямоугольнику
func BuildBbox(req BboxRequest) (string, error) {
	inner, err := userSQL(req.SQL)
	if err != nil {
		return "", err
	}
	geom, err := geometryIdent(req.GeometryColumn)
	if err != nil {
		return "", err
	}
	b := req.Box
	if b.SwLng > b.NeLng || b.SwLat > b.NeLat {
		return "", ErrInvalidBoundingBox
	}

	var sel sq.SelectBuilder
	if req.CountOnly {
		sel = sq.Select("COUNT(*) AS count")
	} else {
		sel = sq.Select(featureColumns(geom)...)
	}
	sel = sel.From(InnerAlias).
		Where(fmt.Sprintf("ST_Intersects(%s, %s)", geom, MakeEnvelope(b)))

	return render(sel, materialized(InnerAlias, inner))
}

// BuildByIdentity собирает выборку строк по набору _qid, одна строка на идентификатор
func BuildByIdentity(sql, geometryColumn string, ids []string) (string, error) {
	inner, err := userSQL(sql)
	if err != nil {
		return "", err
	}
	geom, err := geometryIdent(geometryColumn)
	if err != nil {
		return "", err
	}

	literals := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		literals = append(literals, pq.QuoteLiteral(id))
	}
	if len(literals) == 0 {
		return "", ErrEmptyIdentitySet
	}

	id := Identity(InnerAlias)
	sel := sq.Select(featureColumns(geom)...).
		Options(fmt.Sprintf("DISTINCT ON (%s)", id)).
		From(InnerAlias).
		Where(fmt.Sprintf("%s IN (%s)", id, strings.Join(literals, ", ")))

	return render(sel, materialized(InnerAlias, inner))
}

// BuildColumns - первая строка запроса, чтобы получить описание колонок
func BuildColumns(sql string) (string, error) {
	inner, err := userSQL(sql)
	if err != nil {
		return "", err
	}
	return render(sq.Select("*").From("(" + inner + "\n) x").Limit(1))
}
