// Package query собирает SQL вокруг пользовательских запросов слоя: MVT тайлы,
// выборки по прямоугольнику и по идентификаторам, метрики колонок.
//
// Пользовательский SQL всегда оборачивается в MATERIALIZED CTE innerQuery, внешние
// части собираются через squirrel. Формат плейсхолдеров остается Question и аргументы
// не используются, поэтому операторы вида jsonb ? в пользовательском SQL не трогаются.
package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

// InnerAlias - имя CTE с пользовательским запросом
const InnerAlias = "innerQuery"

var (
	ErrEmptySQL           = errors.New("query: empty sql")
	ErrNoGeometryColumn   = errors.New("query: geometry column is required")
	ErrEmptyIdentitySet   = errors.New("query: identity set is empty")
	ErrInvalidColumn      = errors.New("query: column is required")
	ErrInvalidBoundingBox = errors.New("query: invalid bounding box")
)

type cte struct {
	name string
	body string
}

func materialized(name, body string) cte {
	return cte{name: name, body: body}
}

// withClause рендерит WITH a AS MATERIALIZED (...), b AS MATERIALIZED (...)
func withClause(ctes ...cte) string {
	parts := make([]string, 0, len(ctes))
	for _, c := range ctes {
		parts = append(parts, fmt.Sprintf("%s AS MATERIALIZED (\n%s\n)", c.name, c.body))
	}
	return "WITH " + strings.Join(parts, ", ")
}

// render собирает итоговый запрос: WITH-префикс + SELECT
func render(sel sq.SelectBuilder, ctes ...cte) (string, error) {
	if len(ctes) > 0 {
		sel = sel.Prefix(withClause(ctes...))
	}
	sql, _, err := sel.ToSql()
	if err != nil {
		return "", fmt.Errorf("query: %w", err)
	}
	return sql, nil
}

// subquery рендерит SELECT без WITH, для вложения в CTE
func subquery(sel sq.SelectBuilder) (string, error) {
	return render(sel)
}

// userSQL подготавливает пользовательский запрос к вложению в CTE
func userSQL(sql string) (string, error) {
	s := strings.TrimSpace(sql)
	for strings.HasSuffix(s, ";") {
		s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	}
	if s == "" {
		return "", ErrEmptySQL
	}
	return s, nil
}

// Ident экранирует имя колонки
func Ident(name string) string {
	return pq.QuoteIdentifier(name)
}

func geometryIdent(col string) (string, error) {
	col = strings.TrimSpace(col)
	if col == "" {
		return "", ErrNoGeometryColumn
	}
	return Ident(col), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
