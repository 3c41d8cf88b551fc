package query

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

const (
	MaxDistinctCategories = 50
	HistogramBins         = 100
)

// BuildCategoricalMetrics - top-N значений колонки по частоте
func BuildCategoricalMetrics(sql, column string, limit int) (string, error) {
	inner, err := userSQL(sql)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(column) == "" {
		return "", ErrInvalidColumn
	}
	if limit <= 0 {
		limit = MaxDistinctCategories
	}
	col := Ident(column)

	counts, err := subquery(sq.Select(col+" AS field", "COUNT(*) AS count").
		From(InnerAlias).
		GroupBy(col))
	if err != nil {
		return "", err
	}

	sel := sq.Select("field", "count", "COUNT(*) OVER() AS total").
		From("counts").
		OrderBy("count DESC").
		Limit(uint64(limit))

	return render(sel, materialized(InnerAlias, inner), materialized("counts", counts))
}

// BuildNumericMetrics - гистограмма колонки из bins равных интервалов между min и max.
// Пустые интервалы возвращаются с частотой 0.
func BuildNumericMetrics(sql, column string, bins int) (string, error) {
	inner, err := userSQL(sql)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(column) == "" {
		return "", ErrInvalidColumn
	}
	if bins <= 0 {
		bins = HistogramBins
	}
	col := Ident(column)

	bounds, err := subquery(sq.Select(
		fmt.Sprintf("min(%s)::FLOAT8 AS min", col),
		fmt.Sprintf("max(%s)::FLOAT8 AS max", col),
	).From(InnerAlias))
	if err != nil {
		return "", err
	}

	stats, err := subquery(sq.Select("*", fmt.Sprintf("(max - min) / %d AS bin_width", bins)).From("bounds"))
	if err != nil {
		return "", err
	}

	// интервалы считаются во FLOAT8, иначе для целых колонок деление обрежется.
	// значение, равное max, попадает в последний интервал; при min = max все в первом
	bucket := fmt.Sprintf(
		"CASE WHEN stats.min = stats.max THEN 1 ELSE LEAST(width_bucket(%s::FLOAT8, stats.min, stats.max, %d), %d) END AS bucket",
		col, bins, bins)
	histogram, err := subquery(sq.Select(bucket, fmt.Sprintf("count(%s) AS frequency", col)).
		From(InnerAlias + ", stats").
		Where(col + " IS NOT NULL").
		GroupBy("bucket").
		OrderBy("bucket"))
	if err != nil {
		return "", err
	}

	sel := sq.Select(
		"n AS bin",
		"stats.min + (n - 1) * bin_width AS low",
		"stats.min + n * bin_width AS high",
		"COALESCE(frequency, 0) AS frequency",
	).
		From(fmt.Sprintf("stats, generate_series(1, %d) n", bins)).
		LeftJoin("histogram h ON n = h.bucket").
		OrderBy("n")

	return render(sel,
		materialized(InnerAlias, inner),
		materialized("bounds", bounds),
		materialized("stats", stats),
		materialized("histogram", histogram),
	)
}
