package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rotisserie/eris"

	"github.com/tile-microservice/internal/domain"
)

// Records выполняет запрос и возвращает строки с описанием колонок.
// stripGeometry убирает колонки типа geometry из полей и строк.
func (rem *Remote) Records(ctx context.Context, sql string, stripGeometry bool) (domain.RecordSet, error) {
	rs := domain.RecordSet{Fields: []domain.Field{}, Records: []domain.Record{}}

	rows, err := rem.Pool.Query(ctx, sql)
	if err != nil {
		return rs, queryError(err)
	}
	defer rows.Close()

	descriptions := rows.FieldDescriptions()
	keep := make([]bool, len(descriptions))
	for i, fd := range descriptions {
		typ := Classify(fd.DataTypeOID, rem.GeometryOID)
		if stripGeometry && typ == domain.ColumnGeometry {
			continue
		}
		keep[i] = true
		rs.Fields = append(rs.Fields, domain.Field{
			Name:   fd.Name,
			TypeID: fd.DataTypeOID,
			Type:   typ,
		})
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return rs, queryError(err)
		}
		rec := make(domain.Record, len(rs.Fields))
		for i, v := range values {
			if i >= len(keep) || !keep[i] {
				continue
			}
			rec[descriptions[i].Name] = normalize(v)
		}
		rs.Records = append(rs.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return rs, queryError(err)
	}
	return rs, nil
}

// Count выполняет запрос вида SELECT COUNT(*) AS count
func (rem *Remote) Count(ctx context.Context, sql string) (int64, error) {
	var n int64
	if err := rem.Pool.QueryRow(ctx, sql).Scan(&n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, queryError(err)
	}
	return n, nil
}

// Tile выполняет запрос тайла. Ноль строк или NULL дают nil без ошибки.
func (rem *Remote) Tile(ctx context.Context, sql string) ([]byte, error) {
	var mvt []byte
	if err := rem.Pool.QueryRow(ctx, sql).Scan(&mvt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, queryError(err)
	}
	return mvt, nil
}

func queryError(err error) error {
	if KindOf(err) != KindUnknown {
		return err
	}
	return newError(KindQuery, eris.Wrap(err, "query remote"))
}

// normalize приводит значения pgx к виду, пригодному для JSON
func normalize(v any) any {
	switch val := v.(type) {
	case pgtype.Numeric:
		if !val.Valid {
			return nil
		}
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte:
		return uuid.UUID(val).String()
	case pgtype.Time:
		if !val.Valid {
			return nil
		}
		d := time.Duration(val.Microseconds) * time.Microsecond
		return fmt.Sprintf("%02d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
	case string:
		return strings.ToValidUTF8(val, "")
	}
	return v
}
