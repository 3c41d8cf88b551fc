package remote

import (
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tile-microservice/internal/domain"
)

// OID без констант в pgtype
const (
	abstimeOID uint32 = 702
	moneyOID   uint32 = 790
	timetzOID  uint32 = 1266
)

var dateOIDs = map[uint32]struct{}{
	abstimeOID:            {},
	pgtype.DateOID:        {},
	pgtype.TimeOID:        {},
	pgtype.TimestampOID:   {},
	pgtype.TimestamptzOID: {},
	timetzOID:             {},
}

var numberOIDs = map[uint32]struct{}{
	pgtype.NumericOID:  {},
	pgtype.Float4OID:   {},
	pgtype.Float8OID:   {},
	pgtype.Int2OID:     {},
	pgtype.Int4OID:     {},
	pgtype.Int8OID:     {},
	pgtype.IntervalOID: {},
	moneyOID:           {},
}

// Classify сводит OID типа колонки к geometry/date/number/string.
// geometryOID - OID типа geometry в конкретной базе.
func Classify(oid, geometryOID uint32) domain.ColumnType {
	if geometryOID != 0 && oid == geometryOID {
		return domain.ColumnGeometry
	}
	if _, ok := dateOIDs[oid]; ok {
		return domain.ColumnDate
	}
	if _, ok := numberOIDs[oid]; ok {
		return domain.ColumnNumber
	}
	return domain.ColumnString
}
