package remote

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"

	"github.com/tile-microservice/internal/domain"
)

func TestClassify(t *testing.T) {
	const geomOID uint32 = 16385

	tests := []struct {
		name     string
		oid      uint32
		expected domain.ColumnType
	}{
		{"geometry", geomOID, domain.ColumnGeometry},
		{"date", pgtype.DateOID, domain.ColumnDate},
		{"time", pgtype.TimeOID, domain.ColumnDate},
		{"timetz", 1266, domain.ColumnDate},
		{"timestamp", pgtype.TimestampOID, domain.ColumnDate},
		{"timestamptz", pgtype.TimestamptzOID, domain.ColumnDate},
		{"abstime", 702, domain.ColumnDate},
		{"numeric", pgtype.NumericOID, domain.ColumnNumber},
		{"float4", pgtype.Float4OID, domain.ColumnNumber},
		{"float8", pgtype.Float8OID, domain.ColumnNumber},
		{"int2", pgtype.Int2OID, domain.ColumnNumber},
		{"int4", pgtype.Int4OID, domain.ColumnNumber},
		{"int8", pgtype.Int8OID, domain.ColumnNumber},
		{"interval", pgtype.IntervalOID, domain.ColumnNumber},
		{"money", 790, domain.ColumnNumber},
		{"text", pgtype.TextOID, domain.ColumnString},
		{"jsonb", pgtype.JSONBOID, domain.ColumnString},
		{"bool", pgtype.BoolOID, domain.ColumnString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.oid, geomOID))
		})
	}
}

func TestClassifyWithoutGeometryOID(t *testing.T) {
	assert.Equal(t, domain.ColumnString, Classify(0, 0))
}

func TestAtLeast(t *testing.T) {
	tests := []struct {
		found, required string
		ok              bool
	}{
		{"14.5 (Debian 14.5-1.pgdg110+1)", "9.6", true},
		{"9.6.24", "9.6", true},
		{"9.5.3", "9.6", false},
		{"10.1", "9.6", true},
		{"2.10.1", "2.4", true},
		{"3.4.0", "2.4", true},
		{"2.3.1", "2.4", false},
		{"unknown", "2.4", false},
		{"1.0", "", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.ok, atLeast(tt.found, tt.required), "%s >= %s", tt.found, tt.required)
	}
}
