package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb/encoding/wkt"

	"github.com/tile-microservice/internal/domain"
)

// CSV - атрибуты плюс _qid и геометрия в WKT последней колонкой
func CSV(fields []domain.Field, features []Feature) ([]byte, error) {
	columns := AttributeFields(fields)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, 0, len(columns)+2)
	header = append(header, domain.IdentityColumn)
	for _, f := range columns {
		header = append(header, f.Name)
	}
	header = append(header, "wkt")
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, f := range features {
		row := make([]string, 0, len(header))
		row = append(row, f.ID)
		for _, c := range columns {
			row = append(row, cell(f.Properties[c.Name]))
		}
		if f.Geometry != nil {
			row = append(row, wkt.MarshalString(f.Geometry))
		} else {
			row = append(row, "")
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func cell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339)
	case []byte:
		return string(val)
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}
