package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TileContext - контекст тайлового запроса, который кодируется в URL тайла
type TileContext struct {
	LayerID      int64     `json:"layerId"`
	ConnectionID int64     `json:"connectionId"`
	Variables    Variables `json:"variables"`
}

// Variables - переменные шаблона SQL. В JSON принимается как объект,
// так и массив пар [{"key": ..., "value": ...}].
type Variables map[string]any

type variablePair struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

func (v *Variables) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Variables{}
		return nil
	}

	out := Variables{}
	switch data[0] {
	case '{':
		raw := map[string]any{}
		if err := decodeNumbers(data, &raw); err != nil {
			return err
		}
		for k, val := range raw {
			out[k] = val
		}
	case '[':
		var pairs []variablePair
		if err := decodeNumbers(data, &pairs); err != nil {
			return err
		}
		for _, p := range pairs {
			if p.Key == "" {
				continue
			}
			out[p.Key] = p.Value
		}
	default:
		return fmt.Errorf("variables: unexpected JSON token %q", data[0])
	}

	*v = out
	return nil
}

// decodeNumbers сохраняет числа как json.Number, чтобы 10 не превращалось в 10.0 в SQL
func decodeNumbers(data []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(dst)
}
