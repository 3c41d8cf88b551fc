// Package tilecontext кодирует контекст тайлового запроса в параметр URL и обратно.
// Кодирование обратимое (base64 JSON), не шифрование.
package tilecontext

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tile-microservice/internal/domain"
)

var ErrEmpty = errors.New("tile context is empty")

// Encode сериализует контекст в base64 (стандартный алфавит, как в URL тайлов клиента)
func Encode(tc domain.TileContext) (string, error) {
	if tc.Variables == nil {
		tc.Variables = domain.Variables{}
	}
	data, err := json.Marshal(tc)
	if err != nil {
		return "", fmt.Errorf("encode tile context: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Decode разбирает контекст. Принимает стандартный и URL-safe алфавиты, с паддингом и без.
// Никогда не паникует: любой мусор возвращается как ошибка.
func Decode(s string) (domain.TileContext, error) {
	var tc domain.TileContext

	s = strings.TrimSpace(s)
	if s == "" {
		return tc, ErrEmpty
	}
	// '+' в query-параметре без экранирования приходит пробелом
	s = strings.ReplaceAll(s, " ", "+")

	data, err := decodeBase64(s)
	if err != nil {
		return tc, fmt.Errorf("decode tile context: %w", err)
	}
	if err := json.Unmarshal(data, &tc); err != nil {
		return tc, fmt.Errorf("decode tile context: %w", err)
	}
	if tc.LayerID == 0 {
		return tc, fmt.Errorf("decode tile context: layerId is required")
	}
	if tc.Variables == nil {
		tc.Variables = domain.Variables{}
	}
	return tc, nil
}

func decodeBase64(s string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	}
	var lastErr error
	for _, enc := range encodings {
		data, err := enc.DecodeString(s)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
