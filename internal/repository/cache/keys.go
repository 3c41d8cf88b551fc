package cache

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/tile-microservice/internal/domain"
)

const tileKeyPrefix = "tile"

// TileKey - ключ тайла. Хэш итогового SQL учитывает код слоя, переменные и стиль.
func TileKey(layerID int64, c domain.TileCoord, sql string) string {
	return fmt.Sprintf("%s:%d:%d:%d:%d:%016x", tileKeyPrefix, layerID, c.Z, c.X, c.Y, xxhash.Sum64String(sql))
}

func layerPrefix(layerID int64) string {
	return fmt.Sprintf("%s:%d:", tileKeyPrefix, layerID)
}
