package utils

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// Диапазон зума картографического рендерера
const (
	MinRendererZoom = 0
	MaxRendererZoom = 24
)

// ValidateCoordinates проверяет валидность координат
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// ValidateBoundingBox проверяет, что прямоугольник задан юго-западным и северо-восточным углами
func ValidateBoundingBox(swLng, swLat, neLng, neLat float64) bool {
	if !ValidateCoordinates(swLat, swLng) || !ValidateCoordinates(neLat, neLng) {
		return false
	}
	return swLat <= neLat && swLng <= neLng
}

// ValidateTile проверяет z/x/y и возвращает тайл orb
func ValidateTile(z, x, y int) (maptile.Tile, bool) {
	if z < MinRendererZoom || z > MaxRendererZoom || x < 0 || y < 0 {
		return maptile.Tile{}, false
	}
	tile := maptile.New(uint32(x), uint32(y), maptile.Zoom(z))
	if !tile.Valid() {
		return maptile.Tile{}, false
	}
	return tile, true
}

// TileBound возвращает географические границы тайла (WGS84)
func TileBound(tile maptile.Tile) orb.Bound {
	return tile.Bound()
}

// PercentToZoom переводит процент диапазона зума в уровень зума рендерера
func PercentToZoom(percent float64) float64 {
	return percent * (MaxRendererZoom - MinRendererZoom) / 100
}

// ZoomToPercent - обратное преобразование к PercentToZoom
func ZoomToPercent(zoom float64) float64 {
	return zoom * 100 / (MaxRendererZoom - MinRendererZoom)
}
