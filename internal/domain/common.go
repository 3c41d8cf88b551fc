package domain

// BoundingBox - прямоугольник в WGS84, заданный юго-западным и северо-восточным углами
type BoundingBox struct {
	SwLng float64 `json:"swLng" yaml:"swLng"`
	SwLat float64 `json:"swLat" yaml:"swLat"`
	NeLng float64 `json:"neLng" yaml:"neLng"`
	NeLat float64 `json:"neLat" yaml:"neLat"`
}

// TileCoord - координата тайла z/x/y
type TileCoord struct {
	Z int `json:"z"`
	X int `json:"x"`
	Y int `json:"y"`
}
