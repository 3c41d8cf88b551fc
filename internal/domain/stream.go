package domain

import "time"

// Stream names
const (
	StreamConnectionUpdated = "stream:tiles:connection:updated"
	StreamLayerUpdated      = "stream:tiles:layer:updated"
)

// ConnectionUpdatedEvent - изменились параметры подключения, пул нужно пересоздать
type ConnectionUpdatedEvent struct {
	ConnectionID int64     `json:"connection_id"`
	Removed      bool      `json:"removed,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LayerUpdatedEvent - изменился SQL или стиль слоя, кэш тайлов слоя устарел
type LayerUpdatedEvent struct {
	LayerID   int64     `json:"layer_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StreamMessage - сообщение из Redis Stream
type StreamMessage struct {
	ID     string
	Stream string
	Data   string
}
