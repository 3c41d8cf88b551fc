package invalidation

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/tile-microservice/internal/domain"
	"github.com/tile-microservice/internal/domain/repository"
	"github.com/tile-microservice/internal/repository/remote"
	"github.com/tile-microservice/internal/worker"
)

const (
	defaultBatchSize = 20
	emptyQueueSleep  = 100 * time.Millisecond
	errorSleep       = time.Second
)

// Connections - часть реестра подключений, нужная воркеру. Может быть nil.
type Connections interface {
	Reconnect(ctx context.Context, connectionID int64) (*remote.Remote, error)
	Invalidate(connectionID int64) bool
}

// Worker слушает события изменения подключений и слоев.
// Подключение изменилось - пул пересоздается, удалено - выбрасывается из реестра.
// Слой изменился - его тайлы удаляются из кэша.
type Worker struct {
	*worker.BaseWorker
	streamRepo   repository.StreamRepository
	connections  Connections
	tileCache    repository.TileCache
	consumerName string
	batchSize    int
}

func NewWorker(
	streamRepo repository.StreamRepository,
	connections Connections,
	tileCache repository.TileCache,
	consumerGroup string,
	batchSize int,
	logger *zap.Logger,
) *Worker {
	hostname, _ := os.Hostname()
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	return &Worker{
		BaseWorker:   worker.NewBaseWorker("tile-invalidation", consumerGroup, logger),
		streamRepo:   streamRepo,
		connections:  connections,
		tileCache:    tileCache,
		consumerName: fmt.Sprintf("%s-%d", hostname, os.Getpid()),
		batchSize:    batchSize,
	}
}

// Streams - стримы, которые читает воркер
func Streams() []string {
	return []string{domain.StreamConnectionUpdated, domain.StreamLayerUpdated}
}

func (w *Worker) Start(ctx context.Context) error {
	logger := w.Logger()
	logger.Info("Starting invalidation worker",
		zap.String("consumer_group", w.ConsumerGroup()),
		zap.String("consumer_name", w.consumerName),
		zap.Int("batch_size", w.batchSize))

	for _, stream := range Streams() {
		if err := w.streamRepo.CreateConsumerGroup(ctx, stream, w.ConsumerGroup()); err != nil {
			return fmt.Errorf("failed to create consumer group for %s: %w", stream, err)
		}
	}

	for {
		select {
		case <-w.StopChan():
			logger.Info("Worker stopped")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		processed, err := w.ProcessBatch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("Failed to process batch", zap.Error(err))
			if !w.Pause(errorSleep) {
				return nil
			}
			continue
		}

		if processed == 0 && !w.Pause(emptyQueueSleep) {
			return nil
		}
	}
}

// ProcessBatch читает один batch и возвращает число прочитанных сообщений.
// Сообщения, которые не удалось обработать, не подтверждаются и остаются в PEL.
// Битые сообщения подтверждаются сразу.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	messages, err := w.streamRepo.ConsumeBatch(ctx, Streams(), w.ConsumerGroup(), w.consumerName, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to consume batch: %w", err)
	}
	if len(messages) == 0 {
		return 0, nil
	}

	acks := make(map[string][]string)
	for _, msg := range messages {
		if err := w.handle(ctx, msg); err != nil {
			w.Logger().Error("Failed to handle message",
				zap.String("stream", msg.Stream),
				zap.String("message_id", msg.ID),
				zap.Error(err))
			continue
		}
		acks[msg.Stream] = append(acks[msg.Stream], msg.ID)
	}

	for stream, ids := range acks {
		if err := w.streamRepo.AckMessages(ctx, stream, w.ConsumerGroup(), ids); err != nil {
			w.Logger().Error("Failed to ack messages", zap.String("stream", stream), zap.Error(err))
		}
	}

	return len(messages), nil
}

func (w *Worker) handle(ctx context.Context, msg domain.StreamMessage) error {
	switch msg.Stream {
	case domain.StreamConnectionUpdated:
		var event domain.ConnectionUpdatedEvent
		if err := json.Unmarshal([]byte(msg.Data), &event); err != nil || event.ConnectionID == 0 {
			w.Logger().Warn("Skipping malformed connection event", zap.String("message_id", msg.ID))
			return nil
		}
		return w.onConnectionUpdated(ctx, event)

	case domain.StreamLayerUpdated:
		var event domain.LayerUpdatedEvent
		if err := json.Unmarshal([]byte(msg.Data), &event); err != nil || event.LayerID == 0 {
			w.Logger().Warn("Skipping malformed layer event", zap.String("message_id", msg.ID))
			return nil
		}
		return w.onLayerUpdated(ctx, event)
	}

	w.Logger().Warn("Message from unknown stream", zap.String("stream", msg.Stream))
	return nil
}

func (w *Worker) onConnectionUpdated(ctx context.Context, event domain.ConnectionUpdatedEvent) error {
	// отдельный процесс воркера не держит пулов, ему нужны только события слоев
	if w.connections == nil {
		return nil
	}

	if event.Removed {
		dropped := w.connections.Invalidate(event.ConnectionID)
		w.Logger().Info("Connection removed",
			zap.Int64("connection_id", event.ConnectionID),
			zap.Bool("dropped", dropped))
		return nil
	}

	if _, err := w.connections.Reconnect(ctx, event.ConnectionID); err != nil {
		// подключение может быть временно недоступно: старый пул уже не валиден,
		// следующий запрос к нему попробует открыть новый
		w.connections.Invalidate(event.ConnectionID)
		w.Logger().Warn("Reconnect failed, connection dropped from registry",
			zap.Int64("connection_id", event.ConnectionID),
			zap.String("reason", remote.Message(err)))
		return nil
	}

	w.Logger().Info("Connection reconnected", zap.Int64("connection_id", event.ConnectionID))
	return nil
}

func (w *Worker) onLayerUpdated(ctx context.Context, event domain.LayerUpdatedEvent) error {
	removed, err := w.tileCache.InvalidateLayer(ctx, event.LayerID)
	if err != nil {
		return fmt.Errorf("invalidate layer %d: %w", event.LayerID, err)
	}

	w.Logger().Info("Layer tiles invalidated",
		zap.Int64("layer_id", event.LayerID),
		zap.Int("removed", removed))
	return nil
}
