package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/dpe-enrichment-service/internal/config"
	"github.com/couchcryptid/dpe-enrichment-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

const eventType = "enrichment.completed"

// Writer produces enrichment events to a Kafka topic.
// It implements pipeline.EventPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured results topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger.With("topic", cfg.KafkaTopic)}
}

// LoadBatch publishes one message per event in a single WriteMessages call.
// Events for the same user land on the same partition.
func (w *Writer) LoadBatch(ctx context.Context, events []domain.EnrichmentEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msg, err := serializeToMessage(events[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d enrichment events: %w", len(msgs), err)
	}
	w.logger.Debug("enrichment events published", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an EnrichmentEvent into a Kafka message keyed by user ID.
func serializeToMessage(event domain.EnrichmentEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize enrichment event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.UserID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "run_id", Value: []byte(event.RunID)},
			{Key: "enriched_at", Value: []byte(event.EnrichedAt.Format(time.RFC3339))},
		},
	}, nil
}
