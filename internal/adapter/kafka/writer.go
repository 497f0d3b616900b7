package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Peterstangolis/ontschoolsapp/internal/config"
	"github.com/Peterstangolis/ontschoolsapp/internal/domain"
	"github.com/Peterstangolis/ontschoolsapp/internal/observability"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes dashboard snapshots to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer  *kafkago.Writer
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewWriter creates a Kafka producer for the configured snapshot topic.
func NewWriter(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSnapshotTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, metrics: metrics, logger: logger}
}

// Publish writes one snapshot keyed by its latest reported date, so every
// rebuild of the same day lands on the same partition.
func (w *Writer) Publish(ctx context.Context, d domain.Dashboard) error {
	msg, err := serializeToMessage(d)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	w.metrics.SnapshotsPublished.Inc()
	w.logger.Debug("snapshot published", "topic", w.writer.Topic, "key", string(msg.Key))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Dashboard into a Kafka message.
func serializeToMessage(d domain.Dashboard) (kafkago.Message, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize dashboard: %w", err)
	}
	latest := d.LatestDate().Format(time.DateOnly)
	return kafkago.Message{
		Key:   []byte(latest),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "latest_date", Value: []byte(latest)},
			{Key: "generated_at", Value: []byte(d.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
