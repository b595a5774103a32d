package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/borealsmoke/smoke-data-etl/internal/config"
	"github.com/borealsmoke/smoke-data-etl/internal/domain"
)

// Writer publishes assembled datasets to a Kafka topic.
// It implements pipeline.DatasetPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishDataset serializes and publishes one cycle's dataset. The message is
// keyed by cycle timestamp so consumers can compact to latest-per-cycle.
func (w *Writer) PublishDataset(ctx context.Context, ds *domain.Dataset) error {
	msg, err := serializeToMessage(ds)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish dataset: %w", err)
	}
	w.logger.Info("published dataset",
		"run_id", ds.RunID, "fires", len(ds.Fires), "predictions", len(ds.Predictions))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a dataset into a Kafka message.
func serializeToMessage(ds *domain.Dataset) (kafkago.Message, error) {
	data, err := json.Marshal(ds)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize dataset: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(ds.Timestamp.UTC().Format("2006-01-02T15:04:05Z")),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(ds.RunID)},
			{Key: "fire_count", Value: []byte(strconv.Itoa(len(ds.Fires)))},
			{Key: "prediction_count", Value: []byte(strconv.Itoa(len(ds.Predictions)))},
		},
	}, nil
}
