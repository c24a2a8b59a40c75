package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kitewatch/wind-archive/internal/config"
	"github.com/kitewatch/wind-archive/internal/domain"
)

// Writer publishes decoded data points to a Kafka topic so downstream
// consumers (alerting, long-term analytics) can react to fresh archive data.
// It implements pipeline.PointPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishPoints serializes and publishes a dataset's points in a single
// WriteMessages call. Points carrying no decoded values are skipped.
func (w *Writer) PublishPoints(ctx context.Context, fetchID string, dataset domain.Dataset) error {
	msgs := make([]kafkago.Message, 0, dataset.Len())
	for _, point := range dataset.Points {
		if !point.HasData() {
			continue
		}
		msg, err := serializeToMessage(fetchID, dataset, point)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return nil
	}

	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish data points: %w", err)
	}
	w.logger.Debug("published data points", "fetch_id", fetchID, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a data point into a Kafka message. All points
// of one fetch share a key, so they land on one partition in order.
func serializeToMessage(fetchID string, dataset domain.Dataset, point domain.DataPoint) (kafkago.Message, error) {
	data, err := json.Marshal(point)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize data point: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(fetchID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "spot_id", Value: []byte(strconv.Itoa(dataset.SpotID))},
			{Key: "model_id", Value: []byte(strconv.Itoa(dataset.ModelID))},
		},
	}, nil
}
