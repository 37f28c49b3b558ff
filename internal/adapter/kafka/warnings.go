// Package kafka publishes the diagnostic warning stream: one message per
// target site discarded by the distance cutoff.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/site-model-etl/internal/config"
	"github.com/couchcryptid/site-model-etl/internal/domain"
)

// WarningWriter produces discard warnings to a Kafka topic.
// It implements pipeline.WarningSink.
type WarningWriter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWarningWriter creates a Kafka producer for the configured warnings topic.
func NewWarningWriter(cfg *config.Config, logger *slog.Logger) *WarningWriter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaWarningsTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &WarningWriter{writer: w, logger: logger}
}

// Publish serializes and publishes one discard warning.
func (w *WarningWriter) Publish(ctx context.Context, warn domain.DiscardWarning) error {
	msg, err := serializeWarning(warn)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *WarningWriter) Close() error {
	return w.writer.Close()
}

// serializeWarning marshals a discard warning into a Kafka message, keyed by
// run so one run's warnings stay in partition order.
func serializeWarning(warn domain.DiscardWarning) (kafkago.Message, error) {
	data, err := json.Marshal(warn)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize discard warning: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(warn.RunID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "site_id", Value: []byte(warn.SiteID)},
			{Key: "discarded_at", Value: []byte(warn.DiscardedAt.Format(time.RFC3339))},
		},
	}, nil
}
