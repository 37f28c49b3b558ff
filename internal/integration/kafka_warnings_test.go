//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/site-model-etl/internal/adapter/kafka"
	"github.com/couchcryptid/site-model-etl/internal/config"
	"github.com/couchcryptid/site-model-etl/internal/domain"
)

const testWarningsTopic = "test-site-model-warnings"

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// startKafka launches a single-node Kafka container and returns its broker
// address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	ctr, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err, "resolve brokers")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic provisions a topic through the cluster controller so produces
// do not race topic auto-creation.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "resolve controller")

	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestWarningWriterRoundTrip publishes discard warnings through the adapter
// and reads them back, verifying payload, key, and headers survive the wire.
func TestWarningWriterRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testWarningsTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaWarningsTopic: testWarningsTopic,
	}

	writer := kafka.NewWarningWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	discardedAt := time.Now().UTC().Truncate(time.Second)
	warnings := []domain.DiscardWarning{
		{
			RunID:         "run-it",
			Lon:           10.5,
			Lat:           45.25,
			SiteID:        "station-1",
			DistanceKm:    11.8,
			MaxDistanceKm: 5.0,
			NearestFile:   "vs30_alps.csv",
			DiscardedAt:   discardedAt,
		},
		{
			RunID:         "run-it",
			Lon:           -120.1,
			Lat:           38.0,
			SiteID:        "station-2",
			DistanceKm:    7.3,
			MaxDistanceKm: 5.0,
			NearestFile:   "vs30_sierra.csv",
			DiscardedAt:   discardedAt,
		},
	}
	for _, warn := range warnings {
		require.NoError(t, writer.Publish(ctx, warn))
	}

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testWarningsTopic,
		GroupID:     fmt.Sprintf("test-warnings-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	for i, want := range warnings {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read warning %d", i)

		assert.Equal(t, []byte("run-it"), msg.Key)

		var got domain.DiscardWarning
		require.NoError(t, json.Unmarshal(msg.Value, &got))
		assert.Equal(t, want, got)

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, want.SiteID, headers["site_id"])
		_, err = time.Parse(time.RFC3339, headers["discarded_at"])
		assert.NoError(t, err, "discarded_at should be valid RFC3339")
	}

	// Same run key keeps one run's warnings on one partition, in order.
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no extra message on warnings topic")
}
