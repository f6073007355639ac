//go:build integration

package consumer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkaContainer "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/jfederico/moodle-bbbext-bnurl/internal/events"
	"github.com/jfederico/moodle-bbbext-bnurl/internal/notify"
)

func TestKafkaChangeEventsReachHandler(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	kafkaC, err := kafkaContainer.RunContainer(ctx, testcontainers.WithEnv(map[string]string{
		"KAFKA_AUTO_CREATE_TOPICS_ENABLE": "true",
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kafkaC.Terminate(context.Background()) })

	brokers, err := kafkaC.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	topic := "bbbext.flexurl.parameters"

	conn, err := kafka.Dial("tcp", brokers[0])
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     "flexurl-audit-integration",
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	defer reader.Close()

	handler := &channelHandler{messages: make(chan Message, 4)}
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()

	proc := NewProcessor(reader, handler, WithLogger(zerolog.New(zerolog.NewTestWriter(t))))
	go func() {
		_ = proc.Run(consumerCtx)
	}()

	producer := notify.NewKafkaProducer(brokers)
	defer producer.Close()
	publisher := notify.NewPublisher(producer, topic, 30*time.Second)

	synced := events.ParametersSynced{
		EventID:    "evt-synced",
		InstanceID: 21,
		Actor:      "3",
		Parameters: []events.Parameter{{EventType: 2, Name: "firstname", Value: "%user.firstname%"}},
		OccurredAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, publisher.PublishSynced(ctx, synced))
	require.NoError(t, publisher.PublishDeleted(ctx, events.ParametersDeleted{
		EventID:    "evt-deleted",
		InstanceID: 21,
		OccurredAt: time.Now().UTC(),
	}))

	first := receive(t, handler.messages)
	require.Equal(t, events.TypeParametersSynced, first.EventType)
	require.Equal(t, int64(21), first.InstanceID)
	require.Equal(t, topic, first.Topic)

	var decoded events.ParametersSynced
	require.NoError(t, json.Unmarshal(first.Payload, &decoded))
	require.Equal(t, synced.EventID, decoded.EventID)
	require.Equal(t, synced.Parameters, decoded.Parameters)
	require.True(t, synced.OccurredAt.Equal(decoded.OccurredAt))

	second := receive(t, handler.messages)
	require.Equal(t, events.TypeParametersDeleted, second.EventType)
	require.Equal(t, int64(21), second.InstanceID)
	require.Greater(t, second.Offset, first.Offset)
}

type channelHandler struct {
	messages chan Message
}

func (h *channelHandler) Handle(ctx context.Context, msg Message) error {
	select {
	case h.messages <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func receive(t *testing.T, messages <-chan Message) Message {
	t.Helper()
	select {
	case msg := <-messages:
		return msg
	case <-time.After(60 * time.Second):
		t.Fatal("timed out waiting for change event")
		return Message{}
	}
}
