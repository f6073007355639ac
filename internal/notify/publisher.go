// Package notify publishes parameter change events to Kafka.
package notify

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jfederico/moodle-bbbext-bnurl/internal/events"
)

// Message headers set on every change event.
const (
	HeaderEventType  = "event_type"
	HeaderInstanceID = "instance_id"
)

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

// Publisher encodes change events as JSON and writes them to a single topic,
// keyed by instance id so events of one instance stay ordered.
type Publisher struct {
	writer  messageWriter
	topic   string
	timeout time.Duration
}

// NewPublisher constructs a Publisher writing to topic. A positive timeout
// bounds every write.
func NewPublisher(writer messageWriter, topic string, timeout time.Duration) *Publisher {
	return &Publisher{writer: writer, topic: topic, timeout: timeout}
}

// PublishSynced implements domain.ChangePublisher.
func (p *Publisher) PublishSynced(ctx context.Context, event events.ParametersSynced) error {
	return p.publish(ctx, events.TypeParametersSynced, event.InstanceID, event)
}

// PublishDeleted implements domain.ChangePublisher.
func (p *Publisher) PublishDeleted(ctx context.Context, event events.ParametersDeleted) error {
	return p.publish(ctx, events.TypeParametersDeleted, event.InstanceID, event)
}

func (p *Publisher) publish(ctx context.Context, eventType string, instanceID int64, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	id := strconv.FormatInt(instanceID, 10)
	return p.writer.WriteMessages(ctx, p.topic, kafka.Message{
		Key:   []byte(id),
		Value: body,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(eventType)},
			{Key: HeaderInstanceID, Value: []byte(id)},
		},
	})
}
