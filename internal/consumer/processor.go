// Package consumer reads parameter change events back from Kafka.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/jfederico/moodle-bbbext-bnurl/internal/events"
	"github.com/jfederico/moodle-bbbext-bnurl/internal/notify"
)

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded messages from Kafka.
type Handler interface {
	Handle(context.Context, Message) error
}

// Message is the decoded representation of a change event record.
type Message struct {
	Topic      string
	Partition  int
	Offset     int64
	Timestamp  time.Time
	EventType  string
	InstanceID int64
	Payload    json.RawMessage
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithRetryBackoff sets the initial wait between attempts at a failing
// message. The wait doubles up to maxRetryBackoff.
func WithRetryBackoff(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.backoff = d
		}
	}
}

const (
	defaultRetryBackoff = 500 * time.Millisecond
	maxRetryBackoff     = 30 * time.Second
)

// Processor pulls messages from Kafka, decodes them, and dispatches to a Handler.
type Processor struct {
	reader  Reader
	handler Handler
	logger  zerolog.Logger
	backoff time.Duration
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:  reader,
		handler: handler,
		logger:  zerolog.Nop(),
		backoff: defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run starts a blocking loop that processes Kafka messages until the context is cancelled.
// A message whose handler fails is retried until it succeeds; the reader does
// not move past it, so a shutdown leaves it uncommitted for redelivery.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			p.logger.Error().Err(err).Msg("fetch error")
			continue
		}

		event, decodeErr := decodeMessage(msg)
		if decodeErr != nil {
			p.logger.Warn().Err(decodeErr).
				Str("topic", msg.Topic).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("decode error")
			recordRejected(rejectReason(decodeErr))
			// Commit malformed messages to avoid poison-pill loops.
			if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
				p.logger.Error().Err(commitErr).Msg("commit error after decode failure")
			}
			continue
		}

		if err := p.handle(ctx, event); err != nil {
			return err
		}

		if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
			p.logger.Error().Err(commitErr).Msg("commit error")
		} else {
			recordAudited(event)
		}
	}
}

// handle retries the handler with exponential backoff. It only returns the
// context error.
func (p *Processor) handle(ctx context.Context, event Message) error {
	wait := p.backoff
	for {
		err := p.handler.Handle(ctx, event)
		if err == nil {
			return nil
		}
		p.logger.Error().Err(err).
			Str("event_type", event.EventType).
			Int64("instance_id", event.InstanceID).
			Int64("offset", event.Offset).
			Dur("retry_in", wait).
			Msg("handler error")
		recordRetry(event)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		wait = min(wait*2, maxRetryBackoff)
	}
}

var (
	errMissingHeader     = errors.New("missing header")
	errUnsupportedType   = errors.New("unsupported event type")
	errInvalidInstanceID = errors.New("invalid instance_id header")
	errInvalidPayload    = errors.New("payload is not valid JSON")
)

func rejectReason(err error) string {
	switch {
	case errors.Is(err, errMissingHeader):
		return rejectMissingHeader
	case errors.Is(err, errUnsupportedType):
		return rejectUnsupportedType
	case errors.Is(err, errInvalidInstanceID):
		return rejectInvalidInstanceID
	default:
		return rejectInvalidPayload
	}
}

func decodeMessage(msg kafka.Message) (Message, error) {
	eventType, ok := headerValue(msg, notify.HeaderEventType)
	if !ok {
		return Message{}, fmt.Errorf("%w: %s", errMissingHeader, notify.HeaderEventType)
	}
	switch string(eventType) {
	case events.TypeParametersSynced, events.TypeParametersDeleted:
	default:
		return Message{}, fmt.Errorf("%w %q", errUnsupportedType, eventType)
	}

	rawID, ok := headerValue(msg, notify.HeaderInstanceID)
	if !ok {
		return Message{}, fmt.Errorf("%w: %s", errMissingHeader, notify.HeaderInstanceID)
	}
	instanceID, err := strconv.ParseInt(string(rawID), 10, 64)
	if err != nil {
		return Message{}, fmt.Errorf("%w %q: %w", errInvalidInstanceID, rawID, err)
	}

	if !json.Valid(msg.Value) {
		return Message{}, errInvalidPayload
	}

	return Message{
		Topic:      msg.Topic,
		Partition:  msg.Partition,
		Offset:     msg.Offset,
		Timestamp:  msg.Time,
		EventType:  string(eventType),
		InstanceID: instanceID,
		Payload:    json.RawMessage(append([]byte(nil), msg.Value...)),
	}, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}
