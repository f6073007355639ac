package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func changeEvent(eventType, instanceID string, payload []byte) kafka.Message {
	return kafka.Message{
		Topic:     "bbbext.flexurl.parameters",
		Partition: 0,
		Offset:    10,
		Time:      time.Now().UTC(),
		Key:       []byte(instanceID),
		Value:     payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "instance_id", Value: []byte(instanceID)},
		},
	}
}

func TestProcessorCommitsOnSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payload := []byte(`{"event_id":"abc","instance_id":7,"parameters":[]}`)
	reader := &stubReader{
		messages: []kafka.Message{changeEvent("parameters.synced", "7", payload)},
		after:    contextCanceled,
	}
	handler := &stubHandler{}
	before := testutil.ToFloat64(auditedCounter.WithLabelValues("parameters.synced"))

	processor := NewProcessor(reader, handler, WithLogger(zerolog.New(zerolog.NewTestWriter(t))))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Equal(t, "parameters.synced", handler.last.EventType)
	require.Equal(t, before+1, testutil.ToFloat64(auditedCounter.WithLabelValues("parameters.synced")))
	require.Equal(t, int64(7), handler.last.InstanceID)
	require.JSONEq(t, string(payload), string(handler.last.Payload))
}

func TestProcessorRetriesHandlerErrorBeforeCommit(t *testing.T) {
	reader := &stubReader{
		messages: []kafka.Message{changeEvent("parameters.deleted", "8", []byte(`{"event_id":"def","instance_id":8}`))},
		after:    contextCanceled,
	}
	handler := &stubHandler{err: errors.New("audit table unavailable"), failures: 2}
	before := testutil.ToFloat64(auditRetryCounter.WithLabelValues("parameters.deleted"))

	processor := NewProcessor(reader, handler,
		WithLogger(zerolog.New(zerolog.NewTestWriter(t))),
		WithRetryBackoff(time.Millisecond),
	)

	err := processor.Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 3, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Equal(t, before+2, testutil.ToFloat64(auditRetryCounter.WithLabelValues("parameters.deleted")))
}

func TestProcessorKeepsFailedMessageUncommittedOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &stubReader{
		messages: []kafka.Message{
			changeEvent("parameters.deleted", "8", []byte(`{"event_id":"def","instance_id":8}`)),
			changeEvent("parameters.synced", "9", []byte(`{"event_id":"ghi","instance_id":9}`)),
		},
	}
	handler := &stubHandler{
		err: errors.New("boom"),
		onCall: func(calls int) {
			if calls == 2 {
				cancel()
			}
		},
	}

	processor := NewProcessor(reader, handler,
		WithLogger(zerolog.New(zerolog.NewTestWriter(t))),
		WithRetryBackoff(time.Millisecond),
	)

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 2, handler.calls)
	require.Equal(t, int64(8), handler.last.InstanceID)
	require.Equal(t, 1, reader.index, "the next message must not be fetched past a failing one")
	require.Zero(t, reader.commitCalls)
}

func TestProcessorCommitsMalformedMessages(t *testing.T) {
	cases := map[string]struct {
		msg    kafka.Message
		reason string
	}{
		"unknown event type": {changeEvent("activity.created", "1", []byte(`{}`)), rejectUnsupportedType},
		"bad instance id":    {changeEvent("parameters.synced", "abc", []byte(`{}`)), rejectInvalidInstanceID},
		"invalid json":       {changeEvent("parameters.synced", "1", []byte(`{not json`)), rejectInvalidPayload},
		"missing headers":    {kafka.Message{Topic: "bbbext.flexurl.parameters", Value: []byte(`{}`)}, rejectMissingHeader},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			reader := &stubReader{messages: []kafka.Message{tc.msg}, after: contextCanceled}
			handler := &stubHandler{}
			before := testutil.ToFloat64(rejectedCounter.WithLabelValues(tc.reason))

			err := NewProcessor(reader, handler).Run(context.Background())
			require.ErrorIs(t, err, context.Canceled)

			require.Zero(t, handler.calls)
			require.Equal(t, 1, reader.commitCalls)
			require.Equal(t, before+1, testutil.ToFloat64(rejectedCounter.WithLabelValues(tc.reason)))
		})
	}
}

type stubReader struct {
	messages    []kafka.Message
	index       int
	commitCalls int
	after       func() error
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if r.index >= len(r.messages) {
		if r.after != nil {
			return kafka.Message{}, r.after()
		}
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, _ ...kafka.Message) error {
	r.commitCalls++
	return nil
}

func (r *stubReader) Close() error { return nil }

func contextCanceled() error { return context.Canceled }

type stubHandler struct {
	calls int
	err   error
	// failures limits err to the first n calls when positive.
	failures int
	onCall   func(calls int)
	last     Message
}

func (h *stubHandler) Handle(_ context.Context, msg Message) error {
	h.calls++
	h.last = msg
	if h.onCall != nil {
		h.onCall(h.calls)
	}
	if h.failures > 0 && h.calls > h.failures {
		return nil
	}
	return h.err
}
