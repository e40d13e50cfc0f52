package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"venuebook/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func header(km kafka.Message, key string) string {
	for _, h := range km.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestMessageBuilder(t *testing.T) {
	msg, err := NewMessage().
		WithKey("space-1").
		WithValue(map[string]string{"id": "b-1"}).
		WithEventType("booking_request").
		WithSource("bookings").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "space-1", msg.Key)
	assert.JSONEq(t, `{"id":"b-1"}`, string(msg.Value))
	assert.NotEmpty(t, msg.GetEventID())
	assert.Equal(t, "booking_request", msg.GetEventType())
	assert.NotEmpty(t, msg.Headers[HeaderTimestamp])

	_, err = NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	assert.Error(t, err)
}

func TestMessage_RetryCount(t *testing.T) {
	msg := Message{}
	assert.Equal(t, 0, msg.GetRetryCount())
	for i := 0; i < 12; i++ {
		msg.IncrementRetryCount()
	}
	assert.Equal(t, 12, msg.GetRetryCount())
	assert.Equal(t, "12", msg.Headers[HeaderRetryCount])
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, ErrorTypeUnknown, ClassifyError(nil))
	assert.Equal(t, ErrorTypeTransient, ClassifyError(errors.New("dial tcp: Connection Refused")))
	assert.Equal(t, ErrorTypeTransient, ClassifyError(context.DeadlineExceeded))
	assert.Equal(t, ErrorTypePermanent, ClassifyError(errors.New("bad json")))
	assert.Equal(t, ErrorTypeTransient, ClassifyError(NewTransientError("redis down", io.ErrUnexpectedEOF)))

	assert.True(t, ShouldRetry(NewTransientError("x", nil), 0, 3))
	assert.False(t, ShouldRetry(NewTransientError("x", nil), 3, 3))
	assert.False(t, ShouldRetry(NewPermanentError("x", nil), 0, 3))
}

func TestProducer_PublishAndMiddlewareOrder(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, topic: "booking-events", log: logger.Discard()}

	var order []string
	p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
		order = append(order, "outer")
		return next(ctx, msg)
	})
	p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
		order = append(order, "inner")
		assert.Equal(t, "booking-events", msg.Topic)
		return next(ctx, msg)
	})

	msg, err := NewMessage().WithKey("space-1").WithRawValue([]byte(`{}`)).Build()
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), msg))

	assert.Equal(t, []string{"outer", "inner"}, order)
	require.Len(t, w.messages, 1)
	assert.Equal(t, "", w.messages[0].Topic)
	assert.Equal(t, "space-1", string(w.messages[0].Key))
}

func TestProducer_Rejects(t *testing.T) {
	p := &Producer{writer: &fakeWriter{}, topic: "t", log: logger.Discard()}

	assert.ErrorIs(t, p.Publish(context.Background(), Message{Value: []byte("x")}), ErrEmptyKey)
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "k"}), ErrEmptyValue)

	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "k", Value: []byte("x")}), ErrProducerClosed)
}

func TestProducer_FailureGoesToDLQ(t *testing.T) {
	writeErr := errors.New("leader not available")
	dlq := &fakeWriter{}
	p := &Producer{writer: &fakeWriter{err: writeErr}, dlqWriter: dlq, topic: "booking-events", log: logger.Discard()}

	msg, err := NewMessage().WithKey("k").WithRawValue([]byte(`{}`)).Build()
	require.NoError(t, err)

	err = p.Publish(context.Background(), msg)
	assert.ErrorIs(t, err, writeErr)
	require.Len(t, dlq.messages, 1)
	assert.Equal(t, "booking-events", header(dlq.messages[0], HeaderOriginalTopic))
	assert.Equal(t, writeErr.Error(), header(dlq.messages[0], HeaderDLQError))
	_, leaked := msg.Headers[HeaderDLQError]
	assert.False(t, leaked)
}

func TestConsumer_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	c := newConsumer(nil, "booking-events", "g", func(ctx context.Context, msg Message) error {
		calls++
		if calls < 3 {
			return NewTransientError("redis unavailable", nil)
		}
		return nil
	}, logger.Discard())
	c.maxRetries = 3

	err := c.processMessage(context.Background(), Message{Headers: map[string]string{}})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestConsumer_PermanentErrorParkedInDLQ(t *testing.T) {
	dlq := &fakeWriter{}
	calls := 0
	c := newConsumer(nil, "booking-events", "notifier", func(ctx context.Context, msg Message) error {
		calls++
		return NewPermanentError("undecodable", nil)
	}, logger.Discard())
	c.maxRetries = 5
	c.dlqWriter = dlq

	err := c.processMessage(context.Background(), Message{Key: "k", Topic: "booking-events", Headers: map[string]string{}})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
	require.Len(t, dlq.messages, 1)
	assert.Equal(t, "notifier", header(dlq.messages[0], HeaderDLQGroup))
	assert.Equal(t, "", dlq.messages[0].Topic)
}

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestConsumer_StartCommitsEveryMessage(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{
		{Offset: 1, Key: []byte("a"), Value: []byte(`{}`)},
		{Offset: 2, Key: []byte("b"), Value: []byte(`{}`)},
	}}

	var handled sync.WaitGroup
	handled.Add(2)
	c := newConsumer(reader, "booking-events", "g", func(ctx context.Context, msg Message) error {
		defer handled.Done()
		if msg.Key == "b" {
			return NewPermanentError("bad", nil)
		}
		return nil
	}, logger.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	handled.Wait()
	cancel()
	<-done

	reader.mu.Lock()
	defer reader.mu.Unlock()
	assert.Equal(t, []int64{1, 2}, reader.committed)
}
