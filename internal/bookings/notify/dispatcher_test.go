package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"venuebook/pkg/kafka"
	"venuebook/pkg/logger"
	"venuebook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mu          sync.Mutex
	publishFunc func(ctx context.Context, msg kafka.Message) error
	messages    []kafka.Message
}

func (m *mockPublisher) Publish(ctx context.Context, msg kafka.Message) error {
	m.mu.Lock()
	m.messages = append(m.messages, msg)
	m.mu.Unlock()
	if m.publishFunc != nil {
		return m.publishFunc(ctx, msg)
	}
	return nil
}

func (m *mockPublisher) Messages() []kafka.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]kafka.Message(nil), m.messages...)
}

func sampleBooking() *model.Booking {
	return &model.Booking{
		ID:        "b-1",
		SpaceID:   "hall",
		UserID:    "alice",
		Date:      model.MustDate("2025-06-01"),
		StartTime: model.MustTimeOfDay("09:00"),
		EndTime:   model.MustTimeOfDay("10:00"),
		Status:    model.StatusPending,
	}
}

func TestDispatcher_PublishesEnvelope(t *testing.T) {
	pub := &mockPublisher{}
	d := NewDispatcher(pub, 8, 1, logger.Discard())
	d.Start()

	d.NotifyAdmins(context.Background(), model.EventBookingRequest, sampleBooking())
	d.NotifyUser(context.Background(), "alice", model.EventStatusUpdate, sampleBooking())
	require.NoError(t, d.Close(context.Background()))

	msgs := pub.Messages()
	require.Len(t, msgs, 2)

	first := msgs[0]
	assert.Equal(t, "b-1", first.Key)
	assert.Equal(t, string(model.EventBookingRequest), first.GetEventType())
	assert.Equal(t, "b-1", first.GetCorrelationID())
	assert.Equal(t, SchemaVersion, first.Headers[kafka.HeaderSchemaVersion])
	assert.Equal(t, Source, first.Headers[kafka.HeaderSource])

	var ev model.BookingEvent
	require.NoError(t, first.DecodeValue(&ev))
	assert.Equal(t, first.GetEventID(), ev.ID)
	assert.Equal(t, model.RecipientAdmins, ev.Recipient)
	assert.Equal(t, *sampleBooking(), ev.Booking)

	require.NoError(t, msgs[1].DecodeValue(&ev))
	assert.Equal(t, "alice", ev.Recipient)
	assert.Equal(t, model.EventStatusUpdate, ev.Type)

	assert.Equal(t, Stats{Published: 2}, d.Stats())
}

func TestDispatcher_FullQueueDropsWithoutBlocking(t *testing.T) {
	pub := &mockPublisher{}
	d := NewDispatcher(pub, 1, 1, logger.Discard())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			d.NotifyAdmins(context.Background(), model.EventBookingRequest, sampleBooking())
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("notify blocked on a full queue")
	}

	assert.Equal(t, int64(4), d.Stats().Dropped)
	require.NoError(t, d.Close(context.Background()))
	assert.Len(t, pub.Messages(), 1)
}

func TestDispatcher_PublishFailureIsContained(t *testing.T) {
	pub := &mockPublisher{publishFunc: func(context.Context, kafka.Message) error {
		return errors.New("broker unavailable")
	}}
	d := NewDispatcher(pub, 4, 2, logger.Discard())
	d.Start()

	d.NotifyUser(context.Background(), "alice", model.EventBookingDeleted, sampleBooking())
	require.NoError(t, d.Close(context.Background()))

	assert.Equal(t, Stats{Failed: 1}, d.Stats())
}

func TestDispatcher_AfterCloseDrops(t *testing.T) {
	pub := &mockPublisher{}
	d := NewDispatcher(pub, 4, 1, logger.Discard())
	d.Start()
	require.NoError(t, d.Close(context.Background()))
	require.NoError(t, d.Close(context.Background()))

	d.NotifyAdmins(context.Background(), model.EventBookingRequest, sampleBooking())
	assert.Empty(t, pub.Messages())
	assert.Equal(t, int64(1), d.Stats().Dropped)
}

func TestDispatcher_CloseHonoursDeadline(t *testing.T) {
	release := make(chan struct{})
	pub := &mockPublisher{publishFunc: func(context.Context, kafka.Message) error {
		<-release
		return nil
	}}
	d := NewDispatcher(pub, 4, 1, logger.Discard())
	d.Start()
	d.NotifyAdmins(context.Background(), model.EventBookingRequest, sampleBooking())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)
	close(release)
}

func TestDispatcher_EmptyRecipientIgnored(t *testing.T) {
	pub := &mockPublisher{}
	d := NewDispatcher(pub, 4, 1, logger.Discard())
	d.NotifyUser(context.Background(), "", model.EventStatusUpdate, sampleBooking())
	assert.Equal(t, 0, d.Stats().Queued)
}
