// Package notify turns lifecycle events into messages on the booking-events
// topic. Publishing happens on background workers; callers never wait for the
// broker and never see its errors.
package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"venuebook/pkg/kafka"
	"venuebook/pkg/logger"
	"venuebook/pkg/model"

	"github.com/google/uuid"
)

const (
	SchemaVersion = "1"
	Source        = "bookings"

	defaultPublishTimeout = 5 * time.Second
)

type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type Dispatcher struct {
	publisher      Publisher
	queue          chan model.BookingEvent
	workers        int
	publishTimeout time.Duration
	log            *logger.Logger

	mu      sync.RWMutex
	closed  bool
	started sync.Once
	wg      sync.WaitGroup

	published atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64
}

func NewDispatcher(publisher Publisher, queueSize, workers int, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		publisher:      publisher,
		queue:          make(chan model.BookingEvent, max(queueSize, 1)),
		workers:        max(workers, 1),
		publishTimeout: defaultPublishTimeout,
		log:            log,
	}
}

// Start launches the workers. Calling it again has no effect.
func (d *Dispatcher) Start() {
	d.started.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.run()
		}
		d.log.Info("Notification dispatcher started", "workers", d.workers, "queue_size", cap(d.queue))
	})
}

func (d *Dispatcher) NotifyAdmins(ctx context.Context, event model.EventType, booking *model.Booking) {
	d.enqueue(ctx, model.RecipientAdmins, event, booking)
}

func (d *Dispatcher) NotifyUser(ctx context.Context, userID string, event model.EventType, booking *model.Booking) {
	if userID == "" {
		d.log.Warn("Dropping notification without recipient", "type", event, "booking_id", booking.ID)
		return
	}
	d.enqueue(ctx, userID, event, booking)
}

func (d *Dispatcher) enqueue(_ context.Context, recipient string, event model.EventType, booking *model.Booking) {
	ev := model.BookingEvent{
		ID:         uuid.NewString(),
		Type:       event,
		Recipient:  recipient,
		Booking:    *booking,
		OccurredAt: time.Now().UTC(),
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.dropped.Add(1)
		d.log.Warn("Notification dispatcher closed, dropping event", "type", event, "booking_id", booking.ID)
		return
	}

	select {
	case d.queue <- ev:
	default:
		d.dropped.Add(1)
		d.log.Warn("Notification queue full, dropping event",
			"type", event,
			"recipient", recipient,
			"booking_id", booking.ID,
		)
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for ev := range d.queue {
		d.publish(ev)
	}
}

func (d *Dispatcher) publish(ev model.BookingEvent) {
	msg, err := kafka.NewMessage().
		WithKey(ev.Booking.ID).
		WithValue(ev).
		WithEventID(ev.ID).
		WithEventType(string(ev.Type)).
		WithCorrelationID(ev.Booking.ID).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		WithTimestamp(ev.OccurredAt).
		Build()
	if err != nil {
		d.failed.Add(1)
		d.log.Error("Failed to build notification message", "event_id", ev.ID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.publishTimeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, msg); err != nil {
		d.failed.Add(1)
		d.log.Error("Failed to publish notification",
			"event_id", ev.ID,
			"type", ev.Type,
			"recipient", ev.Recipient,
			"booking_id", ev.Booking.ID,
			"error", err,
		)
		return
	}
	d.published.Add(1)
}

// Close stops accepting events and waits for queued ones to be published or
// for ctx to end, whichever comes first.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.Start()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.log.Info("Notification dispatcher drained",
			"published", d.published.Load(),
			"dropped", d.dropped.Load(),
			"failed", d.failed.Load(),
		)
		return nil
	case <-ctx.Done():
		d.log.Warn("Notification dispatcher did not drain in time", "pending", len(d.queue))
		return ctx.Err()
	}
}

type Stats struct {
	Published int64 `json:"published"`
	Dropped   int64 `json:"dropped"`
	Failed    int64 `json:"failed"`
	Queued    int   `json:"queued"`
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Published: d.published.Load(),
		Dropped:   d.dropped.Load(),
		Failed:    d.failed.Load(),
		Queued:    len(d.queue),
	}
}
