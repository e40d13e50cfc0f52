// Package notifications consumes booking events and delivers them to
// recipients through Redis: a pub/sub channel for live listeners and a capped
// list acting as an inbox.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"venuebook/pkg/kafka"
	"venuebook/pkg/logger"

	"github.com/redis/go-redis/v9"
)

var (
	ErrUnknownEvent = errors.New("unknown booking event type")
	ErrNoRecipient  = errors.New("booking event has no recipient")
)

type Notifier struct {
	rdb       redis.UniversalClient
	inboxSize int
	log       *logger.Logger
	pipeline  *Pipeline
}

func NewNotifier(rdb redis.UniversalClient, inboxSize int, log *logger.Logger) *Notifier {
	n := &Notifier{
		rdb:       rdb,
		inboxSize: max(inboxSize, 1),
		log:       log,
	}
	n.pipeline = NewPipeline(
		NewStep("render", n.render),
		NewStep("route", n.route),
		NewStep("deliver", n.deliver),
	)
	return n
}

// Handle is the consumer's message handler. Malformed events are permanent
// failures; Redis trouble is transient so the consumer retries.
func (n *Notifier) Handle(ctx context.Context, msg kafka.Message) error {
	var d Delivery
	if err := msg.DecodeValue(&d.Event); err != nil {
		return kafka.NewPermanentError("decode booking event", err)
	}

	if err := n.pipeline.Run(ctx, &d); err != nil {
		if errors.Is(err, ErrUnknownEvent) || errors.Is(err, ErrNoRecipient) {
			return kafka.NewPermanentError("undeliverable booking event", err)
		}
		return kafka.NewTransientError("deliver booking event", err)
	}

	n.log.Info("Notification delivered",
		"event_id", d.Event.ID,
		"type", d.Event.Type,
		"recipient", d.Event.Recipient,
		"booking_id", d.Event.Booking.ID,
	)
	return nil
}

func (n *Notifier) render(_ context.Context, d *Delivery) error {
	render, ok := renderers[d.Event.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, d.Event.Type)
	}

	b := d.Event.Booking
	d.Notification = Notification{
		ID:         d.Event.ID,
		Type:       d.Event.Type,
		Recipient:  d.Event.Recipient,
		Message:    render(b),
		BookingID:  b.ID,
		SpaceID:    b.SpaceID,
		Date:       b.Date,
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
		Status:     b.Status,
		OccurredAt: d.Event.OccurredAt,
	}
	return nil
}

func (n *Notifier) route(_ context.Context, d *Delivery) error {
	if d.Event.Recipient == "" {
		return ErrNoRecipient
	}
	d.Channel = ChannelFor(d.Event.Recipient)
	d.InboxKey = InboxKeyFor(d.Event.Recipient)
	return nil
}

func (n *Notifier) deliver(ctx context.Context, d *Delivery) error {
	payload, err := json.Marshal(d.Notification)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	_, err = n.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, d.Channel, payload)
		pipe.LPush(ctx, d.InboxKey, payload)
		pipe.LTrim(ctx, d.InboxKey, 0, int64(n.inboxSize-1))
		return nil
	})
	if err != nil {
		return fmt.Errorf("write notification to redis: %w", err)
	}
	return nil
}

// Inbox returns up to limit of the recipient's most recent notifications, newest first.
func (n *Notifier) Inbox(ctx context.Context, recipient string, limit int) ([]Notification, error) {
	if limit <= 0 || limit > n.inboxSize {
		limit = n.inboxSize
	}

	raw, err := n.rdb.LRange(ctx, InboxKeyFor(recipient), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read inbox: %w", err)
	}

	out := make([]Notification, 0, len(raw))
	for _, item := range raw {
		var note Notification
		if err := json.Unmarshal([]byte(item), &note); err != nil {
			n.log.Warn("Skipping malformed inbox entry", "recipient", recipient, "error", err)
			continue
		}
		out = append(out, note)
	}
	return out, nil
}
