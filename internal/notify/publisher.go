package notify

import (
	"context"
	"log/slog"
	"time"
)

// Publisher is the emission port the business services hold. Emission never
// returns an error: notifications are informational and must not fail the
// operation that produced them.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// ChannelPublisher hands events to a buffered channel consumed by the Worker.
// When the buffer is full the event is dropped with a warning rather than
// blocking the business operation.
type ChannelPublisher struct {
	inbox  chan Event
	logger *slog.Logger
	clock  func() time.Time
}

const defaultBuffer = 1024

func NewChannelPublisher(logger *slog.Logger) *ChannelPublisher {
	return &ChannelPublisher{
		inbox:  make(chan Event, defaultBuffer),
		logger: logger,
		clock:  time.Now,
	}
}

func (p *ChannelPublisher) Publish(_ context.Context, event Event) {
	event = event.fill(p.clock().UTC())
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("notification buffer full, event dropped",
			slog.String("event_id", event.ID),
			slog.String("type", string(event.Type)))
	}
}

// Inbox exposes the channel for the Worker.
func (p *ChannelPublisher) Inbox() <-chan Event {
	return p.inbox
}

// NopPublisher discards every event. Used in tests and when notifications are
// not wired.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}
