package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"idlens/pkg/requestcontext"
)

// Publisher hands audit events to a Worker through a buffered channel.
// Emit never blocks request paths: when the buffer is full the event is
// dropped and logged.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

// NewPublisher creates a publisher with the given buffer size.
func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{inbox: make(chan Event, buffer), logger: logger}
}

// Inbox is the channel a Worker consumes.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}

// Emit fills ID, timestamp and request ID when missing and enqueues event.
// It reports whether the event was accepted.
func (p *Publisher) Emit(ctx context.Context, event Event) bool {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	select {
	case p.inbox <- event:
		return true
	default:
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"operation", event.Operation,
			"request_id", event.RequestID,
		)
		return false
	}
}
