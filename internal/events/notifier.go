package events

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-console/internal/clock"
	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/observability"
)

// Notifier turns action outcomes into notification events.
type Notifier struct {
	dispatcher Dispatcher
	logger     *zap.Logger
	clock      clock.Clock
}

// NewNotifier creates a notifier publishing on dispatcher.
func NewNotifier(dispatcher Dispatcher, logger *zap.Logger, c clock.Clock) *Notifier {
	if c == nil {
		c = clock.Real()
	}
	return &Notifier{dispatcher: dispatcher, logger: observability.OrNop(logger), clock: c}
}

// Notify publishes one notification and returns it. A failing subscriber
// is logged; the notification still counts as delivered.
func (n *Notifier) Notify(ctx context.Context, level Level, operation, message string, ticketID domain.ID) Notification {
	note := Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Operation: operation,
		Message:   message,
		TicketID:  ticketID,
		CreatedAt: n.clock.Now(),
	}
	if n.dispatcher == nil {
		return note
	}
	err := n.dispatcher.Publish(ctx, Event{
		ID:        note.ID,
		Type:      EventNotification,
		TicketID:  ticketID,
		Timestamp: note.CreatedAt,
		Payload:   note,
	})
	if err != nil {
		n.logger.Warn("notification subscriber failed",
			zap.String("operation", operation),
			zap.String("ticket_id", ticketID.String()),
			zap.Error(err))
	}
	return note
}

// Publish forwards a domain event, stamping id and time when missing.
func (n *Notifier) Publish(ctx context.Context, event Event) {
	if n.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = n.clock.Now()
	}
	if err := n.dispatcher.Publish(ctx, event); err != nil {
		n.logger.Warn("event subscriber failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
