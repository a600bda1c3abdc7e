package events

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-console/internal/observability"
)

// DefaultLogCapacity bounds the notification log.
const DefaultLogCapacity = 100

// NotificationLog keeps the most recent notifications and logs ticket
// events as they pass through the dispatcher.
type NotificationLog struct {
	logger *zap.Logger
	mu     sync.RWMutex
	ring   []Notification
	next   int
	full   bool
}

// NewNotificationLog creates the log. capacity <= 0 selects DefaultLogCapacity.
func NewNotificationLog(logger *zap.Logger, capacity int) *NotificationLog {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &NotificationLog{
		logger: observability.OrNop(logger),
		ring:   make([]Notification, capacity),
	}
}

// RegisterHandlers subscribes to events.
func (l *NotificationLog) RegisterHandlers(dispatcher Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(EventNotification, l.handleNotification)
	dispatcher.Subscribe(EventTicketStatusChanged, l.handleStatusChanged)
	dispatcher.Subscribe(EventTicketPushed, l.handleTicketPushed)
}

func (l *NotificationLog) handleNotification(_ context.Context, event Event) error {
	note, ok := event.Payload.(Notification)
	if !ok {
		return nil
	}
	l.mu.Lock()
	l.ring[l.next] = note
	l.next = (l.next + 1) % len(l.ring)
	if l.next == 0 {
		l.full = true
	}
	l.mu.Unlock()

	l.logger.Info("Notification",
		zap.String("level", string(note.Level)),
		zap.String("operation", note.Operation),
		zap.String("ticket_id", note.TicketID.String()),
		zap.String("message", note.Message))
	return nil
}

func (l *NotificationLog) handleStatusChanged(_ context.Context, event Event) error {
	l.logger.Info("TicketStatusChanged", zap.String("ticket_id", event.TicketID.String()), zap.Any("payload", event.Payload))
	return nil
}

func (l *NotificationLog) handleTicketPushed(_ context.Context, event Event) error {
	l.logger.Debug("TicketPushed", zap.String("ticket_id", event.TicketID.String()), zap.Any("payload", event.Payload))
	return nil
}

// Recent returns up to limit notifications, newest first. limit <= 0
// returns everything held.
func (l *NotificationLog) Recent(limit int) []Notification {
	l.mu.RLock()
	defer l.mu.RUnlock()
	size := l.next
	if l.full {
		size = len(l.ring)
	}
	if limit <= 0 || limit > size {
		limit = size
	}
	out := make([]Notification, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (l.next - i + len(l.ring)) % len(l.ring)
		out = append(out, l.ring[idx])
	}
	return out
}
