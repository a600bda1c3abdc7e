package events

import (
	"time"

	"github.com/spec-kit/helpdesk-console/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventNotification        EventType = "notification"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketPushed        EventType = "ticket_pushed"
)

// Event is published on the console bus.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  domain.ID `json:"ticket_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// Level grades a user notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is the single user-facing outcome of an action.
type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Operation string    `json:"operation"`
	Message   string    `json:"message"`
	TicketID  domain.ID `json:"ticket_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	ChangedBy domain.ID           `json:"changed_by,omitempty"`
}

// TicketPushedPayload describes a push event merged into the cache.
type TicketPushedPayload struct {
	Action     string   `json:"action"`
	UpdateType string   `json:"update_type,omitempty"`
	Tabs       []string `json:"tabs"`
}
