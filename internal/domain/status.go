package domain

import (
	"encoding/json"
	"strings"
)

// TicketStatus enumerates lifecycle states for tickets.
//
// The backend reports the same business state as either "pending" or
// "waiting". Both decode to StatusPending so that comparisons never need
// to know about the alias.
type TicketStatus string

const (
	StatusOpen       TicketStatus = "open"
	StatusInProgress TicketStatus = "in_progress"
	StatusPending    TicketStatus = "pending"
	StatusResolved   TicketStatus = "resolved"
	StatusClosed     TicketStatus = "closed"
	StatusDeleted    TicketStatus = "deleted"
)

const waitingAlias = "waiting"

var statusLabels = map[TicketStatus]string{
	StatusOpen:       "Open",
	StatusInProgress: "In progress",
	StatusPending:    "Pending",
	StatusResolved:   "Resolved",
	StatusClosed:     "Closed",
	StatusDeleted:    "Deleted",
}

// ParseStatus canonicalizes a wire status. Unknown values are returned
// lower-cased with ok=false so callers can keep them without matching
// any known state.
func ParseStatus(raw string) (TicketStatus, bool) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	if norm == waitingAlias {
		return StatusPending, true
	}
	status := TicketStatus(norm)
	_, ok := statusLabels[status]
	return status, ok
}

// UnmarshalJSON canonicalizes the status at the decoding boundary.
func (s *TicketStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s, _ = ParseStatus(raw)
	return nil
}

// Label returns the display label of the status.
func (s TicketStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// Aliases lists every wire spelling of the status.
func (s TicketStatus) Aliases() []string {
	if s == StatusPending {
		return []string{string(StatusPending), waitingAlias}
	}
	return []string{string(s)}
}

// Valid reports whether s is one of the canonical states.
func (s TicketStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// IsTerminal reports states no workflow operation may leave.
func (s TicketStatus) IsTerminal() bool {
	return s == StatusClosed || s == StatusDeleted
}

// IsFinished reports states that end the resolution workflow.
func (s TicketStatus) IsFinished() bool {
	return s == StatusResolved || s.IsTerminal()
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

// ParsePriority canonicalizes a wire priority.
func ParsePriority(raw string) (TicketPriority, bool) {
	p := TicketPriority(strings.ToLower(strings.TrimSpace(raw)))
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return p, true
	}
	return p, false
}

// UnmarshalJSON canonicalizes the priority at the decoding boundary.
func (p *TicketPriority) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p, _ = ParsePriority(raw)
	return nil
}
