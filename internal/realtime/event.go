package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spec-kit/helpdesk-console/internal/domain"
)

// Action is the kind of change a push event carries.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// ErrMalformedEvent marks a push payload that cannot be applied.
var ErrMalformedEvent = errors.New("malformed push event")

// Event is a decoded push event. Ticket holds only the fields the server
// sent; UpdateType is advisory and never changes how the ticket merges.
type Event struct {
	Action     Action             `json:"action"`
	Ticket     domain.TicketPatch `json:"ticket"`
	UpdateType string             `json:"update_type,omitempty"`
}

type envelope struct {
	Action     string          `json:"action"`
	Ticket     json.RawMessage `json:"ticket"`
	UpdateType string          `json:"update_type"`
}

// DecodeEvent normalizes and decodes one push payload. Every failure
// wraps ErrMalformedEvent.
func DecodeEvent(raw []byte) (Event, error) {
	canon, err := domain.Canonicalize(raw)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	var env envelope
	if err := json.Unmarshal(canon, &env); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	action := Action(env.Action)
	if action != ActionCreate && action != ActionUpdate {
		return Event{}, fmt.Errorf("%w: unknown action %q", ErrMalformedEvent, env.Action)
	}
	if len(env.Ticket) == 0 || bytes.Equal(bytes.TrimSpace(env.Ticket), []byte("null")) {
		return Event{}, fmt.Errorf("%w: missing ticket", ErrMalformedEvent)
	}
	patch, err := domain.DecodePatch(env.Ticket)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return Event{Action: action, Ticket: patch, UpdateType: env.UpdateType}, nil
}
