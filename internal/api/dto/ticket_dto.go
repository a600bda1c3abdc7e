package dto

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/events"
	"github.com/spec-kit/helpdesk-console/internal/workflow"
	"github.com/spec-kit/helpdesk-console/internal/workspace"
)

// FiltersRequest payload for PUT /tabs/:tab/filters. Filters accepts both
// snake_case and camelCase keys.
type FiltersRequest struct {
	Filters json.RawMessage `json:"filters"`
	Date1   *time.Time      `json:"date1"`
	Date2   *time.Time      `json:"date2"`
}

// Range returns the requested server date range, nil when neither bound
// is given.
func (r FiltersRequest) Range() *domain.DateRange {
	if r.Date1 == nil && r.Date2 == nil {
		return nil
	}
	var rng domain.DateRange
	if r.Date1 != nil {
		rng.From = *r.Date1
	}
	if r.Date2 != nil {
		rng.To = *r.Date2
	}
	return &rng
}

// ResolveRequest payload for POST /tickets/:id/resolve/confirm.
type ResolveRequest struct {
	ResolutionNotes string   `json:"resolution_notes"`
	Tags            []string `json:"tags"`
}

// CommentRequest payload for POST /tickets/:id/comments.
type CommentRequest struct {
	Content     string              `json:"content"`
	IsInternal  bool                `json:"is_internal"`
	Attachments []domain.Attachment `json:"attachments"`
}

// TagRequest payload for POST /tickets/:id/tags.
type TagRequest struct {
	Name string `json:"name"`
}

// TabTicketsResponse is the visible slice of a list tab.
type TabTicketsResponse struct {
	Tab           string          `json:"tab"`
	Loaded        bool            `json:"loaded"`
	LastFetchedAt time.Time       `json:"last_fetched_at"`
	Tickets       []domain.Ticket `json:"tickets"`
}

// RefreshResponse reports the outcome of a refresh decision.
type RefreshResponse struct {
	Tab     string `json:"tab"`
	Fetched bool   `json:"fetched"`
}

// TicketDetailResponse is the state of an open detail tab.
type TicketDetailResponse struct {
	Tab       string        `json:"tab"`
	Committed domain.Ticket `json:"committed"`
	Draft     domain.Ticket `json:"draft"`
	Dirty     bool          `json:"dirty"`
	Missing   []string      `json:"missing_fields"`
	Resolving bool          `json:"resolving"`
	Closed    bool          `json:"closed"`
}

// TicketDetail renders a workflow.
func TicketDetail(tab string, flow *workflow.Resolution) TicketDetailResponse {
	draft := flow.Draft()
	return TicketDetailResponse{
		Tab:       tab,
		Committed: flow.Committed(),
		Draft:     draft,
		Dirty:     flow.Dirty(),
		Missing:   draft.MissingRequired(),
		Resolving: flow.Resolving(),
		Closed:    flow.Closed(),
	}
}

// NavigationResponse reports where the workspace went after a tab closed.
type NavigationResponse struct {
	Active string   `json:"active"`
	Open   []string `json:"open"`
}

// RealtimeResponse describes the push channel.
type RealtimeResponse struct {
	Connected bool `json:"connected"`
	Mounted   bool `json:"mounted"`
}

// WorkspaceResponse lists the list tabs and the open tabs.
type WorkspaceResponse struct {
	Active string               `json:"active"`
	Open   []string             `json:"open"`
	Tabs   []workspace.TabState `json:"tabs"`
}

// NotificationsResponse lists recent notifications, newest first.
type NotificationsResponse struct {
	Notifications []events.Notification `json:"notifications"`
}

// ResolveResponse carries the resolved ticket and where the workspace
// navigated after its detail tab closed.
type ResolveResponse struct {
	Ticket     domain.Ticket      `json:"ticket"`
	Navigation NavigationResponse `json:"navigation"`
}
