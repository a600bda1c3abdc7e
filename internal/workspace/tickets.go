package workspace

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/events"
	"github.com/spec-kit/helpdesk-console/internal/tabs"
	"github.com/spec-kit/helpdesk-console/internal/workflow"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util"
)

// OpenTicket opens the detail tab of a ticket, reading it from the
// backend the first time. An already open ticket is only activated.
func (w *Workspace) OpenTicket(ctx context.Context, id domain.ID) (*workflow.Resolution, error) {
	if s, ok := w.session(id); ok {
		w.router.Open(s.key)
		return s.flow, nil
	}

	ticket, err := w.api.GetTicket(ctx, id)
	if err != nil {
		w.notify(ctx, events.LevelError, OpOpenTicket, "opening ticket failed: "+apperrors.ToDomainError(err).Message, id)
		return nil, err
	}
	w.cache.ReplaceTicket(ticket)

	flow := workflow.New(ticket, workflow.Deps{
		API:       w.api,
		Cache:     w.cache,
		Audit:     w.audit,
		History:   w.history,
		Navigator: w,
		Notifier:  w.notifier,
		Logger:    w.logger,
		Actor:     w.principal,
	})
	key := tabs.DetailTabKey(ticket)

	w.mu.Lock()
	if s, ok := w.sessions[id]; ok {
		w.mu.Unlock()
		w.router.Open(s.key)
		return s.flow, nil
	}
	w.sessions[id] = &session{key: key, flow: flow}
	w.mu.Unlock()

	w.router.Open(key)
	w.logger.Debug("detail tab opened", zap.String("tab", key), zap.String("ticket_id", id.String()))
	return flow, nil
}

// Ticket returns the workflow of an open detail tab.
func (w *Workspace) Ticket(id domain.ID) (*workflow.Resolution, error) {
	s, ok := w.session(id)
	if !ok {
		return nil, apperrors.NewNotFound("open ticket", map[string]any{"ticket_id": id.String()})
	}
	return s.flow, nil
}

// CloseTicket closes a detail tab without saving and returns the tab
// that becomes active.
func (w *Workspace) CloseTicket(id domain.ID) (string, error) {
	s, ok := w.session(id)
	if !ok {
		return "", apperrors.NewNotFound("open ticket", map[string]any{"ticket_id": id.String()})
	}
	ticket := s.flow.Committed()
	return w.CloseDetail(ticket, ticket.Status), nil
}

// CloseDetail closes the detail tab of ticket. Navigation goes back to
// the tab the detail was opened from. If that tab is gone, a ticket that
// was pending falls back to the pending list and any other ticket to the
// list matching its current status.
func (w *Workspace) CloseDetail(ticket domain.Ticket, from domain.TicketStatus) string {
	key := tabs.DetailTabKey(ticket)
	w.mu.Lock()
	if s, ok := w.sessions[ticket.ID]; ok {
		key = s.key
		delete(w.sessions, ticket.ID)
	}
	w.mu.Unlock()

	status := ticket.Status
	if from == domain.StatusPending {
		status = from
	}
	next := w.router.Close(key, w.set.FallbackFor(status))
	w.logger.Debug("detail tab closed", zap.String("tab", key), zap.String("active", next))
	return next
}

// OpenTickets lists the ids of tickets with an open detail tab.
func (w *Workspace) OpenTickets() []domain.ID {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]domain.ID, 0, len(w.sessions))
	for id := range w.sessions {
		out = append(out, id)
	}
	return out
}

func (w *Workspace) session(id domain.ID) (*session, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.sessions[id]
	return s, ok
}

// TicketTab returns the detail tab key of an open ticket.
func (w *Workspace) TicketTab(id domain.ID) (string, bool) {
	s, ok := w.session(id)
	if !ok {
		return "", false
	}
	return s.key, true
}
