package workspace

import (
	"context"
	"sync"

	"github.com/spec-kit/helpdesk-console/internal/backend"
	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/realtime"
)

// swappableAPI forwards every call to the current client. Open workflows
// hold the swappable value, so a new token reaches them too.
type swappableAPI struct {
	mu  sync.RWMutex
	api API
}

func (s *swappableAPI) current() API {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.api
}

func (s *swappableAPI) set(api API) {
	s.mu.Lock()
	s.api = api
	s.mu.Unlock()
}

func (s *swappableAPI) ListTickets(ctx context.Context, req backend.ListRequest) ([]domain.Ticket, error) {
	return s.current().ListTickets(ctx, req)
}

func (s *swappableAPI) GetTicket(ctx context.Context, id domain.ID) (domain.Ticket, error) {
	return s.current().GetTicket(ctx, id)
}

func (s *swappableAPI) UpdateTicket(ctx context.Context, patch domain.TicketPatch) (domain.Ticket, error) {
	return s.current().UpdateTicket(ctx, patch)
}

func (s *swappableAPI) ResolveTicket(ctx context.Context, id domain.ID, notes string, tags []string) (domain.Ticket, error) {
	return s.current().ResolveTicket(ctx, id, notes, tags)
}

func (s *swappableAPI) AddComment(ctx context.Context, req backend.CommentRequest) (domain.Comment, error) {
	return s.current().AddComment(ctx, req)
}

func (s *swappableAPI) TicketTags(ctx context.Context, id domain.ID) ([]domain.Tag, error) {
	return s.current().TicketTags(ctx, id)
}

// Reauthenticate switches the workspace to a client and push source built
// for a new agent token. Tabs, drafts and the cache are kept; a mounted
// workspace reconnects its push channel through source.
func (w *Workspace) Reauthenticate(api API, source realtime.Source) {
	if api != nil {
		w.api.set(api)
	}
	w.sync.Replace(source)
	w.logger.Info("workspace credentials replaced")
}
