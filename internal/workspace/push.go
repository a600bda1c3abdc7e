package workspace

import (
	"github.com/spec-kit/helpdesk-console/internal/domain"
)

// ApplyCreate adds a pushed ticket to every loaded list tab whose
// definition accepts it. Unloaded tabs pick it up on their first fetch.
func (w *Workspace) ApplyCreate(ticket domain.Ticket) []string {
	var changed []string
	for _, def := range w.set.List() {
		if !w.cache.IsTabLoaded(def.Key) || !def.Accepts(ticket, w.principal) {
			continue
		}
		if w.cache.AddTicket(ticket, def.Key) {
			changed = append(changed, def.Key)
		}
	}
	return changed
}

// ApplyUpdate merges a pushed partial into every tab holding the ticket,
// whether or not the tab is active. Open detail drafts are left alone;
// they pick up the server copy on their next save or reload.
func (w *Workspace) ApplyUpdate(patch domain.TicketPatch) []string {
	return w.cache.UpdateTicket(patch)
}
