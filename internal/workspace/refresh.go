package workspace

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-console/internal/backend"
	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/events"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util"
)

// Reason is the trigger of a refresh decision.
type Reason string

const (
	ReasonActivated     Reason = "activated"
	ReasonFilterChanged Reason = "filter_changed"
	ReasonManualRefresh Reason = "manual_refresh"
)

// Operation names carried by workspace notifications.
const (
	OpRefresh    = "refresh"
	OpOpenTicket = "open_ticket"
	OpTicketTags = "ticket_tags"
)

// MaybeRefresh decides whether tab needs a fetch and performs it. It
// reports whether fetched tickets were stored.
//
//   - ReasonActivated fetches when the tab is not loaded or stale.
//   - ReasonFilterChanged fetches when the tab is not loaded or its date
//     range differs from the one last fetched.
//   - ReasonManualRefresh always fetches. The tab keeps its tickets until
//     the fetch succeeds and replaces them.
func (w *Workspace) MaybeRefresh(ctx context.Context, tab string, reason Reason) (bool, error) {
	def, err := w.definition(tab)
	if err != nil {
		return false, err
	}

	w.mu.Lock()
	if !w.mounted {
		w.mu.Unlock()
		return false, ErrNotMounted
	}
	epoch := w.epoch
	rng := w.ranges[tab]
	last, fetchedBefore := w.fetched[tab]
	w.mu.Unlock()

	if !w.router.IsOpen(tab) {
		return false, apperrors.NewConflict("tab is not open", map[string]any{"tab": tab})
	}

	loaded := w.cache.IsTabLoaded(tab)
	switch reason {
	case ReasonActivated:
		if loaded && !w.cache.ShouldRefreshTab(tab) {
			return false, nil
		}
	case ReasonFilterChanged:
		if loaded && fetchedBefore && last.Equal(rng) {
			return false, nil
		}
	case ReasonManualRefresh:
	default:
		return false, apperrors.NewValidationError("unknown refresh reason", map[string]any{"reason": string(reason)})
	}

	w.metrics.RecordFetch(tab, string(reason))
	logger := w.logger.With(zap.String("tab", tab), zap.String("reason", string(reason)))
	logger.Debug("fetching tab")

	tickets, err := w.api.ListTickets(ctx, backend.ListRequest{
		Range:   rng,
		Filters: def.Criteria(w.principal),
	})
	if err != nil {
		logger.Warn("tab fetch failed", zap.Error(err))
		w.notify(ctx, events.LevelError, OpRefresh, fmt.Sprintf("loading %s failed: %s", tab, apperrors.ToDomainError(err).Message), "")
		return false, err
	}

	w.mu.Lock()
	stale := !w.mounted || w.epoch != epoch || !w.router.IsOpen(tab)
	if !stale {
		w.fetched[tab] = rng
	}
	w.mu.Unlock()
	if stale {
		logger.Info("discarding fetch for a tab that is gone", zap.Int("tickets", len(tickets)))
		return false, nil
	}

	w.cache.SetTickets(tab, tickets)
	logger.Debug("tab fetched", zap.Int("tickets", len(tickets)))
	if reason == ReasonManualRefresh {
		w.notify(ctx, events.LevelSuccess, OpRefresh, fmt.Sprintf("%s refreshed", tab), "")
	}
	return true, nil
}

// SetFilters stores the client-side criteria of a tab and, when rng is
// not nil, its server date range. A new range triggers a fetch.
func (w *Workspace) SetFilters(ctx context.Context, tab string, criteria domain.FilterCriteria, rng *domain.DateRange) (bool, error) {
	if _, err := w.definition(tab); err != nil {
		return false, err
	}
	w.cache.SetFilters(tab, criteria)
	if rng != nil {
		w.mu.Lock()
		w.ranges[tab] = *rng
		w.mu.Unlock()
	}
	if !w.router.IsOpen(tab) {
		return false, nil
	}
	return w.MaybeRefresh(ctx, tab, ReasonFilterChanged)
}
