// Package workspace is one agent's console session: list tabs backed by
// the ticket cache, detail tabs running a resolution workflow each, and
// the push subscription that keeps both current.
package workspace

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-console/internal/backend"
	"github.com/spec-kit/helpdesk-console/internal/cache"
	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/events"
	"github.com/spec-kit/helpdesk-console/internal/filter"
	"github.com/spec-kit/helpdesk-console/internal/observability"
	"github.com/spec-kit/helpdesk-console/internal/realtime"
	"github.com/spec-kit/helpdesk-console/internal/tabs"
	"github.com/spec-kit/helpdesk-console/internal/workflow"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util"
)

// ErrNotMounted is returned by operations that need a mounted workspace.
var ErrNotMounted = errors.New("workspace is not mounted")

// API is the REST surface a workspace consumes.
type API interface {
	workflow.TicketAPI
	ListTickets(ctx context.Context, req backend.ListRequest) ([]domain.Ticket, error)
	TicketTags(ctx context.Context, id domain.ID) ([]domain.Tag, error)
}

// Options wires a Workspace. API and Tabs are required. Notifications
// should be the log subscribed to Notifier's dispatcher.
type Options struct {
	API           API
	Tabs          *tabs.Set
	Cache         *cache.TicketCache
	Filter        *filter.Engine
	Source        realtime.Source
	Audit         workflow.AuditTrail
	History       workflow.StatusHistory
	Notifier      workflow.Notifier
	Notifications *events.NotificationLog
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	Principal     domain.ID
}

// TabState describes a list tab for the console surface.
type TabState struct {
	tabs.Definition
	Open          bool                  `json:"open"`
	Active        bool                  `json:"active"`
	Loaded        bool                  `json:"loaded"`
	Count         int                   `json:"count"`
	LastFetchedAt time.Time             `json:"last_fetched_at"`
	Filters       domain.FilterCriteria `json:"filters"`
	Range         domain.DateRange      `json:"range"`
}

// Workspace owns the tab state of one agent.
type Workspace struct {
	api       *swappableAPI
	set       *tabs.Set
	cache     *cache.TicketCache
	filter    *filter.Engine
	router    *tabs.Router
	sync      *realtime.Sync
	audit     workflow.AuditTrail
	history   workflow.StatusHistory
	notifier  workflow.Notifier
	notes     *events.NotificationLog
	metrics   *observability.Metrics
	logger    *zap.Logger
	principal domain.ID

	mu       sync.Mutex
	mounted  bool
	epoch    uint64
	ranges   map[string]domain.DateRange
	fetched  map[string]domain.DateRange
	sessions map[domain.ID]*session
}

type session struct {
	key  string
	flow *workflow.Resolution
}

// New builds an unmounted workspace with the first list tab open.
func New(opts Options) *Workspace {
	logger := observability.OrNop(opts.Logger).With(zap.String("principal", opts.Principal.String()))
	c := opts.Cache
	if c == nil {
		c = cache.New(cache.DefaultRefreshTTL, nil)
	}
	f := opts.Filter
	if f == nil {
		f = filter.New(nil)
	}
	w := &Workspace{
		api:       &swappableAPI{api: opts.API},
		set:       opts.Tabs,
		cache:     c,
		filter:    f,
		router:    tabs.NewRouter(opts.Tabs.List()[0].Key),
		audit:     opts.Audit,
		history:   opts.History,
		notifier:  opts.Notifier,
		notes:     opts.Notifications,
		metrics:   opts.Metrics,
		logger:    logger,
		principal: opts.Principal,
		ranges:    make(map[string]domain.DateRange),
		fetched:   make(map[string]domain.DateRange),
		sessions:  make(map[domain.ID]*session),
	}
	var pub realtime.Publisher
	if opts.Notifier != nil {
		pub = opts.Notifier
	}
	w.sync = realtime.NewSync(opts.Source, w, realtime.Options{
		Logger:    logger,
		Metrics:   opts.Metrics,
		Publisher: pub,
	})
	return w
}

// Mount subscribes to the push channel and allows fetches.
func (w *Workspace) Mount(ctx context.Context) {
	w.mu.Lock()
	if w.mounted {
		w.mu.Unlock()
		return
	}
	w.mounted = true
	w.epoch++
	w.mu.Unlock()

	w.sync.Start(ctx)
	w.logger.Info("workspace mounted")
}

// Unmount detaches the push channel. Fetches still in flight finish but
// their results are discarded.
func (w *Workspace) Unmount() {
	w.mu.Lock()
	if !w.mounted {
		w.mu.Unlock()
		return
	}
	w.mounted = false
	w.epoch++
	w.mu.Unlock()

	w.sync.Stop()
	w.logger.Info("workspace unmounted")
}

// Mounted reports whether the workspace is live.
func (w *Workspace) Mounted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mounted
}

// Principal returns the agent the workspace belongs to.
func (w *Workspace) Principal() domain.ID {
	return w.principal
}

// Sync exposes the push subscription for connection state and listeners.
func (w *Workspace) Sync() *realtime.Sync {
	return w.sync
}

// Notifications returns the most recent notifications, newest first.
func (w *Workspace) Notifications(limit int) []events.Notification {
	if w.notes == nil {
		return nil
	}
	return w.notes.Recent(limit)
}

// Cache returns the workspace's ticket cache.
func (w *Workspace) Cache() *cache.TicketCache {
	return w.cache
}

// ActiveTab returns the key of the active tab.
func (w *Workspace) ActiveTab() string {
	return w.router.Active()
}

// OpenTabs returns the open tabs, list and detail, in opening order.
func (w *Workspace) OpenTabs() []string {
	return w.router.Tabs()
}

// Tabs describes every list tab.
func (w *Workspace) Tabs() []TabState {
	active := w.router.Active()
	w.mu.Lock()
	ranges := make(map[string]domain.DateRange, len(w.ranges))
	for k, v := range w.ranges {
		ranges[k] = v
	}
	w.mu.Unlock()

	defs := w.set.List()
	out := make([]TabState, 0, len(defs))
	for _, def := range defs {
		out = append(out, TabState{
			Definition:    def,
			Open:          w.router.IsOpen(def.Key),
			Active:        active == def.Key,
			Loaded:        w.cache.IsTabLoaded(def.Key),
			Count:         len(w.cache.GetTickets(def.Key)),
			LastFetchedAt: w.cache.LastFetchedAt(def.Key),
			Filters:       w.cache.Filters(def.Key),
			Range:         ranges[def.Key],
		})
	}
	return out
}

// Visible returns the filtered, ordered tickets of a list tab.
func (w *Workspace) Visible(tab, search string) ([]domain.Ticket, error) {
	if _, err := w.definition(tab); err != nil {
		return nil, err
	}
	return w.filter.Apply(w.cache.GetTickets(tab), w.cache.Filters(tab), search), nil
}

// ActivateTab opens a list tab if needed, makes it active and refreshes
// it when stale.
func (w *Workspace) ActivateTab(ctx context.Context, tab string) ([]domain.Ticket, error) {
	if _, err := w.definition(tab); err != nil {
		return nil, err
	}
	w.router.Open(tab)
	if _, err := w.MaybeRefresh(ctx, tab, ReasonActivated); err != nil {
		return nil, err
	}
	return w.Visible(tab, "")
}

// CloseTab closes a list tab and forgets its cached tickets. Detail tabs
// are closed through CloseTicket.
func (w *Workspace) CloseTab(tab string) (string, error) {
	if _, err := w.definition(tab); err != nil {
		return "", err
	}
	next := w.router.Close(tab, "")
	w.cache.RemoveTab(tab)
	w.mu.Lock()
	delete(w.ranges, tab)
	delete(w.fetched, tab)
	w.mu.Unlock()
	return next, nil
}

// ClearTab empties a list tab; the next activation fetches again.
func (w *Workspace) ClearTab(tab string) error {
	if _, err := w.definition(tab); err != nil {
		return err
	}
	w.cache.ClearTickets(tab)
	return nil
}

// TicketTags lists the backend's tags for a ticket.
func (w *Workspace) TicketTags(ctx context.Context, id domain.ID) ([]domain.Tag, error) {
	out, err := w.api.TicketTags(ctx, id)
	if err != nil {
		w.notify(ctx, events.LevelError, OpTicketTags, "loading tags failed: "+apperrors.ToDomainError(err).Message, id)
		return nil, err
	}
	return out, nil
}

func (w *Workspace) definition(tab string) (tabs.Definition, error) {
	def, ok := w.set.Get(tab)
	if !ok {
		return tabs.Definition{}, apperrors.NewNotFound("tab", map[string]any{"tab": tab})
	}
	return def, nil
}

func (w *Workspace) notify(ctx context.Context, level events.Level, op, message string, id domain.ID) {
	if w.notifier == nil {
		return
	}
	w.notifier.Notify(ctx, level, op, message, id)
}
