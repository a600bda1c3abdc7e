// Package realtime bridges the server push channel into cache mutations.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/events"
	"github.com/spec-kit/helpdesk-console/internal/observability"
)

// Applier receives normalized deltas. Both methods return the keys of
// the tabs they changed.
type Applier interface {
	ApplyCreate(ticket domain.Ticket) []string
	ApplyUpdate(patch domain.TicketPatch) []string
}

// Publisher forwards applied pushes to the console bus.
type Publisher interface {
	Publish(ctx context.Context, event events.Event)
}

// Listener observes every applied event.
type Listener func(Event)

// Options carries the optional collaborators of a Sync.
type Options struct {
	Logger    *zap.Logger
	Metrics   *observability.Metrics
	Publisher Publisher
}

// Sync owns one push-channel subscription per workspace session.
type Sync struct {
	source  Source
	applier Applier
	logger  *zap.Logger
	metrics *observability.Metrics
	pub     Publisher

	connected atomic.Bool

	mu        sync.Mutex
	listeners map[string]Listener
	order     []string
	parent    context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewSync creates a Sync reading from source. A nil source never connects.
func NewSync(source Source, applier Applier, opts Options) *Sync {
	return &Sync{
		source:    source,
		applier:   applier,
		logger:    observability.OrNop(opts.Logger),
		metrics:   opts.Metrics,
		pub:       opts.Publisher,
		listeners: make(map[string]Listener),
	}
}

// Start subscribes in the background. Calling Start twice is a no-op.
func (s *Sync) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil || s.source == nil {
		return
	}
	s.parent = ctx
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		defer s.connected.Store(false)
		err := s.source.Run(ctx, s.Handle, s.setConnected)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("push channel stopped", zap.Error(err))
		}
	}(s.done)
}

// Stop unsubscribes and waits for the reader to exit.
func (s *Sync) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Replace swaps the source. A running subscription is stopped and
// restarted on the new source with the context it was started with.
func (s *Sync) Replace(source Source) {
	s.mu.Lock()
	parent, running := s.parent, s.cancel != nil
	s.mu.Unlock()

	s.Stop()
	s.mu.Lock()
	s.source = source
	s.mu.Unlock()
	if running {
		s.Start(parent)
	}
}

// IsConnected reports whether the push channel is currently up.
func (s *Sync) IsConnected() bool {
	return s.connected.Load()
}

func (s *Sync) setConnected(up bool) {
	if s.connected.Swap(up) != up {
		s.logger.Info("push channel state changed", zap.Bool("connected", up))
	}
}

// AddEventListener registers fn and returns the id to remove it with.
func (s *Sync) AddEventListener(fn Listener) string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[id] = fn
	s.order = append(s.order, id)
	return id
}

// RemoveEventListener unregisters a listener. Unknown ids are ignored.
func (s *Sync) RemoveEventListener(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listeners[id]; !ok {
		return
	}
	delete(s.listeners, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Handle decodes and applies one raw payload. It never panics and never
// returns an error: bad events are logged and dropped so the
// subscription keeps running.
func (s *Sync) Handle(raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.RecordPushDropped("panic")
			s.logger.Error("push event handler panicked", zap.Any("panic", r))
		}
	}()

	evt, err := DecodeEvent(raw)
	if err != nil {
		s.metrics.RecordPushDropped("malformed")
		s.logger.Warn("dropping push event", zap.Int("bytes", len(raw)), zap.Error(err))
		return
	}
	s.Apply(evt)
}

// Apply merges a decoded event into the cache and notifies listeners.
func (s *Sync) Apply(evt Event) {
	if s.applier == nil {
		return
	}
	var tabs []string
	switch evt.Action {
	case ActionCreate:
		tabs = s.applier.ApplyCreate(evt.Ticket.Ticket())
	case ActionUpdate:
		tabs = s.applier.ApplyUpdate(evt.Ticket)
	default:
		s.metrics.RecordPushDropped("unknown_action")
		s.logger.Warn("dropping push event", zap.Error(fmt.Errorf("%w: unknown action %q", ErrMalformedEvent, evt.Action)))
		return
	}
	s.metrics.RecordPushApplied(string(evt.Action))
	s.logger.Debug("push event applied",
		zap.String("action", string(evt.Action)),
		zap.String("ticket_id", evt.Ticket.ID.String()),
		zap.String("update_type", evt.UpdateType),
		zap.Strings("tabs", tabs))

	if s.pub != nil {
		s.pub.Publish(context.Background(), events.Event{
			Type:     events.EventTicketPushed,
			TicketID: evt.Ticket.ID,
			Payload: events.TicketPushedPayload{
				Action:     string(evt.Action),
				UpdateType: evt.UpdateType,
				Tabs:       tabs,
			},
		})
	}

	for _, fn := range s.snapshotListeners() {
		s.notify(fn, evt)
	}
}

func (s *Sync) snapshotListeners() []Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Listener, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.listeners[id])
	}
	return out
}

func (s *Sync) notify(fn Listener, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("push listener panicked", zap.Any("panic", r))
		}
	}()
	fn(evt)
}
