package workspace

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/observability"
)

// Factory builds the options of a new workspace for an agent. token is
// the agent's bearer token, forwarded to the backend.
type Factory func(principal domain.ID, token string) Options

// Manager keeps one mounted workspace per signed-in agent.
type Manager struct {
	factory Factory
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	spaces map[domain.ID]*Workspace
	tokens map[domain.ID]string
}

// NewManager creates an empty manager.
func NewManager(factory Factory, logger *zap.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		factory: factory,
		logger:  observability.OrNop(logger),
		ctx:     ctx,
		cancel:  cancel,
		spaces:  make(map[domain.ID]*Workspace),
		tokens:  make(map[domain.ID]string),
	}
}

// Get returns the agent's workspace, creating and mounting it on first
// use. A token different from the one the workspace was built with
// re-authenticates it; only API and Source of the new options are used.
func (m *Manager) Get(principal domain.ID, token string) *Workspace {
	m.mu.Lock()
	if w, ok := m.spaces[principal]; ok {
		stale := token != "" && m.tokens[principal] != token
		if stale {
			m.tokens[principal] = token
		}
		m.mu.Unlock()
		if stale {
			opts := m.factory(principal, token)
			w.Reauthenticate(opts.API, opts.Source)
			m.logger.Info("workspace re-authenticated", zap.String("principal", principal.String()))
		}
		return w
	}
	defer m.mu.Unlock()
	opts := m.factory(principal, token)
	opts.Principal = principal
	w := New(opts)
	w.Mount(m.ctx)
	m.spaces[principal] = w
	m.tokens[principal] = token
	m.logger.Info("workspace created", zap.String("principal", principal.String()))
	return w
}

// Len reports how many workspaces are live.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.spaces)
}

// Close unmounts every workspace.
func (m *Manager) Close() {
	m.mu.Lock()
	spaces := m.spaces
	m.spaces = make(map[domain.ID]*Workspace)
	m.tokens = make(map[domain.ID]string)
	m.mu.Unlock()

	m.cancel()
	for _, w := range spaces {
		w.Unmount()
	}
}
