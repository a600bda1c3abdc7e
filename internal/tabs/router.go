package tabs

import (
	"fmt"
	"slices"
	"sync"
)

// Router tracks open tabs, the active one and, for each tab, the tab
// that was active when it was opened.
type Router struct {
	mu     sync.Mutex
	open   []string
	opener map[string]string
	active string
}

// NewRouter returns a router with the given tabs open and the first one
// active.
func NewRouter(initial ...string) *Router {
	r := &Router{opener: make(map[string]string)}
	for _, key := range initial {
		if !slices.Contains(r.open, key) {
			r.open = append(r.open, key)
		}
	}
	if len(r.open) > 0 {
		r.active = r.open[0]
	}
	return r
}

// Open opens key if needed and activates it. The opener is recorded only
// the first time a tab opens.
func (r *Router) Open(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.openLocked(key)
}

func (r *Router) openLocked(key string) {
	if !slices.Contains(r.open, key) {
		r.open = append(r.open, key)
		if r.active != "" && r.active != key {
			r.opener[key] = r.active
		}
	}
	r.active = key
}

// Activate switches to an already open tab.
func (r *Router) Activate(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(r.open, key) {
		return fmt.Errorf("tab %q is not open", key)
	}
	r.active = key
	return nil
}

// Close removes key and returns the tab that is active afterwards. When
// the closed tab was active the router goes back to its opener if that
// tab is still open, else it opens fallback.
func (r *Router) Close(key, fallback string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.Index(r.open, key)
	if i < 0 {
		return r.active
	}
	r.open = slices.Delete(r.open, i, i+1)
	opener := r.opener[key]
	delete(r.opener, key)

	if r.active != key {
		return r.active
	}
	r.active = ""
	switch {
	case opener != "" && slices.Contains(r.open, opener):
		r.active = opener
	case fallback != "":
		r.openLocked(fallback)
	case len(r.open) > 0:
		r.active = r.open[len(r.open)-1]
	}
	return r.active
}

// Active returns the active tab key, empty when nothing is open.
func (r *Router) Active() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// IsOpen reports whether key is open.
func (r *Router) IsOpen(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Contains(r.open, key)
}

// Opener returns the tab that was active when key was opened.
func (r *Router) Opener(key string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opener[key]
}

// Tabs returns the open tabs in opening order.
func (r *Router) Tabs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.open)
}
