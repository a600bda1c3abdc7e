// Package cache keeps the per-tab ticket collections of a workspace.
//
// The cache knows nothing about transport or rendering. It never orders or
// filters; the filter package derives visible slices from what is stored.
package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk-console/internal/clock"
	"github.com/spec-kit/helpdesk-console/internal/domain"
)

// DefaultRefreshTTL is how long a fetched tab counts as fresh.
const DefaultRefreshTTL = 90 * time.Second

type entry struct {
	tickets       []domain.Ticket
	index         map[domain.ID]int
	filters       domain.FilterCriteria
	lastFetchedAt time.Time
	loaded        bool
}

func newEntry() *entry {
	return &entry{index: make(map[domain.ID]int)}
}

// TicketCache is the single source of truth for ticket collections per
// tab. Every operation is atomic; two consecutive calls are not.
type TicketCache struct {
	mu    sync.RWMutex
	tabs  map[string]*entry
	ttl   time.Duration
	clock clock.Clock
}

// New returns an empty cache. ttl <= 0 selects DefaultRefreshTTL and a
// nil clock uses wall time.
func New(ttl time.Duration, c clock.Clock) *TicketCache {
	if ttl <= 0 {
		ttl = DefaultRefreshTTL
	}
	if c == nil {
		c = clock.Real()
	}
	return &TicketCache{
		tabs:  make(map[string]*entry),
		ttl:   ttl,
		clock: c,
	}
}

// TTL returns the freshness window.
func (c *TicketCache) TTL() time.Duration {
	return c.ttl
}

// GetTickets returns copies of the tab's tickets, or nil if the tab was
// never loaded.
func (c *TicketCache) GetTickets(tabKey string) []domain.Ticket {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.tabs[tabKey]
	if !ok || len(e.tickets) == 0 {
		return nil
	}
	out := make([]domain.Ticket, len(e.tickets))
	for i, t := range e.tickets {
		out[i] = t.Clone()
	}
	return out
}

// SetTickets replaces the tab's collection, stamps the fetch time and
// marks the tab loaded. Duplicate ids keep their last occurrence. A
// ticket number already held for an id is never lowered.
func (c *TicketCache) SetTickets(tabKey string, tickets []domain.Ticket) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entryLocked(tabKey)

	previous := make(map[domain.ID]int64, len(e.tickets))
	for _, t := range e.tickets {
		previous[t.ID] = t.TicketNumber
	}

	e.tickets = make([]domain.Ticket, 0, len(tickets))
	e.index = make(map[domain.ID]int, len(tickets))
	for _, t := range tickets {
		t = t.Clone()
		if n, ok := previous[t.ID]; ok && n > t.TicketNumber {
			t.TicketNumber = n
		}
		if i, dup := e.index[t.ID]; dup {
			e.tickets[i] = t
			continue
		}
		e.index[t.ID] = len(e.tickets)
		e.tickets = append(e.tickets, t)
	}
	e.lastFetchedAt = c.clock.Now()
	e.loaded = true
}

// AddTicket inserts the ticket into the tab unless its id is already
// present. It reports whether the ticket was inserted.
func (c *TicketCache) AddTicket(ticket domain.Ticket, tabKey string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entryLocked(tabKey)
	if _, ok := e.index[ticket.ID]; ok {
		return false
	}
	e.index[ticket.ID] = len(e.tickets)
	e.tickets = append(e.tickets, ticket.Clone())
	return true
}

// UpdateTicket merges the patch into every tab holding its id. Absent
// fields are preserved. It returns the keys of the tabs that changed.
func (c *TicketCache) UpdateTicket(patch domain.TicketPatch) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var touched []string
	for key, e := range c.tabs {
		i, ok := e.index[patch.ID]
		if !ok {
			continue
		}
		patch.Apply(&e.tickets[i])
		touched = append(touched, key)
	}
	sort.Strings(touched)
	return touched
}

// ReplaceTicket swaps in a server-authoritative copy in every tab holding
// its id. The ticket number still never regresses.
func (c *TicketCache) ReplaceTicket(ticket domain.Ticket) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var touched []string
	for key, e := range c.tabs {
		i, ok := e.index[ticket.ID]
		if !ok {
			continue
		}
		next := ticket.Clone()
		if e.tickets[i].TicketNumber > next.TicketNumber {
			next.TicketNumber = e.tickets[i].TicketNumber
		}
		e.tickets[i] = next
		touched = append(touched, key)
	}
	sort.Strings(touched)
	return touched
}

// FindTicket returns a copy of the ticket from any tab holding it.
func (c *TicketCache) FindTicket(id domain.ID) (domain.Ticket, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.tabs {
		if i, ok := e.index[id]; ok {
			return e.tickets[i].Clone(), true
		}
	}
	return domain.Ticket{}, false
}

// ClearTickets empties the tab and marks it not loaded so the next
// activation fetches again. Filters are kept.
func (c *TicketCache) ClearTickets(tabKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.tabs[tabKey]
	if !ok {
		return
	}
	e.tickets = nil
	e.index = make(map[domain.ID]int)
	e.loaded = false
	e.lastFetchedAt = time.Time{}
}

// RemoveTab forgets the tab entirely, filters included.
func (c *TicketCache) RemoveTab(tabKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tabs, tabKey)
}

// IsTabLoaded reports whether SetTickets ran since the last clear.
func (c *TicketCache) IsTabLoaded(tabKey string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.tabs[tabKey]
	return ok && e.loaded
}

// ShouldRefreshTab reports whether the tab's data is older than the TTL.
// A tab that was never fetched always needs a refresh.
func (c *TicketCache) ShouldRefreshTab(tabKey string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.tabs[tabKey]
	if !ok || e.lastFetchedAt.IsZero() {
		return true
	}
	return c.clock.Now().Sub(e.lastFetchedAt) > c.ttl
}

// LastFetchedAt returns when the tab was last set, zero if never.
func (c *TicketCache) LastFetchedAt(tabKey string) time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.tabs[tabKey]; ok {
		return e.lastFetchedAt
	}
	return time.Time{}
}

// Filters returns the tab's stored criteria.
func (c *TicketCache) Filters(tabKey string) domain.FilterCriteria {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.tabs[tabKey]; ok {
		return e.filters
	}
	return domain.FilterCriteria{}
}

// SetFilters stores the tab's criteria without touching its tickets.
func (c *TicketCache) SetFilters(tabKey string, criteria domain.FilterCriteria) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entryLocked(tabKey).filters = criteria.Compact()
}

// Tabs lists the keys of every tab the cache knows, sorted.
func (c *TicketCache) Tabs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.tabs))
	for key := range c.tabs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (c *TicketCache) entryLocked(tabKey string) *entry {
	e, ok := c.tabs[tabKey]
	if !ok {
		e = newEntry()
		c.tabs[tabKey] = e
	}
	return e
}
