// Package tabs defines the workspace's list tabs and tracks which tabs
// are open.
package tabs

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/filter"
)

// Built-in list tab keys.
const (
	AllTickets      = "Tüm Talepler"
	MyTickets       = "Benim Taleplerim"
	PendingTickets  = "Bekleyen Talepler"
	ResolvedTickets = "Çözülen Talepler"
)

// Role ties a list tab to navigation fallbacks.
type Role string

const (
	RoleAll      Role = "all"
	RoleMine     Role = "mine"
	RolePending  Role = "pending"
	RoleResolved Role = "resolved"
	RoleCustom   Role = "custom"
)

// Definition describes one list tab and the server query behind it.
type Definition struct {
	Key          string   `toml:"key" json:"key"`
	Role         Role     `toml:"role" json:"role"`
	Statuses     []string `toml:"statuses" json:"statuses,omitempty"`
	Priorities   []string `toml:"priorities" json:"priorities,omitempty"`
	AssignedToMe bool     `toml:"assigned_to_me" json:"assigned_to_me"`
}

// Criteria returns the server-side filters for the tab. principal is the
// signed-in agent and only matters for AssignedToMe tabs.
func (d Definition) Criteria(principal domain.ID) domain.FilterCriteria {
	var c domain.FilterCriteria
	for _, raw := range d.Statuses {
		status, _ := domain.ParseStatus(raw)
		c.Status = append(c.Status, status)
	}
	for _, raw := range d.Priorities {
		priority, _ := domain.ParsePriority(raw)
		c.Priority = append(c.Priority, priority)
	}
	if d.AssignedToMe && !principal.IsZero() {
		c.AssignedTo = []domain.ID{principal}
	}
	return c.Compact()
}

// Accepts reports whether a pushed ticket belongs in the tab.
func (d Definition) Accepts(t domain.Ticket, principal domain.ID) bool {
	if d.AssignedToMe && principal.IsZero() {
		return false
	}
	return filter.Matches(t, d.Criteria(principal))
}

// Defaults are the four list tabs every workspace starts with.
func Defaults() []Definition {
	return []Definition{
		{Key: AllTickets, Role: RoleAll},
		{Key: MyTickets, Role: RoleMine, AssignedToMe: true},
		{Key: PendingTickets, Role: RolePending, Statuses: []string{string(domain.StatusPending)}},
		{Key: ResolvedTickets, Role: RoleResolved, Statuses: []string{string(domain.StatusResolved), string(domain.StatusClosed)}},
	}
}

type file struct {
	Tabs []Definition `toml:"tab"`
}

// LoadFile reads tab definitions from a TOML file with one [[tab]] table
// per list tab. An empty path yields the defaults.
func LoadFile(path string) (*Set, error) {
	if path == "" {
		return NewSet(Defaults())
	}
	var f file
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("decode tabs file %s: %w", path, err)
	}
	return NewSet(f.Tabs)
}

// Set is a validated, ordered collection of list tab definitions.
type Set struct {
	defs   []Definition
	byKey  map[string]int
	byRole map[Role]string
}

// NewSet validates defs: keys must be unique and non-blank and statuses
// must be known.
func NewSet(defs []Definition) (*Set, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("no list tabs defined")
	}
	s := &Set{
		defs:   make([]Definition, 0, len(defs)),
		byKey:  make(map[string]int, len(defs)),
		byRole: make(map[Role]string),
	}
	for _, d := range defs {
		d.Key = strings.TrimSpace(d.Key)
		if d.Key == "" {
			return nil, fmt.Errorf("list tab without key")
		}
		if IsDetailKey(d.Key) {
			return nil, fmt.Errorf("list tab %q collides with detail tab naming", d.Key)
		}
		if _, dup := s.byKey[d.Key]; dup {
			return nil, fmt.Errorf("duplicate list tab %q", d.Key)
		}
		for _, raw := range d.Statuses {
			if _, ok := domain.ParseStatus(raw); !ok {
				return nil, fmt.Errorf("list tab %q: unknown status %q", d.Key, raw)
			}
		}
		for _, raw := range d.Priorities {
			if _, ok := domain.ParsePriority(raw); !ok {
				return nil, fmt.Errorf("list tab %q: unknown priority %q", d.Key, raw)
			}
		}
		if d.Role == "" {
			d.Role = RoleCustom
		}
		if d.Role != RoleCustom {
			if _, taken := s.byRole[d.Role]; !taken {
				s.byRole[d.Role] = d.Key
			}
		}
		s.byKey[d.Key] = len(s.defs)
		s.defs = append(s.defs, d)
	}
	return s, nil
}

// Get returns the definition for key.
func (s *Set) Get(key string) (Definition, bool) {
	i, ok := s.byKey[key]
	if !ok {
		return Definition{}, false
	}
	return s.defs[i], true
}

// List returns the definitions in display order.
func (s *Set) List() []Definition {
	return append([]Definition(nil), s.defs...)
}

// FallbackFor picks the list tab to show after a detail tab closes
// without an opener: the resolved list for resolved or closed tickets,
// the pending list for pending ones, otherwise the all-tickets list.
func (s *Set) FallbackFor(status domain.TicketStatus) string {
	role := RoleAll
	switch status {
	case domain.StatusResolved, domain.StatusClosed:
		role = RoleResolved
	case domain.StatusPending:
		role = RolePending
	}
	if key, ok := s.byRole[role]; ok {
		return key
	}
	if key, ok := s.byRole[RoleAll]; ok {
		return key
	}
	return s.defs[0].Key
}

// DetailTabKey names the detail tab of a ticket.
func DetailTabKey(t domain.Ticket) string {
	if t.TicketNumber > 0 {
		return fmt.Sprintf("Talep #%d", t.TicketNumber)
	}
	return "Talep " + t.ID.String()
}

// IsDetailKey reports whether key names a ticket detail tab.
func IsDetailKey(key string) bool {
	return strings.HasPrefix(key, "Talep ")
}
