// Package filter derives the visible, ordered slice of a tab from its
// cached tickets. It holds no state between calls.
package filter

import (
	"slices"
	"strconv"
	"strings"

	"github.com/spec-kit/helpdesk-console/internal/clock"
	"github.com/spec-kit/helpdesk-console/internal/domain"
)

// Engine applies FilterCriteria. The clock only feeds the SLA predicate.
type Engine struct {
	clock clock.Clock
}

// New returns an Engine. A nil clock uses wall time.
func New(c clock.Clock) *Engine {
	if c == nil {
		c = clock.Real()
	}
	return &Engine{clock: c}
}

var defaultEngine = New(nil)

// Apply filters with wall-clock time. See Engine.Apply.
func Apply(tickets []domain.Ticket, criteria domain.FilterCriteria, searchTerm string) []domain.Ticket {
	return defaultEngine.Apply(tickets, criteria, searchTerm)
}

// Matches checks one ticket with wall-clock time. See Engine.Matches.
func Matches(t domain.Ticket, criteria domain.FilterCriteria) bool {
	return defaultEngine.Matches(t, criteria)
}

// Apply returns the tickets matching every populated criterion, newest
// first. searchTerm takes precedence over criteria.SearchTerm when both
// are set. The input slice is not modified.
func (e *Engine) Apply(tickets []domain.Ticket, criteria domain.FilterCriteria, searchTerm string) []domain.Ticket {
	sorted := slices.Clone(tickets)
	slices.SortStableFunc(sorted, func(a, b domain.Ticket) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	criteria = canonicalCriteria(criteria)
	term := strings.ToLower(strings.TrimSpace(searchTerm))
	if term == "" {
		term = strings.ToLower(criteria.SearchTerm)
	}

	out := make([]domain.Ticket, 0, len(sorted))
	for i := range sorted {
		if !e.matches(&sorted[i], criteria) {
			continue
		}
		if term != "" && !matchesSearch(&sorted[i], term) {
			continue
		}
		out = append(out, sorted[i])
	}
	return out
}

// Matches reports whether a single ticket passes criteria, ignoring the
// search term.
func (e *Engine) Matches(t domain.Ticket, criteria domain.FilterCriteria) bool {
	return e.matches(&t, canonicalCriteria(criteria))
}

func (e *Engine) matches(t *domain.Ticket, c domain.FilterCriteria) bool {
	if len(c.Status) > 0 && !slices.Contains(c.Status, t.Status) {
		return false
	}
	if len(c.Priority) > 0 && !slices.Contains(c.Priority, t.Priority) {
		return false
	}
	if !idIn(c.Category, t.CategoryID) ||
		!idIn(c.Subcategory, t.SubcategoryID) ||
		!idIn(c.Group, t.GroupID) ||
		!idIn(c.AssignedTo, t.AssignedTo) ||
		!idIn(c.CompanyID, t.CompanyID) ||
		!idIn(c.ParentCompanyID, t.ParentCompanyID) ||
		!idIn(c.ContactID, t.ContactID) {
		return false
	}
	if c.SLABreach != nil && t.SLABreached(e.clock.Now()) != *c.SLABreach {
		return false
	}
	return true
}

func idIn(allowed []domain.ID, id domain.ID) bool {
	return len(allowed) == 0 || slices.Contains(allowed, id)
}

// canonicalCriteria folds status aliases and drops falsy entries.
func canonicalCriteria(c domain.FilterCriteria) domain.FilterCriteria {
	c = c.Compact()
	if len(c.Status) > 0 {
		statuses := make([]domain.TicketStatus, 0, len(c.Status))
		for _, s := range c.Status {
			canon, _ := domain.ParseStatus(string(s))
			statuses = append(statuses, canon)
		}
		c.Status = statuses
	}
	if len(c.Priority) > 0 {
		priorities := make([]domain.TicketPriority, 0, len(c.Priority))
		for _, p := range c.Priority {
			canon, _ := domain.ParsePriority(string(p))
			priorities = append(priorities, canon)
		}
		c.Priority = priorities
	}
	return c
}

func matchesSearch(t *domain.Ticket, term string) bool {
	for _, field := range searchFields(t) {
		if field != "" && strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func searchFields(t *domain.Ticket) []string {
	number := ""
	if t.TicketNumber > 0 {
		number = strconv.FormatInt(t.TicketNumber, 10)
	}
	return []string{
		t.Title,
		number,
		t.Description,
		t.CompanyName,
		string(t.CompanyID),
		string(t.ParentCompanyID),
		t.CustomerName,
		t.CustomerEmail,
		t.CustomerPhone,
		t.ContactName,
		t.ContactFirstName,
		t.ContactLastName,
		t.ContactEmail,
		t.ContactPhone,
		t.ContactPosition,
		t.CategoryName,
		t.SubcategoryName,
		t.GroupName,
		t.AssignedUserName,
		t.CreatedByName,
	}
}
