package domain

import (
	"slices"
	"strings"
	"time"
)

// FilterCriteria holds the optional constraints of a tab. An empty list or
// a nil pointer is no constraint.
type FilterCriteria struct {
	Status          []TicketStatus   `json:"status,omitempty"`
	Priority        []TicketPriority `json:"priority,omitempty"`
	Category        []ID             `json:"category,omitempty"`
	Subcategory     []ID             `json:"subcategory,omitempty"`
	Group           []ID             `json:"group,omitempty"`
	AssignedTo      []ID             `json:"assigned_to,omitempty"`
	CompanyID       []ID             `json:"company_id,omitempty"`
	ParentCompanyID []ID             `json:"parent_company_id,omitempty"`
	ContactID       []ID             `json:"contact_id,omitempty"`
	SLABreach       *bool            `json:"sla_breach,omitempty"`
	SearchTerm      string           `json:"search_term,omitempty"`
}

// Compact drops falsy entries so that a list holding only empty values
// behaves exactly like an absent list.
func (c FilterCriteria) Compact() FilterCriteria {
	out := c
	out.Status = slices.DeleteFunc(slices.Clone(c.Status), func(s TicketStatus) bool { return s == "" })
	out.Priority = slices.DeleteFunc(slices.Clone(c.Priority), func(p TicketPriority) bool { return p == "" })
	out.Category = compactIDs(c.Category)
	out.Subcategory = compactIDs(c.Subcategory)
	out.Group = compactIDs(c.Group)
	out.AssignedTo = compactIDs(c.AssignedTo)
	out.CompanyID = compactIDs(c.CompanyID)
	out.ParentCompanyID = compactIDs(c.ParentCompanyID)
	out.ContactID = compactIDs(c.ContactID)
	out.SearchTerm = strings.TrimSpace(c.SearchTerm)
	return out
}

// IsEmpty reports criteria that constrain nothing.
func (c FilterCriteria) IsEmpty() bool {
	c = c.Compact()
	return len(c.Status) == 0 && len(c.Priority) == 0 && len(c.Category) == 0 &&
		len(c.Subcategory) == 0 && len(c.Group) == 0 && len(c.AssignedTo) == 0 &&
		len(c.CompanyID) == 0 && len(c.ParentCompanyID) == 0 && len(c.ContactID) == 0 &&
		c.SLABreach == nil && c.SearchTerm == ""
}

func compactIDs(ids []ID) []ID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]ID, 0, len(ids))
	for _, id := range ids {
		if id.IsZero() {
			continue
		}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// DateRange bounds the server-side list query of a tab.
type DateRange struct {
	From time.Time `json:"date1"`
	To   time.Time `json:"date2"`
}

// Equal compares both bounds.
func (r DateRange) Equal(other DateRange) bool {
	return r.From.Equal(other.From) && r.To.Equal(other.To)
}
