package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ID is a server-assigned identifier. The backend emits ids both as JSON
// strings and as numbers; both decode to the same ID.
type ID string

// UnmarshalJSON accepts strings, numbers and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// IsZero reports an unset reference. Zero is the backend's "none" value.
func (id ID) IsZero() bool {
	return id == "" || id == "0"
}

func (id ID) String() string {
	return string(id)
}

// Ticket is the aggregate for support requests as seen by the console.
type Ticket struct {
	ID           ID     `json:"id"`
	TicketNumber int64  `json:"ticket_number"`
	Title        string `json:"title"`
	Description  string `json:"description"`

	Status   TicketStatus   `json:"status"`
	Priority TicketPriority `json:"priority"`

	CategoryID      ID     `json:"category_id"`
	CategoryName    string `json:"category_name"`
	SubcategoryID   ID     `json:"subcategory_id"`
	SubcategoryName string `json:"subcategory_name"`
	GroupID         ID     `json:"group_id"`
	GroupName       string `json:"group_name"`

	CompanyID       ID     `json:"company_id"`
	CompanyName     string `json:"company_name"`
	ParentCompanyID ID     `json:"parent_company_id"`

	ContactID        ID     `json:"contact_id"`
	ContactName      string `json:"contact_name"`
	ContactFirstName string `json:"contact_first_name"`
	ContactLastName  string `json:"contact_last_name"`
	ContactEmail     string `json:"contact_email"`
	ContactPhone     string `json:"contact_phone"`
	ContactPosition  string `json:"contact_position"`
	CustomerName     string `json:"customer_name"`
	CustomerEmail    string `json:"customer_email"`
	CustomerPhone    string `json:"customer_phone"`

	AssignedTo       ID     `json:"assigned_to"`
	AssignedUserName string `json:"assigned_user_name"`
	CreatedBy        ID     `json:"created_by"`
	CreatedByName    string `json:"created_by_name"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DueDate   *time.Time `json:"due_date"`
	SLABreach bool       `json:"sla_breach"`

	Tags        []string     `json:"tags"`
	Comments    []Comment    `json:"comments"`
	Attachments []Attachment `json:"attachments"`

	ResolutionNotes string     `json:"resolution_notes"`
	ResolutionTags  []string   `json:"resolution_tags"`
	ResolvedBy      ID         `json:"resolved_by"`
	ResolvedAt      *time.Time `json:"resolved_at"`
}

// Contact is the subset of a contact record denormalized onto a ticket
// when the contact is assigned.
type Contact struct {
	ID        ID
	Name      string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Position  string
}

// SLABreached reports whether the SLA deadline has passed on a ticket that
// is still being worked.
func (t *Ticket) SLABreached(now time.Time) bool {
	if t.Status.IsFinished() {
		return false
	}
	if t.SLABreach {
		return true
	}
	return t.DueDate != nil && t.DueDate.Before(now)
}

// MissingRequired lists the classification fields that must be set before
// a ticket can be saved or resolved.
func (t *Ticket) MissingRequired() []string {
	var missing []string
	if t.CategoryID.IsZero() {
		missing = append(missing, "category_id")
	}
	if t.SubcategoryID.IsZero() {
		missing = append(missing, "subcategory_id")
	}
	if t.CompanyID.IsZero() {
		missing = append(missing, "company_id")
	}
	return missing
}

// HasTag matches tag names case-insensitively.
func (t *Ticket) HasTag(name string) bool {
	return tagIndex(t.Tags, name) >= 0
}

// AddTag appends name unless a tag with the same case-folded name exists.
func (t *Ticket) AddTag(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || t.HasTag(name) {
		return false
	}
	t.Tags = append(t.Tags, name)
	return true
}

// RemoveTag drops the tag matching name case-insensitively.
func (t *Ticket) RemoveTag(name string) bool {
	idx := tagIndex(t.Tags, name)
	if idx < 0 {
		return false
	}
	t.Tags = slices.Delete(slices.Clone(t.Tags), idx, idx+1)
	return true
}

// AssignContact denormalizes the contact onto the ticket.
func (t *Ticket) AssignContact(c Contact) {
	t.ContactID = c.ID
	t.ContactName = c.Name
	t.ContactFirstName = c.FirstName
	t.ContactLastName = c.LastName
	t.ContactEmail = c.Email
	t.ContactPhone = c.Phone
	t.ContactPosition = c.Position
	name := c.Name
	if name == "" {
		name = strings.TrimSpace(c.FirstName + " " + c.LastName)
	}
	t.CustomerName = name
	t.CustomerEmail = c.Email
	t.CustomerPhone = c.Phone
}

// Clone returns a deep copy; callers may mutate it freely.
func (t Ticket) Clone() Ticket {
	out := t
	out.Tags = slices.Clone(t.Tags)
	out.ResolutionTags = slices.Clone(t.ResolutionTags)
	out.Attachments = slices.Clone(t.Attachments)
	if t.Comments != nil {
		out.Comments = make([]Comment, len(t.Comments))
		for i, c := range t.Comments {
			out.Comments[i] = c
			out.Comments[i].Attachments = slices.Clone(c.Attachments)
		}
	}
	out.DueDate = cloneTime(t.DueDate)
	out.ResolvedAt = cloneTime(t.ResolvedAt)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func tagIndex(tags []string, name string) int {
	name = strings.TrimSpace(name)
	for i, tag := range tags {
		if strings.EqualFold(tag, name) {
			return i
		}
	}
	return -1
}
