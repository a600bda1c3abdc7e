package domain

import (
	"slices"
	"time"
)

// TicketPatch is a partial ticket. A nil field was absent from the payload
// and leaves the stored value untouched when the patch is applied.
type TicketPatch struct {
	ID           ID      `json:"id"`
	TicketNumber *int64  `json:"ticket_number"`
	Title        *string `json:"title"`
	Description  *string `json:"description"`

	Status   *TicketStatus   `json:"status"`
	Priority *TicketPriority `json:"priority"`

	CategoryID      *ID     `json:"category_id"`
	CategoryName    *string `json:"category_name"`
	SubcategoryID   *ID     `json:"subcategory_id"`
	SubcategoryName *string `json:"subcategory_name"`
	GroupID         *ID     `json:"group_id"`
	GroupName       *string `json:"group_name"`

	CompanyID       *ID     `json:"company_id"`
	CompanyName     *string `json:"company_name"`
	ParentCompanyID *ID     `json:"parent_company_id"`

	ContactID        *ID     `json:"contact_id"`
	ContactName      *string `json:"contact_name"`
	ContactFirstName *string `json:"contact_first_name"`
	ContactLastName  *string `json:"contact_last_name"`
	ContactEmail     *string `json:"contact_email"`
	ContactPhone     *string `json:"contact_phone"`
	ContactPosition  *string `json:"contact_position"`
	CustomerName     *string `json:"customer_name"`
	CustomerEmail    *string `json:"customer_email"`
	CustomerPhone    *string `json:"customer_phone"`

	AssignedTo       *ID     `json:"assigned_to"`
	AssignedUserName *string `json:"assigned_user_name"`
	CreatedBy        *ID     `json:"created_by"`
	CreatedByName    *string `json:"created_by_name"`

	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
	DueDate   *time.Time `json:"due_date"`
	SLABreach *bool      `json:"sla_breach"`
	// ClearDueDate removes the due date. It is sent as an explicit null.
	ClearDueDate bool `json:"-"`

	Tags        []string     `json:"tags"`
	Comments    []Comment    `json:"comments"`
	Attachments []Attachment `json:"attachments"`

	ResolutionNotes *string    `json:"resolution_notes"`
	ResolutionTags  []string   `json:"resolution_tags"`
	ResolvedBy      *ID        `json:"resolved_by"`
	ResolvedAt      *time.Time `json:"resolved_at"`
}

// Apply merges the present fields of p into t. created_at is immutable
// once set and ticket_number never moves backwards.
func (p TicketPatch) Apply(t *Ticket) {
	if p.TicketNumber != nil && *p.TicketNumber > t.TicketNumber {
		t.TicketNumber = *p.TicketNumber
	}
	setString(&t.Title, p.Title)
	setString(&t.Description, p.Description)
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}

	setID(&t.CategoryID, p.CategoryID)
	setString(&t.CategoryName, p.CategoryName)
	setID(&t.SubcategoryID, p.SubcategoryID)
	setString(&t.SubcategoryName, p.SubcategoryName)
	setID(&t.GroupID, p.GroupID)
	setString(&t.GroupName, p.GroupName)

	setID(&t.CompanyID, p.CompanyID)
	setString(&t.CompanyName, p.CompanyName)
	setID(&t.ParentCompanyID, p.ParentCompanyID)

	setID(&t.ContactID, p.ContactID)
	setString(&t.ContactName, p.ContactName)
	setString(&t.ContactFirstName, p.ContactFirstName)
	setString(&t.ContactLastName, p.ContactLastName)
	setString(&t.ContactEmail, p.ContactEmail)
	setString(&t.ContactPhone, p.ContactPhone)
	setString(&t.ContactPosition, p.ContactPosition)
	setString(&t.CustomerName, p.CustomerName)
	setString(&t.CustomerEmail, p.CustomerEmail)
	setString(&t.CustomerPhone, p.CustomerPhone)

	setID(&t.AssignedTo, p.AssignedTo)
	setString(&t.AssignedUserName, p.AssignedUserName)
	setID(&t.CreatedBy, p.CreatedBy)
	setString(&t.CreatedByName, p.CreatedByName)

	if p.CreatedAt != nil && t.CreatedAt.IsZero() {
		t.CreatedAt = *p.CreatedAt
	}
	if p.UpdatedAt != nil {
		t.UpdatedAt = *p.UpdatedAt
	}
	if p.DueDate != nil {
		t.DueDate = cloneTime(p.DueDate)
	} else if p.ClearDueDate {
		t.DueDate = nil
	}
	if p.SLABreach != nil {
		t.SLABreach = *p.SLABreach
	}

	if p.Tags != nil {
		t.Tags = slices.Clone(p.Tags)
	}
	if p.Comments != nil {
		t.Comments = Ticket{Comments: p.Comments}.Clone().Comments
	}
	if p.Attachments != nil {
		t.Attachments = slices.Clone(p.Attachments)
	}

	setString(&t.ResolutionNotes, p.ResolutionNotes)
	if p.ResolutionTags != nil {
		t.ResolutionTags = slices.Clone(p.ResolutionTags)
	}
	setID(&t.ResolvedBy, p.ResolvedBy)
	if p.ResolvedAt != nil {
		t.ResolvedAt = cloneTime(p.ResolvedAt)
	}
}

// PatchOf returns a patch carrying every field of t.
func PatchOf(t Ticket) TicketPatch {
	t = t.Clone()
	return TicketPatch{
		ID:               t.ID,
		TicketNumber:     &t.TicketNumber,
		Title:            &t.Title,
		Description:      &t.Description,
		Status:           &t.Status,
		Priority:         &t.Priority,
		CategoryID:       &t.CategoryID,
		CategoryName:     &t.CategoryName,
		SubcategoryID:    &t.SubcategoryID,
		SubcategoryName:  &t.SubcategoryName,
		GroupID:          &t.GroupID,
		GroupName:        &t.GroupName,
		CompanyID:        &t.CompanyID,
		CompanyName:      &t.CompanyName,
		ParentCompanyID:  &t.ParentCompanyID,
		ContactID:        &t.ContactID,
		ContactName:      &t.ContactName,
		ContactFirstName: &t.ContactFirstName,
		ContactLastName:  &t.ContactLastName,
		ContactEmail:     &t.ContactEmail,
		ContactPhone:     &t.ContactPhone,
		ContactPosition:  &t.ContactPosition,
		CustomerName:     &t.CustomerName,
		CustomerEmail:    &t.CustomerEmail,
		CustomerPhone:    &t.CustomerPhone,
		AssignedTo:       &t.AssignedTo,
		AssignedUserName: &t.AssignedUserName,
		CreatedBy:        &t.CreatedBy,
		CreatedByName:    &t.CreatedByName,
		CreatedAt:        &t.CreatedAt,
		UpdatedAt:        &t.UpdatedAt,
		DueDate:          t.DueDate,
		SLABreach:        &t.SLABreach,
		Tags:             nonNil(t.Tags),
		Comments:         t.Comments,
		Attachments:      t.Attachments,
		ResolutionNotes:  &t.ResolutionNotes,
		ResolutionTags:   nonNil(t.ResolutionTags),
		ResolvedBy:       &t.ResolvedBy,
		ResolvedAt:       t.ResolvedAt,
	}
}

// Ticket materializes a patch as a new ticket.
func (p TicketPatch) Ticket() Ticket {
	t := Ticket{ID: p.ID}
	p.Apply(&t)
	return t
}

// DiffEditable returns the user-editable fields of draft that differ from
// base. Server-computed fields are never part of the result.
func DiffEditable(base, draft Ticket) TicketPatch {
	p := TicketPatch{ID: base.ID}
	p.Title = diffString(base.Title, draft.Title)
	p.Description = diffString(base.Description, draft.Description)
	if base.Status != draft.Status {
		p.Status = &draft.Status
	}
	if base.Priority != draft.Priority {
		p.Priority = &draft.Priority
	}
	p.CategoryID = diffID(base.CategoryID, draft.CategoryID)
	p.CategoryName = diffString(base.CategoryName, draft.CategoryName)
	p.SubcategoryID = diffID(base.SubcategoryID, draft.SubcategoryID)
	p.SubcategoryName = diffString(base.SubcategoryName, draft.SubcategoryName)
	p.GroupID = diffID(base.GroupID, draft.GroupID)
	p.GroupName = diffString(base.GroupName, draft.GroupName)
	p.CompanyID = diffID(base.CompanyID, draft.CompanyID)
	p.CompanyName = diffString(base.CompanyName, draft.CompanyName)
	p.ParentCompanyID = diffID(base.ParentCompanyID, draft.ParentCompanyID)
	p.ContactID = diffID(base.ContactID, draft.ContactID)
	p.ContactName = diffString(base.ContactName, draft.ContactName)
	p.ContactFirstName = diffString(base.ContactFirstName, draft.ContactFirstName)
	p.ContactLastName = diffString(base.ContactLastName, draft.ContactLastName)
	p.ContactEmail = diffString(base.ContactEmail, draft.ContactEmail)
	p.ContactPhone = diffString(base.ContactPhone, draft.ContactPhone)
	p.ContactPosition = diffString(base.ContactPosition, draft.ContactPosition)
	p.CustomerName = diffString(base.CustomerName, draft.CustomerName)
	p.CustomerEmail = diffString(base.CustomerEmail, draft.CustomerEmail)
	p.CustomerPhone = diffString(base.CustomerPhone, draft.CustomerPhone)
	p.AssignedTo = diffID(base.AssignedTo, draft.AssignedTo)
	p.AssignedUserName = diffString(base.AssignedUserName, draft.AssignedUserName)
	if !sameTime(base.DueDate, draft.DueDate) {
		p.DueDate = cloneTime(draft.DueDate)
		p.ClearDueDate = draft.DueDate == nil
	}
	if !slices.Equal(base.Tags, draft.Tags) {
		p.Tags = nonNil(slices.Clone(draft.Tags))
	}
	return p
}

// Editable drops the server-computed fields, leaving what an agent may
// change in a draft.
func (p TicketPatch) Editable() TicketPatch {
	p.TicketNumber = nil
	p.CreatedBy = nil
	p.CreatedByName = nil
	p.CreatedAt = nil
	p.UpdatedAt = nil
	p.SLABreach = nil
	p.Comments = nil
	p.Attachments = nil
	p.ResolutionTags = nil
	p.ResolvedBy = nil
	p.ResolvedAt = nil
	return p
}

// IsEmpty reports a patch that carries nothing but the id.
func (p TicketPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Fields lists the present fields keyed by their canonical wire name.
// Unlike JSON encoding with omitempty, present-but-empty values such as
// an emptied tag list are kept.
func (p TicketPatch) Fields() map[string]any {
	out := map[string]any{}
	put := func(key string, present bool, v any) {
		if present {
			out[key] = v
		}
	}
	put("ticket_number", p.TicketNumber != nil, deref(p.TicketNumber))
	put("title", p.Title != nil, deref(p.Title))
	put("description", p.Description != nil, deref(p.Description))
	put("status", p.Status != nil, deref(p.Status))
	put("priority", p.Priority != nil, deref(p.Priority))
	put("category_id", p.CategoryID != nil, deref(p.CategoryID))
	put("category_name", p.CategoryName != nil, deref(p.CategoryName))
	put("subcategory_id", p.SubcategoryID != nil, deref(p.SubcategoryID))
	put("subcategory_name", p.SubcategoryName != nil, deref(p.SubcategoryName))
	put("group_id", p.GroupID != nil, deref(p.GroupID))
	put("group_name", p.GroupName != nil, deref(p.GroupName))
	put("company_id", p.CompanyID != nil, deref(p.CompanyID))
	put("company_name", p.CompanyName != nil, deref(p.CompanyName))
	put("parent_company_id", p.ParentCompanyID != nil, deref(p.ParentCompanyID))
	put("contact_id", p.ContactID != nil, deref(p.ContactID))
	put("contact_name", p.ContactName != nil, deref(p.ContactName))
	put("contact_first_name", p.ContactFirstName != nil, deref(p.ContactFirstName))
	put("contact_last_name", p.ContactLastName != nil, deref(p.ContactLastName))
	put("contact_email", p.ContactEmail != nil, deref(p.ContactEmail))
	put("contact_phone", p.ContactPhone != nil, deref(p.ContactPhone))
	put("contact_position", p.ContactPosition != nil, deref(p.ContactPosition))
	put("customer_name", p.CustomerName != nil, deref(p.CustomerName))
	put("customer_email", p.CustomerEmail != nil, deref(p.CustomerEmail))
	put("customer_phone", p.CustomerPhone != nil, deref(p.CustomerPhone))
	put("assigned_to", p.AssignedTo != nil, deref(p.AssignedTo))
	put("assigned_user_name", p.AssignedUserName != nil, deref(p.AssignedUserName))
	put("created_by", p.CreatedBy != nil, deref(p.CreatedBy))
	put("created_by_name", p.CreatedByName != nil, deref(p.CreatedByName))
	put("created_at", p.CreatedAt != nil, deref(p.CreatedAt))
	put("updated_at", p.UpdatedAt != nil, deref(p.UpdatedAt))
	if p.DueDate != nil {
		out["due_date"] = *p.DueDate
	} else if p.ClearDueDate {
		out["due_date"] = nil
	}
	put("sla_breach", p.SLABreach != nil, deref(p.SLABreach))
	put("tags", p.Tags != nil, p.Tags)
	put("comments", p.Comments != nil, p.Comments)
	put("attachments", p.Attachments != nil, p.Attachments)
	put("resolution_notes", p.ResolutionNotes != nil, deref(p.ResolutionNotes))
	put("resolution_tags", p.ResolutionTags != nil, p.ResolutionTags)
	put("resolved_by", p.ResolvedBy != nil, deref(p.ResolvedBy))
	put("resolved_at", p.ResolvedAt != nil, deref(p.ResolvedAt))
	return out
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setID(dst *ID, src *ID) {
	if src != nil {
		*dst = *src
	}
}

func diffString(base, draft string) *string {
	if base == draft {
		return nil
	}
	return &draft
}

func diffID(base, draft ID) *ID {
	if base == draft {
		return nil
	}
	return &draft
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
