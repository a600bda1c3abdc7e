package workflow

import (
	"time"

	"github.com/spec-kit/helpdesk-console/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util"
)

// Draft edits are local. Nothing is sent until Save or ConfirmResolve.

// SetStatus changes the draft status. Aliases such as "waiting" are
// accepted.
func (r *Resolution) SetStatus(raw string) error {
	status, ok := domain.ParseStatus(raw)
	if !ok {
		return apperrors.NewValidationError("unknown status", map[string]any{"status": raw})
	}
	r.edit(func(t *domain.Ticket) { t.Status = status })
	return nil
}

// SetPriority changes the draft priority.
func (r *Resolution) SetPriority(raw string) error {
	priority, ok := domain.ParsePriority(raw)
	if !ok {
		return apperrors.NewValidationError("unknown priority", map[string]any{"priority": raw})
	}
	r.edit(func(t *domain.Ticket) { t.Priority = priority })
	return nil
}

// Assign sets the assignee. An empty id unassigns.
func (r *Resolution) Assign(userID domain.ID, name string) {
	r.edit(func(t *domain.Ticket) {
		t.AssignedTo = userID
		t.AssignedUserName = name
	})
}

// SetCategory changes the category and clears a subcategory that
// belonged to the previous one.
func (r *Resolution) SetCategory(id domain.ID, name string) {
	r.edit(func(t *domain.Ticket) {
		if t.CategoryID != id {
			t.SubcategoryID = ""
			t.SubcategoryName = ""
		}
		t.CategoryID = id
		t.CategoryName = name
	})
}

// SetSubcategory changes the subcategory.
func (r *Resolution) SetSubcategory(id domain.ID, name string) {
	r.edit(func(t *domain.Ticket) {
		t.SubcategoryID = id
		t.SubcategoryName = name
	})
}

// SetGroup changes the support group.
func (r *Resolution) SetGroup(id domain.ID, name string) {
	r.edit(func(t *domain.Ticket) {
		t.GroupID = id
		t.GroupName = name
	})
}

// SetCompany changes the customer company. The contact is dropped when
// the company changes.
func (r *Resolution) SetCompany(id domain.ID, name string, parent domain.ID) {
	r.edit(func(t *domain.Ticket) {
		if t.CompanyID != id {
			t.AssignContact(domain.Contact{})
		}
		t.CompanyID = id
		t.CompanyName = name
		t.ParentCompanyID = parent
	})
}

// SetContact assigns a contact and copies its details onto the ticket.
func (r *Resolution) SetContact(c domain.Contact) {
	r.edit(func(t *domain.Ticket) { t.AssignContact(c) })
}

// SetDueDate changes the SLA due date. A zero time removes it.
func (r *Resolution) SetDueDate(due time.Time) {
	r.edit(func(t *domain.Ticket) {
		if due.IsZero() {
			t.DueDate = nil
			return
		}
		t.DueDate = &due
	})
}

// AddTag adds a tag to the draft. It reports false for blanks and
// duplicates.
func (r *Resolution) AddTag(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draft.AddTag(name)
}

// RemoveTag removes a tag from the draft.
func (r *Resolution) RemoveTag(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draft.RemoveTag(name)
}

// ApplyDraft merges a partial edit into the draft. Changing the category
// without naming a subcategory clears the subcategory.
func (r *Resolution) ApplyDraft(patch domain.TicketPatch) error {
	if patch.Status != nil && !patch.Status.Valid() {
		return apperrors.NewValidationError("unknown status", map[string]any{"status": string(*patch.Status)})
	}
	if patch.Priority != nil {
		if _, ok := domain.ParsePriority(string(*patch.Priority)); !ok {
			return apperrors.NewValidationError("unknown priority", map[string]any{"priority": string(*patch.Priority)})
		}
	}
	patch = patch.Editable()
	r.edit(func(t *domain.Ticket) {
		if patch.CategoryID != nil && *patch.CategoryID != t.CategoryID && patch.SubcategoryID == nil {
			t.SubcategoryID = ""
			t.SubcategoryName = ""
		}
		patch.Apply(t)
	})
	return nil
}

func (r *Resolution) edit(fn func(*domain.Ticket)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.draft)
}
