package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

// ChangeTypeAudit marks a status change entry with full snapshots.
const ChangeTypeAudit TicketChangeType = "STATUS_AUDIT"

// Snapshot is the classification state recorded on both sides of an
// audited status change.
type Snapshot struct {
	Status        TicketStatus   `json:"status"`
	Priority      TicketPriority `json:"priority"`
	AssignedTo    ID             `json:"assigned_to"`
	CategoryID    ID             `json:"category_id"`
	SubcategoryID ID             `json:"subcategory_id"`
	GroupID       ID             `json:"group_id"`
}

// SnapshotOf captures the audited fields of t.
func SnapshotOf(t Ticket) Snapshot {
	return Snapshot{
		Status:        t.Status,
		Priority:      t.Priority,
		AssignedTo:    t.AssignedTo,
		CategoryID:    t.CategoryID,
		SubcategoryID: t.SubcategoryID,
		GroupID:       t.GroupID,
	}
}

// Values flattens the snapshot for storage.
func (s Snapshot) Values() map[string]any {
	return map[string]any{
		"status":         string(s.Status),
		"priority":       string(s.Priority),
		"assigned_to":    string(s.AssignedTo),
		"category_id":    string(s.CategoryID),
		"subcategory_id": string(s.SubcategoryID),
		"group_id":       string(s.GroupID),
	}
}

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID          string
	TicketID    ID
	ChangedByID ID
	ChangeType  TicketChangeType
	OldValue    map[string]any
	NewValue    map[string]any
	CreatedAt   time.Time
}

// StatusChange is a committed status transition handed to the audit
// collaborators.
type StatusChange struct {
	TicketID  ID
	ChangedBy ID
	OldStatus TicketStatus
	NewStatus TicketStatus
	Before    Snapshot
	After     Snapshot
}

// StatusChangeOf describes the transition from before to after.
func StatusChangeOf(before, after Ticket, changedBy ID) StatusChange {
	return StatusChange{
		TicketID:  after.ID,
		ChangedBy: changedBy,
		OldStatus: before.Status,
		NewStatus: after.Status,
		Before:    SnapshotOf(before),
		After:     SnapshotOf(after),
	}
}

// AuditEntryOf renders a status change as an audit trail entry holding
// both snapshots.
func AuditEntryOf(change StatusChange) TicketHistory {
	return TicketHistory{
		TicketID:    change.TicketID,
		ChangedByID: change.ChangedBy,
		ChangeType:  ChangeTypeAudit,
		OldValue:    change.Before.Values(),
		NewValue:    change.After.Values(),
	}
}
