package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-console/internal/domain"
)

// AuditRepository stores before and after snapshots of status changes.
type AuditRepository interface {
	LogStatusChange(ctx context.Context, change domain.StatusChange) error
	ListByTicket(ctx context.Context, ticketID domain.ID) ([]domain.TicketHistory, error)
}

type auditRepository struct {
	db DBTX
}

// NewAuditRepository builds repository.
func NewAuditRepository(db DBTX) AuditRepository {
	return &auditRepository{db: db}
}

// LogStatusChange writes one ticket_audit_log row. old_value and
// new_value hold the snapshots with the status on each side.
func (r *auditRepository) LogStatusChange(ctx context.Context, change domain.StatusChange) error {
	const query = `
        INSERT INTO ticket_audit_log (id, ticket_id, changed_by, change_type, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5,$6)`
	entry := domain.AuditEntryOf(change)
	_, err := r.db.Exec(ctx, query,
		uuid.NewString(),
		entry.TicketID.String(),
		entry.ChangedByID.String(),
		string(entry.ChangeType),
		entry.OldValue,
		entry.NewValue,
	)
	return err
}

func (r *auditRepository) ListByTicket(ctx context.Context, ticketID domain.ID) ([]domain.TicketHistory, error) {
	const query = `
        SELECT id, ticket_id, changed_by, change_type, old_value, new_value, created_at
        FROM ticket_audit_log WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, ticketID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketHistory
	for rows.Next() {
		var (
			history             domain.TicketHistory
			ticket, by, changeT string
		)
		if err := rows.Scan(
			&history.ID,
			&ticket,
			&by,
			&changeT,
			&history.OldValue,
			&history.NewValue,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		history.TicketID = domain.ID(ticket)
		history.ChangedByID = domain.ID(by)
		history.ChangeType = domain.TicketChangeType(changeT)
		result = append(result, history)
	}
	return result, rows.Err()
}
