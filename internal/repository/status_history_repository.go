package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/helpdesk-console/internal/domain"
)

// DBTX is the part of pgxpool.Pool and pgx.Tx the repositories use.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// StatusRecord is one row of ticket_status_history.
type StatusRecord struct {
	ID        string              `json:"id"`
	TicketID  domain.ID           `json:"ticket_id"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	ChangedBy domain.ID           `json:"changed_by"`
	CreatedAt time.Time           `json:"created_at"`
}

// StatusHistoryRepository stores status transitions.
type StatusHistoryRepository interface {
	Record(ctx context.Context, change domain.StatusChange) error
	ListByTicket(ctx context.Context, ticketID domain.ID) ([]StatusRecord, error)
}

type statusHistoryRepository struct {
	db DBTX
}

// NewStatusHistoryRepository builds repository.
func NewStatusHistoryRepository(db DBTX) StatusHistoryRepository {
	return &statusHistoryRepository{db: db}
}

func (r *statusHistoryRepository) Record(ctx context.Context, change domain.StatusChange) error {
	const query = `
        INSERT INTO ticket_status_history (id, ticket_id, old_status, new_status, changed_by)
        VALUES ($1,$2,$3,$4,$5)`
	_, err := r.db.Exec(ctx, query,
		uuid.NewString(),
		change.TicketID.String(),
		string(change.OldStatus),
		string(change.NewStatus),
		change.ChangedBy.String(),
	)
	return err
}

func (r *statusHistoryRepository) ListByTicket(ctx context.Context, ticketID domain.ID) ([]StatusRecord, error) {
	const query = `
        SELECT id, ticket_id, old_status, new_status, changed_by, created_at
        FROM ticket_status_history WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, ticketID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []StatusRecord
	for rows.Next() {
		var (
			rec                         StatusRecord
			ticket, oldS, newS, changed string
		)
		if err := rows.Scan(&rec.ID, &ticket, &oldS, &newS, &changed, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.TicketID = domain.ID(ticket)
		rec.OldStatus = domain.TicketStatus(oldS)
		rec.NewStatus = domain.TicketStatus(newS)
		rec.ChangedBy = domain.ID(changed)
		result = append(result, rec)
	}
	return result, rows.Err()
}
