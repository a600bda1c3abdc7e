package repository

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-console/internal/domain"
)

// LogOnly stands in for both collaborators when no database is
// configured. Entries go to the structured log and nowhere else.
type LogOnly struct {
	logger *zap.Logger
}

// NewLogOnly creates the fallback.
func NewLogOnly(logger *zap.Logger) *LogOnly {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogOnly{logger: logger.Named("audit")}
}

// Record logs a status transition.
func (l *LogOnly) Record(_ context.Context, change domain.StatusChange) error {
	l.logger.Info("status changed",
		zap.String("ticket_id", change.TicketID.String()),
		zap.String("old_status", string(change.OldStatus)),
		zap.String("new_status", string(change.NewStatus)),
		zap.String("changed_by", change.ChangedBy.String()))
	return nil
}

// LogStatusChange logs both snapshots of a status transition.
func (l *LogOnly) LogStatusChange(_ context.Context, change domain.StatusChange) error {
	l.logger.Info("status change audited",
		zap.String("ticket_id", change.TicketID.String()),
		zap.String("changed_by", change.ChangedBy.String()),
		zap.Any("before", change.Before),
		zap.Any("after", change.After))
	return nil
}
