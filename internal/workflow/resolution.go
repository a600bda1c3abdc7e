// Package workflow drives a single ticket through editing, saving and
// resolution. It keeps a local draft next to the last server-confirmed
// copy and records every committed status change.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-console/internal/backend"
	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/events"
	"github.com/spec-kit/helpdesk-console/internal/observability"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util"
)

// Operation names carried by notifications.
const (
	OpSave       = "save"
	OpResolve    = "resolve"
	OpAddComment = "add_comment"
	OpReload     = "reload"
)

var (
	// ErrResolutionNotStarted is returned when confirm or cancel runs
	// without an open resolution step.
	ErrResolutionNotStarted = errors.New("resolution not started")
	// ErrTerminalStatus is returned for actions a finished ticket no
	// longer accepts.
	ErrTerminalStatus = errors.New("ticket is in a terminal status")
)

// TicketAPI is the slice of the REST client the workflow uses.
type TicketAPI interface {
	GetTicket(ctx context.Context, id domain.ID) (domain.Ticket, error)
	UpdateTicket(ctx context.Context, patch domain.TicketPatch) (domain.Ticket, error)
	ResolveTicket(ctx context.Context, id domain.ID, notes string, tags []string) (domain.Ticket, error)
	AddComment(ctx context.Context, req backend.CommentRequest) (domain.Comment, error)
}

// Cache receives the server's copy after every commit.
type Cache interface {
	ReplaceTicket(ticket domain.Ticket) []string
}

// AuditTrail stores the before and after snapshots of a status change.
type AuditTrail interface {
	LogStatusChange(ctx context.Context, change domain.StatusChange) error
}

// StatusHistory stores the old and new status of a change.
type StatusHistory interface {
	Record(ctx context.Context, change domain.StatusChange) error
}

// Navigator closes the detail tab of a ticket and returns the tab that
// becomes active. from is the status the ticket had before the action
// that closes the tab.
type Navigator interface {
	CloseDetail(ticket domain.Ticket, from domain.TicketStatus) string
}

// Notifier delivers the single notification of each action.
type Notifier interface {
	Notify(ctx context.Context, level events.Level, operation, message string, ticketID domain.ID) events.Notification
	Publish(ctx context.Context, event events.Event)
}

// Deps bundles the collaborators of a Resolution. Only API is required.
type Deps struct {
	API       TicketAPI
	Cache     Cache
	Audit     AuditTrail
	History   StatusHistory
	Navigator Navigator
	Notifier  Notifier
	Logger    *zap.Logger
	// Actor is recorded as the author of status changes.
	Actor domain.ID
}

// Resolution is the detail-view state of one ticket. Its methods are
// serialized; network calls run while the lock is held.
type Resolution struct {
	deps   Deps
	logger *zap.Logger

	mu        sync.Mutex
	committed domain.Ticket
	draft     domain.Ticket
	resolving bool
	closed    bool
}

// New starts a workflow on a server copy of ticket.
func New(ticket domain.Ticket, deps Deps) *Resolution {
	return &Resolution{
		deps:      deps,
		logger:    observability.OrNop(deps.Logger).With(zap.String("ticket_id", ticket.ID.String())),
		committed: ticket.Clone(),
		draft:     ticket.Clone(),
	}
}

// ID returns the ticket id.
func (r *Resolution) ID() domain.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.committed.ID
}

// Committed returns the last server-confirmed copy.
func (r *Resolution) Committed() domain.Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.committed.Clone()
}

// Draft returns the locally edited copy.
func (r *Resolution) Draft() domain.Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draft.Clone()
}

// Dirty reports unsaved edits.
func (r *Resolution) Dirty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dirtyLocked()
}

func (r *Resolution) dirtyLocked() bool {
	return !domain.DiffEditable(r.committed, r.draft).IsEmpty()
}

// Resolving reports whether the confirmation step is open.
func (r *Resolution) Resolving() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolving
}

// Closed reports whether a successful resolve closed the detail tab.
func (r *Resolution) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Save persists the draft. On success the draft is replaced by the
// server's copy and status changes are recorded.
func (r *Resolution) Save(ctx context.Context) (domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.committed.ID
	if len(r.draft.MissingRequired()) == 0 && !r.dirtyLocked() && !r.committed.Status.IsTerminal() {
		r.notify(ctx, events.LevelSuccess, OpSave, "no changes to save", id)
		return r.committed.Clone(), nil
	}

	saved, auditErr, err := r.saveLocked(ctx, OpSave)
	if err != nil {
		r.notify(ctx, events.LevelError, OpSave, failureMessage(OpSave, err), id)
		return domain.Ticket{}, err
	}
	if auditErr != nil {
		r.notify(ctx, events.LevelWarning, OpSave, "ticket saved, but the status change could not be recorded", id)
	} else {
		r.notify(ctx, events.LevelSuccess, OpSave, "ticket saved", id)
	}
	return saved, nil
}

// saveLocked validates and sends the pending edits. It never notifies;
// the caller owns the single notification of its action.
func (r *Resolution) saveLocked(ctx context.Context, op string) (saved domain.Ticket, auditErr error, err error) {
	if r.committed.Status.IsTerminal() {
		return domain.Ticket{}, nil, terminalError(r.committed.Status)
	}
	missing := r.draft.MissingRequired()
	if r.draft.Status == domain.StatusResolved && r.committed.Status != domain.StatusResolved &&
		strings.TrimSpace(r.draft.ResolutionNotes) == "" {
		missing = append(missing, "resolution_notes")
	}
	if len(missing) > 0 {
		return domain.Ticket{}, nil, apperrors.NewMissingFieldsError(op, missing)
	}

	patch := domain.DiffEditable(r.committed, r.draft)
	if patch.IsEmpty() {
		return r.committed.Clone(), nil, nil
	}
	if r.draft.Status == domain.StatusResolved && patch.Status != nil {
		notes := r.draft.ResolutionNotes
		patch.ResolutionNotes = &notes
	}

	updated, err := r.deps.API.UpdateTicket(ctx, patch)
	if err != nil {
		r.logger.Warn("update failed", zap.String("operation", op), zap.Error(err))
		return domain.Ticket{}, nil, err
	}
	before := r.commitLocked(updated)
	return updated.Clone(), r.recordStatusChange(ctx, before, updated), nil
}

// commitLocked adopts the server copy and returns the previous one.
func (r *Resolution) commitLocked(server domain.Ticket) domain.Ticket {
	before := r.committed
	r.committed = server.Clone()
	r.draft = server.Clone()
	if r.deps.Cache != nil {
		r.deps.Cache.ReplaceTicket(server)
	}
	return before
}

// BeginResolve opens the confirmation step once the required fields are
// set.
func (r *Resolution) BeginResolve(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.committed.ID
	if r.committed.Status.IsFinished() {
		err := terminalError(r.committed.Status)
		r.notify(ctx, events.LevelError, OpResolve, failureMessage(OpResolve, err), id)
		return err
	}
	if missing := r.draft.MissingRequired(); len(missing) > 0 {
		err := apperrors.NewMissingFieldsError(OpResolve, missing)
		r.notify(ctx, events.LevelError, OpResolve, failureMessage(OpResolve, err), id)
		return err
	}
	r.resolving = true
	return nil
}

// CancelResolve closes the confirmation step without side effects.
func (r *Resolution) CancelResolve() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.resolving {
		return notStartedError()
	}
	r.resolving = false
	return nil
}

// ConfirmResolve resolves the ticket with notes and tags. Pending edits
// are saved first and resolution stops if that save fails. On success the
// detail tab is closed.
func (r *Resolution) ConfirmResolve(ctx context.Context, notes string, tags []string) (domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.committed.ID
	fail := func(err error) (domain.Ticket, error) {
		r.notify(ctx, events.LevelError, OpResolve, failureMessage(OpResolve, err), id)
		return domain.Ticket{}, err
	}

	if !r.resolving {
		return fail(notStartedError())
	}
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return fail(apperrors.NewMissingFieldsError(OpResolve, []string{"resolution_notes"}))
	}
	if missing := r.draft.MissingRequired(); len(missing) > 0 {
		return fail(apperrors.NewMissingFieldsError(OpResolve, missing))
	}

	// The resolve call sets the status itself, so a draft already marked
	// resolved is saved with its committed status.
	prior := r.committed.Status
	wanted := r.draft.Status
	if wanted == domain.StatusResolved {
		r.draft.Status = prior
	}

	var auditErrs []error
	if r.dirtyLocked() {
		_, auditErr, err := r.saveLocked(ctx, OpResolve)
		if err != nil {
			r.draft.Status = wanted
			return fail(fmt.Errorf("save before resolve: %w", err))
		}
		auditErrs = append(auditErrs, auditErr)
	}

	resolved, err := r.deps.API.ResolveTicket(ctx, id, notes, cleanTags(tags))
	if err != nil {
		r.logger.Warn("resolve failed", zap.Error(err))
		r.draft.Status = wanted
		return fail(err)
	}
	before := r.commitLocked(resolved)
	r.resolving = false
	auditErrs = append(auditErrs, r.recordStatusChange(ctx, before, resolved))

	if r.deps.Navigator != nil {
		next := r.deps.Navigator.CloseDetail(resolved, prior)
		r.logger.Debug("detail tab closed", zap.String("tab", next))
	}
	r.closed = true

	if errors.Join(auditErrs...) != nil {
		r.notify(ctx, events.LevelWarning, OpResolve, "ticket resolved, but the status change could not be recorded", id)
	} else {
		r.notify(ctx, events.LevelSuccess, OpResolve, "ticket resolved", id)
	}
	return resolved.Clone(), nil
}

// AddComment posts a comment and appends it to both copies.
func (r *Resolution) AddComment(ctx context.Context, content string, internal bool, attachments []domain.Attachment) (domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.committed.ID
	content = strings.TrimSpace(content)
	if content == "" {
		err := apperrors.NewMissingFieldsError(OpAddComment, []string{"content"})
		r.notify(ctx, events.LevelError, OpAddComment, failureMessage(OpAddComment, err), id)
		return domain.Comment{}, err
	}

	comment, err := r.deps.API.AddComment(ctx, backend.CommentRequest{
		TicketID:    id,
		Content:     content,
		IsInternal:  internal,
		Attachments: attachments,
	})
	if err != nil {
		r.notify(ctx, events.LevelError, OpAddComment, failureMessage(OpAddComment, err), id)
		return domain.Comment{}, err
	}
	r.committed.Comments = append(r.committed.Comments, comment)
	r.draft.Comments = append(r.draft.Comments, comment)
	if r.deps.Cache != nil {
		r.deps.Cache.ReplaceTicket(r.committed)
	}
	r.notify(ctx, events.LevelSuccess, OpAddComment, "comment added", id)
	return comment, nil
}

// Reload re-reads the ticket. The draft follows only when it has no
// unsaved edits.
func (r *Resolution) Reload(ctx context.Context) (domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.committed.ID
	fresh, err := r.deps.API.GetTicket(ctx, id)
	if err != nil {
		r.notify(ctx, events.LevelError, OpReload, failureMessage(OpReload, err), id)
		return domain.Ticket{}, err
	}
	dirty := r.dirtyLocked()
	r.committed = fresh.Clone()
	if !dirty {
		r.draft = fresh.Clone()
	}
	if r.deps.Cache != nil {
		r.deps.Cache.ReplaceTicket(fresh)
	}
	r.notify(ctx, events.LevelSuccess, OpReload, "ticket reloaded", id)
	return fresh.Clone(), nil
}

// recordStatusChange writes history and audit entries for a committed
// transition. Failures are logged and returned joined; they never undo
// the commit.
func (r *Resolution) recordStatusChange(ctx context.Context, before, after domain.Ticket) error {
	if before.Status == after.Status {
		return nil
	}
	ctx = context.WithoutCancel(ctx)
	change := domain.StatusChangeOf(before, after, r.deps.Actor)

	var errs []error
	if r.deps.History != nil {
		if err := r.deps.History.Record(ctx, change); err != nil {
			r.logger.Error("status history write failed", zap.Error(err))
			errs = append(errs, fmt.Errorf("status history: %w", err))
		}
	}
	if r.deps.Audit != nil {
		if err := r.deps.Audit.LogStatusChange(ctx, change); err != nil {
			r.logger.Error("audit write failed", zap.Error(err))
			errs = append(errs, fmt.Errorf("audit trail: %w", err))
		}
	}
	if r.deps.Notifier != nil {
		r.deps.Notifier.Publish(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: after.ID,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: before.Status,
				NewStatus: after.Status,
				ChangedBy: r.deps.Actor,
			},
		})
	}
	return errors.Join(errs...)
}

func (r *Resolution) notify(ctx context.Context, level events.Level, op, message string, id domain.ID) {
	if r.deps.Notifier == nil {
		return
	}
	r.deps.Notifier.Notify(ctx, level, op, message, id)
}

func terminalError(status domain.TicketStatus) error {
	return &apperrors.DomainError{
		Code:       apperrors.CodeConflict,
		Message:    fmt.Sprintf("ticket is %s", status),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"status": string(status)},
		Err:        ErrTerminalStatus,
	}
}

func notStartedError() error {
	return &apperrors.DomainError{
		Code:       apperrors.CodeConflict,
		Message:    "resolution step is not open",
		HTTPStatus: http.StatusConflict,
		Err:        ErrResolutionNotStarted,
	}
}

func failureMessage(op string, err error) string {
	return strings.ReplaceAll(op, "_", " ") + " failed: " + apperrors.ToDomainError(err).Message
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	var seen domain.Ticket
	for _, tag := range tags {
		if seen.AddTag(tag) {
			out = append(out, strings.TrimSpace(tag))
		}
	}
	return out
}
