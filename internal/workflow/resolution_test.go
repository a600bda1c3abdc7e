package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-console/internal/backend"
	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/events"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) GetTicket(ctx context.Context, id domain.ID) (domain.Ticket, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Ticket), args.Error(1)
}

func (m *mockAPI) UpdateTicket(ctx context.Context, patch domain.TicketPatch) (domain.Ticket, error) {
	args := m.Called(ctx, patch)
	return args.Get(0).(domain.Ticket), args.Error(1)
}

func (m *mockAPI) ResolveTicket(ctx context.Context, id domain.ID, notes string, tags []string) (domain.Ticket, error) {
	args := m.Called(ctx, id, notes, tags)
	return args.Get(0).(domain.Ticket), args.Error(1)
}

func (m *mockAPI) AddComment(ctx context.Context, req backend.CommentRequest) (domain.Comment, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.Comment), args.Error(1)
}

type recorder struct {
	changes []domain.StatusChange
	err     error
}

func (r *recorder) Record(_ context.Context, c domain.StatusChange) error {
	r.changes = append(r.changes, c)
	return r.err
}

func (r *recorder) LogStatusChange(_ context.Context, c domain.StatusChange) error {
	r.changes = append(r.changes, c)
	return r.err
}

type notes struct {
	sent      []events.Notification
	published []events.Event
}

func (n *notes) Notify(_ context.Context, level events.Level, op, message string, id domain.ID) events.Notification {
	note := events.Notification{Level: level, Operation: op, Message: message, TicketID: id}
	n.sent = append(n.sent, note)
	return note
}

func (n *notes) Publish(_ context.Context, e events.Event) {
	n.published = append(n.published, e)
}

type navigator struct {
	closed []domain.Ticket
	from   []domain.TicketStatus
}

func (n *navigator) CloseDetail(t domain.Ticket, from domain.TicketStatus) string {
	n.closed = append(n.closed, t)
	n.from = append(n.from, from)
	return "next"
}

type replaced struct {
	tickets []domain.Ticket
}

func (r *replaced) ReplaceTicket(t domain.Ticket) []string {
	r.tickets = append(r.tickets, t)
	return []string{"all"}
}

type harness struct {
	api     *mockAPI
	history *recorder
	audit   *recorder
	notes   *notes
	nav     *navigator
	cache   *replaced
	flow    *Resolution
}

func newHarness(t domain.Ticket) *harness {
	h := &harness{
		api:     &mockAPI{},
		history: &recorder{},
		audit:   &recorder{},
		notes:   &notes{},
		nav:     &navigator{},
		cache:   &replaced{},
	}
	h.flow = New(t, Deps{
		API:       h.api,
		Cache:     h.cache,
		Audit:     h.audit,
		History:   h.history,
		Navigator: h.nav,
		Notifier:  h.notes,
		Actor:     "agent-1",
	})
	return h
}

func complete(t domain.Ticket) domain.Ticket {
	t.CategoryID, t.SubcategoryID, t.CompanyID = "1", "2", "3"
	return t
}

func TestBeginResolveWithoutSubcategoryMakesNoCalls(t *testing.T) {
	h := newHarness(domain.Ticket{ID: "T1", Status: domain.StatusOpen, CategoryID: "1", CompanyID: "3"})

	err := h.flow.BeginResolve(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, []string{"subcategory_id"}, apperrors.ToDomainError(err).Details["missing_fields"])
	assert.False(t, h.flow.Resolving())
	h.api.AssertNotCalled(t, "UpdateTicket", mock.Anything, mock.Anything)
	h.api.AssertNotCalled(t, "ResolveTicket", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	require.Len(t, h.notes.sent, 1)
	assert.Equal(t, events.LevelError, h.notes.sent[0].Level)
}

func TestConfirmResolveRequiresNotes(t *testing.T) {
	h := newHarness(complete(domain.Ticket{ID: "T1", Status: domain.StatusOpen}))
	require.NoError(t, h.flow.BeginResolve(context.Background()))

	_, err := h.flow.ConfirmResolve(context.Background(), "   ", nil)

	assert.True(t, apperrors.IsValidation(err))
	assert.True(t, h.flow.Resolving(), "confirmation stays open")
	assert.Empty(t, h.api.Calls)
	require.Len(t, h.notes.sent, 1)
}

func TestConfirmWithoutBegin(t *testing.T) {
	h := newHarness(complete(domain.Ticket{ID: "T1", Status: domain.StatusOpen}))

	_, err := h.flow.ConfirmResolve(context.Background(), "notes", nil)

	assert.ErrorIs(t, err, ErrResolutionNotStarted)
	assert.ErrorIs(t, h.flow.CancelResolve(), ErrResolutionNotStarted)
	assert.Empty(t, h.api.Calls)
}

func TestResolveEndToEnd(t *testing.T) {
	ticket := domain.Ticket{ID: "T1", TicketNumber: 7, Title: "Printer", Status: domain.StatusOpen}
	h := newHarness(ticket)

	h.flow.SetCategory("1", "Hardware")
	h.flow.SetSubcategory("2", "Printer")
	h.flow.SetCompany("3", "Acme", "")
	require.True(t, h.flow.Dirty())

	saved := complete(ticket)
	saved.CategoryName, saved.SubcategoryName, saved.CompanyName = "Hardware", "Printer", "Acme"
	h.api.On("UpdateTicket", mock.Anything, mock.MatchedBy(func(p domain.TicketPatch) bool {
		return p.ID == "T1" && p.Status == nil && *p.SubcategoryID == "2"
	})).Return(saved, nil).Once()

	resolved := saved
	resolved.Status = domain.StatusResolved
	resolved.ResolutionNotes = "Fixed via reboot"
	h.api.On("ResolveTicket", mock.Anything, domain.ID("T1"), "Fixed via reboot", []string{"reboot"}).Return(resolved, nil).Once()

	require.NoError(t, h.flow.BeginResolve(context.Background()))
	got, err := h.flow.ConfirmResolve(context.Background(), " Fixed via reboot ", []string{"reboot", "REBOOT", ""})
	require.NoError(t, err)

	h.api.AssertExpectations(t)
	assert.Equal(t, domain.StatusResolved, got.Status)
	assert.Equal(t, domain.StatusResolved, h.flow.Draft().Status)
	assert.False(t, h.flow.Dirty())
	assert.True(t, h.flow.Closed())

	require.Len(t, h.history.changes, 1)
	assert.Equal(t, domain.StatusOpen, h.history.changes[0].OldStatus)
	assert.Equal(t, domain.StatusResolved, h.history.changes[0].NewStatus)
	assert.Equal(t, domain.ID("agent-1"), h.history.changes[0].ChangedBy)
	require.Len(t, h.audit.changes, 1)
	assert.Equal(t, domain.ID("2"), h.audit.changes[0].After.SubcategoryID)

	require.Len(t, h.nav.closed, 1)
	assert.Equal(t, []domain.TicketStatus{domain.StatusOpen}, h.nav.from)
	assert.Len(t, h.cache.tickets, 2)

	require.Len(t, h.notes.sent, 1, "internal save is silent")
	assert.Equal(t, events.LevelSuccess, h.notes.sent[0].Level)
	assert.Equal(t, OpResolve, h.notes.sent[0].Operation)
}

func TestResolveWithDraftAlreadyMarkedResolved(t *testing.T) {
	ticket := complete(domain.Ticket{ID: "P1", Status: domain.StatusPending, Priority: domain.PriorityLow})
	h := newHarness(ticket)
	require.NoError(t, h.flow.SetStatus("resolved"))
	require.NoError(t, h.flow.SetPriority("high"))

	saved := ticket
	saved.Priority = domain.PriorityHigh
	h.api.On("UpdateTicket", mock.Anything, mock.MatchedBy(func(p domain.TicketPatch) bool {
		return p.Status == nil && p.Priority != nil && *p.Priority == domain.PriorityHigh
	})).Return(saved, nil).Once()
	resolved := saved
	resolved.Status = domain.StatusResolved
	h.api.On("ResolveTicket", mock.Anything, domain.ID("P1"), "Fixed via reboot", []string{}).Return(resolved, nil).Once()

	require.NoError(t, h.flow.BeginResolve(context.Background()))
	got, err := h.flow.ConfirmResolve(context.Background(), "Fixed via reboot", nil)

	require.NoError(t, err)
	h.api.AssertExpectations(t)
	assert.Equal(t, domain.StatusResolved, got.Status)
	assert.Equal(t, []domain.TicketStatus{domain.StatusPending}, h.nav.from)
	require.Len(t, h.history.changes, 1)
	assert.Equal(t, domain.StatusPending, h.history.changes[0].OldStatus)
}

func TestResolveFailureKeepsResolvedDraftStatus(t *testing.T) {
	h := newHarness(complete(domain.Ticket{ID: "T1", Status: domain.StatusOpen}))
	require.NoError(t, h.flow.SetStatus("resolved"))
	h.api.On("ResolveTicket", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(domain.Ticket{}, apperrors.NewTransportError("resolve ticket", 502, errors.New("bad gateway")))

	require.NoError(t, h.flow.BeginResolve(context.Background()))
	_, err := h.flow.ConfirmResolve(context.Background(), "ok", nil)

	assert.True(t, apperrors.IsTransport(err))
	h.api.AssertNotCalled(t, "UpdateTicket", mock.Anything, mock.Anything)
	assert.Equal(t, domain.StatusResolved, h.flow.Draft().Status)
	assert.True(t, h.flow.Dirty())
}

func TestResolveAbortsWhenSaveFails(t *testing.T) {
	h := newHarness(domain.Ticket{ID: "T1", Status: domain.StatusOpen})
	h.flow.SetCategory("1", "")
	h.flow.SetSubcategory("2", "")
	h.flow.SetCompany("3", "", "")
	h.api.On("UpdateTicket", mock.Anything, mock.Anything).
		Return(domain.Ticket{}, apperrors.NewTransportError("update ticket", 503, errors.New("down"))).Once()

	require.NoError(t, h.flow.BeginResolve(context.Background()))
	_, err := h.flow.ConfirmResolve(context.Background(), "done", nil)

	assert.True(t, apperrors.IsTransport(err))
	h.api.AssertNotCalled(t, "ResolveTicket", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.True(t, h.flow.Dirty(), "draft is kept for retry")
	assert.False(t, h.flow.Closed())
	assert.Empty(t, h.nav.closed)
	require.Len(t, h.notes.sent, 1)
	assert.Equal(t, events.LevelError, h.notes.sent[0].Level)
}

func TestResolveAuditFailureIsNonFatal(t *testing.T) {
	ticket := complete(domain.Ticket{ID: "T1", Status: domain.StatusInProgress})
	h := newHarness(ticket)
	h.history.err = errors.New("history down")
	resolved := ticket
	resolved.Status = domain.StatusResolved
	h.api.On("ResolveTicket", mock.Anything, domain.ID("T1"), "ok", []string{}).Return(resolved, nil).Once()

	require.NoError(t, h.flow.BeginResolve(context.Background()))
	_, err := h.flow.ConfirmResolve(context.Background(), "ok", nil)

	require.NoError(t, err)
	assert.True(t, h.flow.Closed())
	assert.Len(t, h.audit.changes, 1, "audit still runs when history fails")
	require.Len(t, h.notes.sent, 1)
	assert.Equal(t, events.LevelWarning, h.notes.sent[0].Level)
}

func TestResolveTransportFailureKeepsTabOpen(t *testing.T) {
	h := newHarness(complete(domain.Ticket{ID: "T1", Status: domain.StatusOpen}))
	h.api.On("ResolveTicket", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(domain.Ticket{}, apperrors.NewTransportError("resolve ticket", 0, errors.New("timeout")))

	require.NoError(t, h.flow.BeginResolve(context.Background()))
	_, err := h.flow.ConfirmResolve(context.Background(), "ok", nil)

	assert.True(t, apperrors.IsTransport(err))
	assert.True(t, h.flow.Resolving())
	assert.False(t, h.flow.Closed())
	assert.Empty(t, h.history.changes)
	assert.Empty(t, h.nav.closed)
}

func TestBeginResolveOnFinishedTicket(t *testing.T) {
	h := newHarness(complete(domain.Ticket{ID: "T1", Status: domain.StatusResolved}))
	err := h.flow.BeginResolve(context.Background())
	assert.ErrorIs(t, err, ErrTerminalStatus)
	assert.Equal(t, apperrors.CodeConflict, apperrors.ToDomainError(err).Code)
}

func TestSaveValidatesBeforeCalling(t *testing.T) {
	h := newHarness(domain.Ticket{ID: "T1", Status: domain.StatusOpen})
	h.flow.Assign("u1", "Deniz")

	_, err := h.flow.Save(context.Background())

	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, []string{"category_id", "subcategory_id", "company_id"}, apperrors.ToDomainError(err).Details["missing_fields"])
	assert.Empty(t, h.api.Calls)
	assert.True(t, h.flow.Dirty())
}

func TestSaveRecordsStatusChange(t *testing.T) {
	ticket := complete(domain.Ticket{ID: "T1", Status: domain.StatusOpen, Priority: domain.PriorityLow})
	h := newHarness(ticket)
	require.NoError(t, h.flow.SetStatus("waiting"))
	require.NoError(t, h.flow.SetPriority("high"))

	server := ticket
	server.Status = domain.StatusPending
	server.Priority = domain.PriorityHigh
	server.SLABreach = true
	h.api.On("UpdateTicket", mock.Anything, mock.Anything).Return(server, nil).Once()

	got, err := h.flow.Save(context.Background())

	require.NoError(t, err)
	assert.True(t, got.SLABreach, "server copy replaces the draft")
	assert.True(t, h.flow.Draft().SLABreach)
	require.Len(t, h.history.changes, 1)
	assert.Equal(t, domain.PriorityLow, h.history.changes[0].Before.Priority)
	assert.Equal(t, domain.PriorityHigh, h.history.changes[0].After.Priority)
	require.Len(t, h.notes.published, 1)
	assert.Equal(t, events.EventTicketStatusChanged, h.notes.published[0].Type)
	require.Len(t, h.notes.sent, 1)
	assert.Equal(t, events.LevelSuccess, h.notes.sent[0].Level)
}

func TestSaveWithoutStatusChangeSkipsHistory(t *testing.T) {
	ticket := complete(domain.Ticket{ID: "T1", Status: domain.StatusOpen})
	h := newHarness(ticket)
	h.flow.AddTag("vpn")
	server := ticket
	server.Tags = []string{"vpn"}
	h.api.On("UpdateTicket", mock.Anything, mock.MatchedBy(func(p domain.TicketPatch) bool {
		return len(p.Tags) == 1 && p.Status == nil
	})).Return(server, nil).Once()

	_, err := h.flow.Save(context.Background())

	require.NoError(t, err)
	assert.Empty(t, h.history.changes)
	assert.Empty(t, h.audit.changes)
}

func TestSaveTransportFailureKeepsDraft(t *testing.T) {
	h := newHarness(complete(domain.Ticket{ID: "T1", Status: domain.StatusOpen, Title: "a"}))
	require.NoError(t, h.flow.ApplyDraft(domain.TicketPatch{ID: "T1", Title: ptr("b")}))
	h.api.On("UpdateTicket", mock.Anything, mock.Anything).
		Return(domain.Ticket{}, apperrors.NewTransportError("update ticket", 500, errors.New("boom")))

	_, err := h.flow.Save(context.Background())

	assert.True(t, apperrors.IsTransport(err))
	assert.Equal(t, "b", h.flow.Draft().Title)
	assert.Equal(t, "a", h.flow.Committed().Title)
	require.Len(t, h.notes.sent, 1)
	assert.Equal(t, events.LevelError, h.notes.sent[0].Level)
}

func TestSaveOnClosedTicket(t *testing.T) {
	h := newHarness(complete(domain.Ticket{ID: "T1", Status: domain.StatusClosed}))
	h.flow.AddTag("late")
	_, err := h.flow.Save(context.Background())
	assert.ErrorIs(t, err, ErrTerminalStatus)
	assert.Empty(t, h.api.Calls)
}

func TestSaveResolvedStatusNeedsNotes(t *testing.T) {
	h := newHarness(complete(domain.Ticket{ID: "T1", Status: domain.StatusOpen}))
	require.NoError(t, h.flow.SetStatus("resolved"))

	_, err := h.flow.Save(context.Background())
	assert.True(t, apperrors.IsValidation(err))

	require.NoError(t, h.flow.ApplyDraft(domain.TicketPatch{ID: "T1", ResolutionNotes: ptr("done")}))
	h.api.On("UpdateTicket", mock.Anything, mock.MatchedBy(func(p domain.TicketPatch) bool {
		return p.ResolutionNotes != nil && *p.ResolutionNotes == "done"
	})).Return(complete(domain.Ticket{ID: "T1", Status: domain.StatusResolved}), nil).Once()

	_, err = h.flow.Save(context.Background())
	require.NoError(t, err)
	h.api.AssertExpectations(t)
}

func TestDraftEdits(t *testing.T) {
	h := newHarness(domain.Ticket{ID: "T1", CategoryID: "1", SubcategoryID: "2", CompanyID: "3", ContactID: "9", ContactName: "Ali"})

	h.flow.SetCategory("1", "same")
	assert.Equal(t, domain.ID("2"), h.flow.Draft().SubcategoryID)
	h.flow.SetCategory("5", "other")
	assert.True(t, h.flow.Draft().SubcategoryID.IsZero())

	h.flow.SetCompany("4", "Globex", "")
	assert.True(t, h.flow.Draft().ContactID.IsZero())

	assert.Error(t, h.flow.SetStatus("archived"))
	assert.Error(t, h.flow.SetPriority("critical"))

	assert.True(t, h.flow.AddTag("vpn"))
	assert.False(t, h.flow.AddTag("VPN"))
	assert.True(t, h.flow.RemoveTag("Vpn"))

	require.NoError(t, h.flow.ApplyDraft(domain.TicketPatch{ID: "T1", CategoryID: ptrID("6"), TicketNumber: ptr64(99)}))
	assert.Equal(t, int64(0), h.flow.Draft().TicketNumber, "server fields are ignored")
	assert.Empty(t, h.api.Calls)
	assert.Empty(t, h.notes.sent)
}

func TestAddComment(t *testing.T) {
	h := newHarness(domain.Ticket{ID: "T1"})
	_, err := h.flow.AddComment(context.Background(), " ", false, nil)
	assert.True(t, apperrors.IsValidation(err))

	h.api.On("AddComment", mock.Anything, backend.CommentRequest{TicketID: "T1", Content: "hello", IsInternal: true}).
		Return(domain.Comment{ID: "c1", Content: "hello"}, nil).Once()

	c, err := h.flow.AddComment(context.Background(), "hello", true, nil)

	require.NoError(t, err)
	assert.Equal(t, domain.ID("c1"), c.ID)
	assert.Len(t, h.flow.Committed().Comments, 1)
	assert.Len(t, h.flow.Draft().Comments, 1)
	assert.Len(t, h.cache.tickets, 1)
	assert.Len(t, h.notes.sent, 2)
}

func TestReloadKeepsDirtyDraft(t *testing.T) {
	h := newHarness(domain.Ticket{ID: "T1", Title: "a"})
	h.flow.Assign("u1", "Deniz")
	h.api.On("GetTicket", mock.Anything, domain.ID("T1")).Return(domain.Ticket{ID: "T1", Title: "server"}, nil)

	_, err := h.flow.Reload(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "server", h.flow.Committed().Title)
	assert.Equal(t, "a", h.flow.Draft().Title)
	assert.Equal(t, domain.ID("u1"), h.flow.Draft().AssignedTo)
}

func ptr(s string) *string { return &s }

func ptrID(id domain.ID) *domain.ID { return &id }

func ptr64(n int64) *int64 { return &n }
