package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-console/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-console/internal/auth"
	"github.com/spec-kit/helpdesk-console/internal/backend"
	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/events"
	"github.com/spec-kit/helpdesk-console/internal/observability"
	"github.com/spec-kit/helpdesk-console/internal/tabs"
	"github.com/spec-kit/helpdesk-console/internal/workspace"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util"
)

type stubAPI struct {
	mu      sync.Mutex
	tickets map[domain.ID]domain.Ticket
}

func (s *stubAPI) ListTickets(context.Context, backend.ListRequest) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		out = append(out, t.Clone())
	}
	return out, nil
}

func (s *stubAPI) GetTicket(_ context.Context, id domain.ID) (domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return domain.Ticket{}, apperrors.NewTransportError(backend.OpGetTicket, 404, nil)
	}
	return t.Clone(), nil
}

func (s *stubAPI) UpdateTicket(_ context.Context, patch domain.TicketPatch) (domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tickets[patch.ID]
	patch.Apply(&t)
	s.tickets[t.ID] = t
	return t.Clone(), nil
}

func (s *stubAPI) ResolveTicket(_ context.Context, id domain.ID, notes string, tags []string) (domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tickets[id]
	t.Status = domain.StatusResolved
	t.ResolutionNotes = notes
	s.tickets[id] = t
	return t.Clone(), nil
}

func (s *stubAPI) AddComment(_ context.Context, req backend.CommentRequest) (domain.Comment, error) {
	return domain.Comment{ID: "c1", Content: req.Content, IsInternal: req.IsInternal}, nil
}

func (s *stubAPI) TicketTags(context.Context, domain.ID) ([]domain.Tag, error) {
	return []domain.Tag{{ID: "1", Name: "vpn"}}, nil
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type console struct {
	t     *testing.T
	app   *fiber.App
	token string
}

func newConsole(t *testing.T) *console {
	t.Helper()
	api := &stubAPI{tickets: map[domain.ID]domain.Ticket{
		"T1": {ID: "T1", TicketNumber: 12, Title: "VPN down", Status: domain.StatusOpen, Priority: domain.PriorityHigh, CategoryID: "1", CompanyID: "3"},
		"T2": {ID: "T2", TicketNumber: 13, Title: "Printer", Status: domain.StatusPending, Priority: domain.PriorityLow},
	}}
	set, err := tabs.NewSet(tabs.Defaults())
	require.NoError(t, err)
	logger := zap.NewNop()

	manager := workspace.NewManager(func(principal domain.ID, _ string) workspace.Options {
		dispatcher := events.NewInMemoryDispatcher()
		notes := events.NewNotificationLog(logger, 0)
		notes.RegisterHandlers(dispatcher)
		return workspace.Options{
			API:           api,
			Tabs:          set,
			Notifier:      events.NewNotifier(dispatcher, logger, nil),
			Notifications: notes,
			Logger:        logger,
			Principal:     principal,
		}
	}, logger)
	t.Cleanup(manager.Close)

	tokens := auth.NewTokenManager("secret", "", time.Minute)
	token, _, err := tokens.GenerateToken("agent-1", "Deniz", "agent")
	require.NoError(t, err)

	app := fiber.New()
	RegisterMiddlewares(app, logger, observability.NewMetrics(), time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("helpdesk-console", "test", nil, nil),
		Tabs:           handlers.NewTabsHandler(manager),
		Tickets:        handlers.NewTicketsHandler(manager),
		Notifications:  handlers.NewNotificationsHandler(manager),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})
	return &console{t: t, app: app, token: token}
}

func (c *console) do(method, path string, body any) (int, envelope) {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if c.token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	resp, err := c.app.Test(req, -1)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var env envelope
	if raw, _ := io.ReadAll(resp.Body); len(raw) > 0 {
		require.NoError(c.t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func tabPath(key string) string {
	return "/tabs/" + url.PathEscape(key)
}

func TestHealthIsPublic(t *testing.T) {
	c := newConsole(t)
	c.token = ""

	req := httptest.NewRequest(fiber.MethodGet, "/health/live", nil)
	resp, err := c.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	status, env := c.do(fiber.MethodGet, "/tabs", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, apperrors.CodeUnauthorized, env.Error.Code)
}

func TestTabTicketsAndSearch(t *testing.T) {
	c := newConsole(t)

	status, env := c.do(fiber.MethodGet, tabPath(tabs.AllTickets)+"/tickets", nil)
	require.Equal(t, fiber.StatusOK, status)
	var page struct {
		Loaded  bool            `json:"loaded"`
		Tickets []domain.Ticket `json:"tickets"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.True(t, page.Loaded)
	assert.Len(t, page.Tickets, 2)

	status, env = c.do(fiber.MethodGet, tabPath(tabs.AllTickets)+"/tickets?search=printer", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Tickets, 1)
	assert.Equal(t, domain.ID("T2"), page.Tickets[0].ID)

	status, env = c.do(fiber.MethodGet, "/tabs/Nowhere/tickets", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	require.NotNil(t, env.Error)
}

func TestFiltersAcceptCamelCase(t *testing.T) {
	c := newConsole(t)
	c.do(fiber.MethodGet, tabPath(tabs.AllTickets)+"/tickets", nil)

	status, env := c.do(fiber.MethodPut, tabPath(tabs.AllTickets)+"/filters", map[string]any{
		"filters": map[string]any{"priority": []string{"high"}},
	})
	require.Equal(t, fiber.StatusOK, status)
	var refresh struct {
		Fetched bool `json:"fetched"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &refresh))
	assert.False(t, refresh.Fetched, "client-side criteria alone do not refetch")

	_, env = c.do(fiber.MethodGet, tabPath(tabs.AllTickets)+"/tickets", nil)
	var page struct {
		Tickets []domain.Ticket `json:"tickets"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Tickets, 1)
	assert.Equal(t, domain.ID("T1"), page.Tickets[0].ID)
}

func TestResolveThroughConsole(t *testing.T) {
	c := newConsole(t)

	status, env := c.do(fiber.MethodPost, "/tickets/T1/open", nil)
	require.Equal(t, fiber.StatusOK, status)
	var detail struct {
		Tab       string   `json:"tab"`
		Dirty     bool     `json:"dirty"`
		Missing   []string `json:"missing_fields"`
		Resolving bool     `json:"resolving"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, "Talep #12", detail.Tab)
	assert.Equal(t, []string{"subcategory_id"}, detail.Missing)

	status, env = c.do(fiber.MethodPost, "/tickets/T1/resolve", nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, []any{"subcategory_id"}, env.Error.Details["missing_fields"])

	status, env = c.do(fiber.MethodPatch, "/tickets/T1/draft", map[string]any{"subcategoryId": "2"})
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.True(t, detail.Dirty)
	assert.Empty(t, detail.Missing)

	status, env = c.do(fiber.MethodPost, "/tickets/T1/resolve", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.True(t, detail.Resolving)

	status, _ = c.do(fiber.MethodPost, "/tickets/T1/resolve/confirm", map[string]any{"resolution_notes": " "})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, env = c.do(fiber.MethodPost, "/tickets/T1/resolve/confirm", map[string]any{"resolution_notes": "restarted the gateway", "tags": []string{"vpn"}})
	require.Equal(t, fiber.StatusOK, status)
	var resolved struct {
		Ticket     domain.Ticket `json:"ticket"`
		Navigation struct {
			Active string   `json:"active"`
			Open   []string `json:"open"`
		} `json:"navigation"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &resolved))
	assert.Equal(t, domain.StatusResolved, resolved.Ticket.Status)
	assert.Equal(t, domain.ID("2"), resolved.Ticket.SubcategoryID)
	assert.Equal(t, tabs.AllTickets, resolved.Navigation.Active)
	assert.NotContains(t, resolved.Navigation.Open, "Talep #12")

	status, _ = c.do(fiber.MethodGet, "/tickets/T1/draft", nil)
	assert.Equal(t, fiber.StatusNotFound, status, "detail tab is closed")

	_, env = c.do(fiber.MethodGet, "/notifications?limit=1", nil)
	var feed struct {
		Notifications []events.Notification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &feed))
	require.Len(t, feed.Notifications, 1)
	assert.Equal(t, events.LevelSuccess, feed.Notifications[0].Level)
	assert.Equal(t, "resolve", feed.Notifications[0].Operation)
}

func TestCommentsTagsAndClose(t *testing.T) {
	c := newConsole(t)
	c.do(fiber.MethodPost, "/tickets/T2/open", nil)

	status, env := c.do(fiber.MethodPost, "/tickets/T2/comments", map[string]any{"content": "on it", "is_internal": true})
	require.Equal(t, fiber.StatusCreated, status)
	var comment domain.Comment
	require.NoError(t, json.Unmarshal(env.Data, &comment))
	assert.Equal(t, "on it", comment.Content)

	status, _ = c.do(fiber.MethodPost, "/tickets/T2/comments", map[string]any{"content": ""})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, env = c.do(fiber.MethodGet, "/tickets/T2/tags", nil)
	require.Equal(t, fiber.StatusOK, status)
	var tags []domain.Tag
	require.NoError(t, json.Unmarshal(env.Data, &tags))
	assert.Equal(t, "vpn", tags[0].Name)

	status, env = c.do(fiber.MethodDelete, "/tickets/T2", nil)
	require.Equal(t, fiber.StatusOK, status)
	var nav struct {
		Active string `json:"active"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &nav))
	assert.Equal(t, tabs.AllTickets, nav.Active)

	status, env = c.do(fiber.MethodGet, "/realtime", nil)
	require.Equal(t, fiber.StatusOK, status)
	var rt struct {
		Connected bool `json:"connected"`
		Mounted   bool `json:"mounted"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &rt))
	assert.False(t, rt.Connected)
	assert.True(t, rt.Mounted)
}
