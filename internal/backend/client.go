// Package backend is the REST client for the helpdesk API. Every payload
// it returns has been normalized to canonical field names.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-console/internal/config"
	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/observability"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util"
)

// Operation names used in transport errors and logs.
const (
	OpListTickets = "list tickets"
	OpGetTicket   = "get ticket"
	OpUpdate      = "update ticket"
	OpResolve     = "resolve ticket"
	OpAddComment  = "add comment"
	OpTicketTags  = "ticket tags"
)

// Client calls the helpdesk REST API through fiber's HTTP agent.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *fiber.Client
	logger  *zap.Logger
}

// New creates a client for cfg.BaseURL.
func New(cfg config.BackendConfig, logger *zap.Logger) *Client {
	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		timeout: timeout,
		http:    &fiber.Client{JSONEncoder: json.Marshal, JSONDecoder: json.Unmarshal},
		logger:  observability.OrNop(logger),
	}
}

// WithToken returns a copy of the client that authenticates as token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// ListRequest is the body of POST /tickets/list.
type ListRequest struct {
	Range   domain.DateRange
	Filters domain.FilterCriteria
}

// ListTickets fetches the server-side slice of a tab.
func (c *Client) ListTickets(ctx context.Context, req ListRequest) ([]domain.Ticket, error) {
	body := map[string]any{"filters": req.Filters.Compact()}
	if !req.Range.From.IsZero() {
		body["date1"] = req.Range.From.UTC().Format(time.RFC3339)
	}
	if !req.Range.To.IsZero() {
		body["date2"] = req.Range.To.UTC().Format(time.RFC3339)
	}
	raw, err := c.do(ctx, OpListTickets, fiber.MethodPost, "/tickets/list", body)
	if err != nil {
		return nil, err
	}
	tickets, err := domain.DecodeTickets(raw)
	if err != nil {
		return nil, apperrors.NewTransportError(OpListTickets, 0, err)
	}
	return tickets, nil
}

// GetTicket reads one ticket.
func (c *Client) GetTicket(ctx context.Context, id domain.ID) (domain.Ticket, error) {
	raw, err := c.do(ctx, OpGetTicket, fiber.MethodGet, "/tickets/"+url.PathEscape(id.String()), nil)
	if err != nil {
		return domain.Ticket{}, err
	}
	return decodeTicket(OpGetTicket, raw)
}

// UpdateTicket persists the present fields of patch and returns the
// server's full, authoritative ticket.
func (c *Client) UpdateTicket(ctx context.Context, patch domain.TicketPatch) (domain.Ticket, error) {
	body := patch.Fields()
	body["id"] = patch.ID
	raw, err := c.do(ctx, OpUpdate, fiber.MethodPost, "/tickets/update", body)
	if err != nil {
		return domain.Ticket{}, err
	}
	return decodeTicket(OpUpdate, raw)
}

// ResolveTicket moves the ticket to resolved with notes and tags attached.
func (c *Client) ResolveTicket(ctx context.Context, id domain.ID, notes string, tags []string) (domain.Ticket, error) {
	if tags == nil {
		tags = []string{}
	}
	body := map[string]any{"id": id, "resolution_notes": notes, "tags": tags}
	raw, err := c.do(ctx, OpResolve, fiber.MethodPost, "/tickets/resolve", body)
	if err != nil {
		return domain.Ticket{}, err
	}
	return decodeTicket(OpResolve, raw)
}

// CommentRequest is the body of POST /tickets/comments.
type CommentRequest struct {
	TicketID    domain.ID           `json:"ticketId"`
	Content     string              `json:"content"`
	IsInternal  bool                `json:"isInternal"`
	Attachments []domain.Attachment `json:"attachments"`
}

// AddComment appends a comment to a ticket's thread.
func (c *Client) AddComment(ctx context.Context, req CommentRequest) (domain.Comment, error) {
	if req.Attachments == nil {
		req.Attachments = []domain.Attachment{}
	}
	raw, err := c.do(ctx, OpAddComment, fiber.MethodPost, "/tickets/comments", req)
	if err != nil {
		return domain.Comment{}, err
	}
	comment, err := domain.DecodeComment(raw)
	if err != nil {
		return domain.Comment{}, apperrors.NewTransportError(OpAddComment, 0, err)
	}
	if comment.TicketID.IsZero() {
		comment.TicketID = req.TicketID
	}
	return comment, nil
}

// TicketTags lists the tags the backend knows for a ticket. Plain string
// entries are accepted as tag names.
func (c *Client) TicketTags(ctx context.Context, id domain.ID) ([]domain.Tag, error) {
	raw, err := c.do(ctx, OpTicketTags, fiber.MethodGet, "/tickets/"+url.PathEscape(id.String())+"/tags", nil)
	if err != nil {
		return nil, err
	}
	tags, err := decodeTags(raw)
	if err != nil {
		return nil, apperrors.NewTransportError(OpTicketTags, 0, err)
	}
	return tags, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body any) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewTransportError(op, 0, err)
	}
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	target := c.baseURL + path
	var agent *fiber.Agent
	switch method {
	case fiber.MethodGet:
		agent = c.http.Get(target)
	default:
		agent = c.http.Post(target)
	}
	agent.Timeout(timeout).Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if c.token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	if body != nil {
		agent.JSON(body)
	}

	start := time.Now()
	status, resp, errs := agent.Bytes()
	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("path", path),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(start)),
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		c.logger.Warn("backend call failed", append(fields, zap.Error(err))...)
		return nil, apperrors.NewTransportError(op, 0, err)
	}
	if status < 200 || status >= 300 {
		err := fmt.Errorf("unexpected status %d: %s", status, snippet(resp))
		c.logger.Warn("backend call failed", append(fields, zap.Error(err))...)
		return nil, apperrors.NewTransportError(op, status, err)
	}
	c.logger.Debug("backend call", fields...)
	return unwrap(resp), nil
}

// unwrap strips a {"data": ...} envelope when the API uses one.
func unwrap(raw []byte) []byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return trimmed
	}
	if data, ok := env["data"]; ok && len(env) <= 3 {
		if _, hasID := env["id"]; !hasID {
			return data
		}
	}
	return trimmed
}

func decodeTicket(op string, raw []byte) (domain.Ticket, error) {
	t, err := domain.DecodeTicket(raw)
	if err != nil {
		return domain.Ticket{}, apperrors.NewTransportError(op, 0, err)
	}
	return t, nil
}

func decodeTags(raw []byte) ([]domain.Tag, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	out := make([]domain.Tag, 0, len(items))
	for _, item := range items {
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			out = append(out, domain.Tag{Name: name})
			continue
		}
		canon, err := domain.Canonicalize(item)
		if err != nil {
			return nil, err
		}
		var tag domain.Tag
		if err := json.Unmarshal(canon, &tag); err != nil {
			return nil, fmt.Errorf("decode tag: %w", err)
		}
		out = append(out, tag)
	}
	return out, nil
}

func snippet(b []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
