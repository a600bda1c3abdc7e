package handlers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-console/internal/api/dto"
	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/workflow"
	"github.com/spec-kit/helpdesk-console/internal/workspace"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util"
)

// TicketsHandler drives the detail tabs of the caller's workspace.
type TicketsHandler struct {
	spaces Workspaces
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(spaces Workspaces) *TicketsHandler {
	return &TicketsHandler{spaces: spaces}
}

// Open POST /tickets/:id/open.
func (h *TicketsHandler) Open(c *fiber.Ctx) error {
	ws, err := workspaceFor(c, h.spaces)
	if err != nil {
		return err
	}
	flow, err := ws.OpenTicket(c.UserContext(), idParam(c))
	if err != nil {
		return err
	}
	return h.detail(c, ws, flow)
}

// Draft GET /tickets/:id/draft.
func (h *TicketsHandler) Draft(c *fiber.Ctx) error {
	ws, flow, err := h.flow(c)
	if err != nil {
		return err
	}
	return h.detail(c, ws, flow)
}

// EditDraft PATCH /tickets/:id/draft. The body is a partial ticket in
// either key style.
func (h *TicketsHandler) EditDraft(c *fiber.Ctx) error {
	ws, flow, err := h.flow(c)
	if err != nil {
		return err
	}
	raw, err := withID(c.Body(), flow.ID())
	if err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	patch, err := domain.DecodePatch(raw)
	if err != nil {
		return apperrors.NewValidationError("invalid payload", map[string]any{"reason": err.Error()})
	}
	if err := flow.ApplyDraft(patch); err != nil {
		return err
	}
	return h.detail(c, ws, flow)
}

// AddTag POST /tickets/:id/tags.
func (h *TicketsHandler) AddTag(c *fiber.Ctx) error {
	ws, flow, err := h.flow(c)
	if err != nil {
		return err
	}
	var req dto.TagRequest
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return apperrors.NewValidationError("name required", nil)
	}
	flow.AddTag(req.Name)
	return h.detail(c, ws, flow)
}

// RemoveTag DELETE /tickets/:id/tags/:name.
func (h *TicketsHandler) RemoveTag(c *fiber.Ctx) error {
	ws, flow, err := h.flow(c)
	if err != nil {
		return err
	}
	flow.RemoveTag(c.Params("name"))
	return h.detail(c, ws, flow)
}

// Tags GET /tickets/:id/tags reads the tags the backend holds.
func (h *TicketsHandler) Tags(c *fiber.Ctx) error {
	ws, err := workspaceFor(c, h.spaces)
	if err != nil {
		return err
	}
	tags, err := ws.TicketTags(c.UserContext(), idParam(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": tags})
}

// Save POST /tickets/:id/save.
func (h *TicketsHandler) Save(c *fiber.Ctx) error {
	ws, flow, err := h.flow(c)
	if err != nil {
		return err
	}
	if _, err := flow.Save(c.UserContext()); err != nil {
		return err
	}
	return h.detail(c, ws, flow)
}

// Reload POST /tickets/:id/reload.
func (h *TicketsHandler) Reload(c *fiber.Ctx) error {
	ws, flow, err := h.flow(c)
	if err != nil {
		return err
	}
	if _, err := flow.Reload(c.UserContext()); err != nil {
		return err
	}
	return h.detail(c, ws, flow)
}

// BeginResolve POST /tickets/:id/resolve.
func (h *TicketsHandler) BeginResolve(c *fiber.Ctx) error {
	ws, flow, err := h.flow(c)
	if err != nil {
		return err
	}
	if err := flow.BeginResolve(c.UserContext()); err != nil {
		return err
	}
	return h.detail(c, ws, flow)
}

// CancelResolve POST /tickets/:id/resolve/cancel.
func (h *TicketsHandler) CancelResolve(c *fiber.Ctx) error {
	ws, flow, err := h.flow(c)
	if err != nil {
		return err
	}
	if err := flow.CancelResolve(); err != nil {
		return err
	}
	return h.detail(c, ws, flow)
}

// ConfirmResolve POST /tickets/:id/resolve/confirm.
func (h *TicketsHandler) ConfirmResolve(c *fiber.Ctx) error {
	ws, flow, err := h.flow(c)
	if err != nil {
		return err
	}
	var req dto.ResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	resolved, err := flow.ConfirmResolve(c.UserContext(), req.ResolutionNotes, req.Tags)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ResolveResponse{
		Ticket:     resolved,
		Navigation: dto.NavigationResponse{Active: ws.ActiveTab(), Open: ws.OpenTabs()},
	}})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	_, flow, err := h.flow(c)
	if err != nil {
		return err
	}
	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := flow.AddComment(c.UserContext(), req.Content, req.IsInternal, req.Attachments)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": comment})
}

// Close DELETE /tickets/:id closes the detail tab without saving.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	ws, err := workspaceFor(c, h.spaces)
	if err != nil {
		return err
	}
	active, err := ws.CloseTicket(idParam(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NavigationResponse{Active: active, Open: ws.OpenTabs()}})
}

func (h *TicketsHandler) flow(c *fiber.Ctx) (*workspace.Workspace, *workflow.Resolution, error) {
	ws, err := workspaceFor(c, h.spaces)
	if err != nil {
		return nil, nil, err
	}
	flow, err := ws.Ticket(idParam(c))
	if err != nil {
		return nil, nil, err
	}
	return ws, flow, nil
}

func (h *TicketsHandler) detail(c *fiber.Ctx, ws *workspace.Workspace, flow *workflow.Resolution) error {
	tab, _ := ws.TicketTab(flow.ID())
	return c.JSON(fiber.Map{"data": dto.TicketDetail(tab, flow)})
}

// withID sets the id of a JSON object so partial bodies decode as a patch
// of the ticket named in the path.
func withID(body []byte, id domain.ID) ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, err
		}
	}
	if fields == nil {
		return nil, errors.New("body must be an object")
	}
	raw, err := json.Marshal(id.String())
	if err != nil {
		return nil, err
	}
	fields["id"] = raw
	return json.Marshal(fields)
}
