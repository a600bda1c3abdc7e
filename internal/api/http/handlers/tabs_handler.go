package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-console/internal/api/dto"
	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/workspace"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util"
)

// TabsHandler exposes the list tabs of the caller's workspace.
type TabsHandler struct {
	spaces Workspaces
}

// NewTabsHandler constructs handler.
func NewTabsHandler(spaces Workspaces) *TabsHandler {
	return &TabsHandler{spaces: spaces}
}

// List GET /tabs.
func (h *TabsHandler) List(c *fiber.Ctx) error {
	ws, err := workspaceFor(c, h.spaces)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.WorkspaceResponse{
		Active: ws.ActiveTab(),
		Open:   ws.OpenTabs(),
		Tabs:   ws.Tabs(),
	}})
}

// Tickets GET /tabs/:tab/tickets. Activates the tab, fetching when it is
// stale, and returns the visible slice for ?search=.
func (h *TabsHandler) Tickets(c *fiber.Ctx) error {
	ws, tab, err := h.resolve(c)
	if err != nil {
		return err
	}
	if _, err := ws.ActivateTab(c.UserContext(), tab); err != nil {
		return err
	}
	tickets, err := ws.Visible(tab, c.Query("search"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TabTicketsResponse{
		Tab:           tab,
		Loaded:        ws.Cache().IsTabLoaded(tab),
		LastFetchedAt: ws.Cache().LastFetchedAt(tab),
		Tickets:       tickets,
	}})
}

// Refresh POST /tabs/:tab/refresh.
func (h *TabsHandler) Refresh(c *fiber.Ctx) error {
	ws, tab, err := h.resolve(c)
	if err != nil {
		return err
	}
	fetched, err := ws.MaybeRefresh(c.UserContext(), tab, workspace.ReasonManualRefresh)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.RefreshResponse{Tab: tab, Fetched: fetched}})
}

// SetFilters PUT /tabs/:tab/filters.
func (h *TabsHandler) SetFilters(c *fiber.Ctx) error {
	ws, tab, err := h.resolve(c)
	if err != nil {
		return err
	}
	var req dto.FiltersRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	var criteria domain.FilterCriteria
	if len(req.Filters) > 0 {
		criteria, err = domain.DecodeCriteria(req.Filters)
		if err != nil {
			return apperrors.NewValidationError("invalid filters", map[string]any{"reason": err.Error()})
		}
	}
	fetched, err := ws.SetFilters(c.UserContext(), tab, criteria, req.Range())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.RefreshResponse{Tab: tab, Fetched: fetched}})
}

// Clear DELETE /tabs/:tab drops the cached tickets of a tab.
func (h *TabsHandler) Clear(c *fiber.Ctx) error {
	ws, tab, err := h.resolve(c)
	if err != nil {
		return err
	}
	if err := ws.ClearTab(tab); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Close POST /tabs/:tab/close.
func (h *TabsHandler) Close(c *fiber.Ctx) error {
	ws, tab, err := h.resolve(c)
	if err != nil {
		return err
	}
	active, err := ws.CloseTab(tab)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NavigationResponse{Active: active, Open: ws.OpenTabs()}})
}

func (h *TabsHandler) resolve(c *fiber.Ctx) (*workspace.Workspace, string, error) {
	ws, err := workspaceFor(c, h.spaces)
	if err != nil {
		return nil, "", err
	}
	tab, err := tabParam(c)
	if err != nil {
		return nil, "", err
	}
	return ws, tab, nil
}
