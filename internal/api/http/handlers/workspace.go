package handlers

import (
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-console/internal/auth"
	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/workspace"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util"
)

// Workspaces hands every authenticated agent its own workspace.
type Workspaces interface {
	Get(principal domain.ID, token string) *workspace.Workspace
}

func workspaceFor(c *fiber.Ctx, spaces Workspaces) (*workspace.Workspace, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.ID.IsZero() {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	return spaces.Get(principal.ID, principal.Token), nil
}

// tabParam decodes a tab key. Keys carry spaces and non-ASCII letters.
func tabParam(c *fiber.Ctx) (string, error) {
	tab, err := url.PathUnescape(c.Params("tab"))
	if err != nil || tab == "" {
		return "", apperrors.NewValidationError("invalid tab", map[string]any{"tab": c.Params("tab")})
	}
	return tab, nil
}

func idParam(c *fiber.Ctx) domain.ID {
	return domain.ID(c.Params("id"))
}

func limitQuery(c *fiber.Ctx, fallback int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
