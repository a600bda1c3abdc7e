package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-console/internal/api/dto"
)

const defaultNotificationLimit = 50

// NotificationsHandler exposes the feedback feed and the push channel
// state of the caller's workspace.
type NotificationsHandler struct {
	spaces Workspaces
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(spaces Workspaces) *NotificationsHandler {
	return &NotificationsHandler{spaces: spaces}
}

// List GET /notifications?limit=.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	ws, err := workspaceFor(c, h.spaces)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NotificationsResponse{
		Notifications: ws.Notifications(limitQuery(c, defaultNotificationLimit)),
	}})
}

// Realtime GET /realtime.
func (h *NotificationsHandler) Realtime(c *fiber.Ctx) error {
	ws, err := workspaceFor(c, h.spaces)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.RealtimeResponse{
		Connected: ws.Sync().IsConnected(),
		Mounted:   ws.Mounted(),
	}})
}
