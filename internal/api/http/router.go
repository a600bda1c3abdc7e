package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-console/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-console/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tabs           *handlers.TabsHandler
	Tickets        *handlers.TicketsHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	console := app.Group("", cfg.AuthMiddleware.Handle)

	console.Get("/tabs", cfg.Tabs.List)
	console.Get("/tabs/:tab/tickets", cfg.Tabs.Tickets)
	console.Post("/tabs/:tab/refresh", cfg.Tabs.Refresh)
	console.Put("/tabs/:tab/filters", cfg.Tabs.SetFilters)
	console.Delete("/tabs/:tab", cfg.Tabs.Clear)
	console.Post("/tabs/:tab/close", cfg.Tabs.Close)

	tickets := console.Group("/tickets")
	tickets.Post("/:id/open", cfg.Tickets.Open)
	tickets.Get("/:id/draft", cfg.Tickets.Draft)
	tickets.Patch("/:id/draft", cfg.Tickets.EditDraft)
	tickets.Get("/:id/tags", cfg.Tickets.Tags)
	tickets.Post("/:id/tags", cfg.Tickets.AddTag)
	tickets.Delete("/:id/tags/:name", cfg.Tickets.RemoveTag)
	tickets.Post("/:id/save", cfg.Tickets.Save)
	tickets.Post("/:id/reload", cfg.Tickets.Reload)
	tickets.Post("/:id/resolve", cfg.Tickets.BeginResolve)
	tickets.Post("/:id/resolve/confirm", cfg.Tickets.ConfirmResolve)
	tickets.Post("/:id/resolve/cancel", cfg.Tickets.CancelResolve)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Delete("/:id", cfg.Tickets.Close)

	console.Get("/notifications", cfg.Notifications.List)
	console.Get("/realtime", cfg.Notifications.Realtime)
}
