package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-sla/internal/api/http/handlers"
	"github.com/spec-kit/support-sla/internal/auth"
	"github.com/spec-kit/support-sla/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Conversations  *handlers.ConversationsHandler
	Rooms          *handlers.RoomsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("", cfg.AuthMiddleware.Handle)

	bridge := api.Group("/events", auth.RequireSubject(domain.SubjectTypeService))
	bridge.Post("/messages", cfg.Conversations.MessagePosted)

	readers := auth.RequireSubject(domain.SubjectTypeMember, domain.SubjectTypeService)
	conversations := api.Group("/conversations")
	conversations.Get("/:id", readers, cfg.Conversations.Get)
	conversations.Get("/:id/response-time", readers, cfg.Conversations.ResponseTime)
	conversations.Post("/:id/close", auth.RequireMember(), cfg.Conversations.Close)
	conversations.Post("/:id/archive", auth.RequireMember(), cfg.Conversations.Archive)
	conversations.Post("/:id/snooze", auth.RequireMember(), cfg.Conversations.Snooze)
	conversations.Post("/:id/wake", auth.RequireMember(), cfg.Conversations.Wake)

	api.Get("/rooms/:id/coverage", readers, cfg.Rooms.Coverage)

	admin := api.Group("/admin", auth.RequireSubject(domain.SubjectTypeService))
	admin.Get("/metrics", cfg.Admin.Metrics)
	admin.Post("/sla/sweep", cfg.Admin.Sweep)
}
