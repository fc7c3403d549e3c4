package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Comments       *handlers.CommentsHandler
	Notifications  *handlers.NotificationsHandler
	Webhook        *handlers.WebhookHandler
	Jobs           *handlers.JobsHandler
	Sync           *handlers.SyncHandler
	Realtime       *handlers.RealtimeHandler
	Metrics        http.Handler
	AuthMiddleware *auth.AuthMiddleware
	WebhookSecret  string
	JobsSecret     string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	app.All("/webhooks/mojito",
		handlers.OnlyMethods(fiber.MethodPost),
		auth.SharedSecret(cfg.WebhookSecret),
		cfg.Webhook.Receive)

	jobs := app.Group("/jobs", auth.SharedSecret(cfg.JobsSecret))
	jobs.Post("/auto-close", cfg.Jobs.AutoClose)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)
	api.Get("/realtime", cfg.Realtime.Stream)

	tickets := api.Group("/tickets")
	tickets.Get("/", cfg.Tickets.List)
	tickets.Post("/", cfg.Tickets.Create)
	tickets.Get("/:id", cfg.Tickets.Detail)
	tickets.Patch("/:id", auth.RequireStaff(), cfg.Tickets.Update)
	tickets.Post("/:id/move", auth.RequireStaff(), cfg.Tickets.Move)
	tickets.Get("/:id/stage-history", cfg.Tickets.StageHistory)
	tickets.Get("/:id/sla", cfg.Tickets.SLA)
	tickets.Get("/:id/comments", cfg.Comments.List)
	tickets.Post("/:id/comments", cfg.Comments.Create)

	comments := api.Group("/comments")
	comments.Patch("/:id", cfg.Comments.Edit)
	comments.Delete("/:id", cfg.Comments.Delete)

	notifications := api.Group("/notifications")
	notifications.Get("/", cfg.Notifications.List)
	notifications.Post("/read", cfg.Notifications.MarkRead)
	notifications.Post("/email", auth.RequireStaff(), cfg.Notifications.Dispatch)

	sync := api.Group("/sync", auth.RequireStaff())
	sync.Post("/", cfg.Sync.Sync)
	sync.Get("/", auth.RequireRole(domain.RoleAdmin), cfg.Sync.Probe)
}
