package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/wiki-moderation/internal/api/http/handlers"
	"github.com/spec-kit/wiki-moderation/internal/auth"
	"github.com/spec-kit/wiki-moderation/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	ChangeRequests *handlers.ChangeRequestsHandler
	Entities       *handlers.EntitiesHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        nethttp.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	app.Post("/auth/token", cfg.Auth.Token)

	guard := func(min domain.Role, h fiber.Handler) []fiber.Handler {
		return []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireRole(min), h}
	}

	requests := app.Group("/change-requests")
	requests.Get("/", guard(domain.RoleContributor, cfg.ChangeRequests.List)...)
	requests.Post("/", guard(domain.RoleContributor, cfg.ChangeRequests.Create)...)
	requests.Get("/:id", guard(domain.RoleContributor, cfg.ChangeRequests.Get)...)
	requests.Post("/:id/approve", guard(domain.RoleModerator, cfg.ChangeRequests.Approve)...)
	requests.Post("/:id/reject", guard(domain.RoleModerator, cfg.ChangeRequests.Reject)...)
	requests.Delete("/:id", guard(domain.RoleAdmin, cfg.ChangeRequests.Delete)...)

	// Registered last: /:collection would otherwise shadow the routes above.
	app.Post("/:collection", guard(domain.RoleAdmin, cfg.Entities.Create)...)
	app.Get("/:collection/:id", guard(domain.RoleContributor, cfg.Entities.Get)...)
	app.Get("/:collection/:id/fields/:field", guard(domain.RoleContributor, cfg.Entities.Field)...)
	app.Get("/:collection/:id/revisions", guard(domain.RoleContributor, cfg.Entities.Revisions)...)
}
