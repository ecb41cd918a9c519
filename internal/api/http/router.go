package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/constituent-access/internal/api/http/handlers"
	"github.com/spec-kit/constituent-access/internal/auth"
	"github.com/spec-kit/constituent-access/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Session        *handlers.SessionHandler
	Communications *handlers.CommunicationsHandler
	Groups         *handlers.GroupsHandler
	Analytics      *handlers.AnalyticsHandler
	Settings       *handlers.SettingsHandler
	Staff          *handlers.StaffHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	api.Get("/me", cfg.Session.Me)
	api.Get("/audit", auth.RequirePermission(domain.PermSettingsEdit), cfg.Session.Audit)

	comms := api.Group("/communications")
	comms.Post("/inbound", auth.RequireFamily(domain.FamilyConstituent), cfg.Communications.SubmitInbound)
	comms.Post("/", cfg.Communications.Create)
	comms.Get("/", cfg.Communications.List)
	comms.Get("/drafts", cfg.Communications.Drafts)
	comms.Get("/scheduled", cfg.Communications.Scheduled)
	comms.Get("/:id", cfg.Communications.Get)
	comms.Patch("/:id", cfg.Communications.Update)
	comms.Delete("/:id", cfg.Communications.Delete)
	comms.Post("/:id/schedule", cfg.Communications.Schedule)
	comms.Post("/:id/cancel", cfg.Communications.Cancel)
	comms.Post("/:id/approve", cfg.Communications.Approve)
	comms.Post("/:id/send", cfg.Communications.Send)

	groups := api.Group("/groups")
	groups.Post("/", cfg.Groups.Create)
	groups.Get("/", cfg.Groups.List)
	groups.Get("/export", cfg.Groups.Export)
	groups.Get("/:id", cfg.Groups.Get)
	groups.Put("/:id", cfg.Groups.Update)
	groups.Delete("/:id", cfg.Groups.Delete)
	groups.Post("/:id/members", cfg.Groups.AddMember)
	groups.Delete("/:id/members/:memberId", cfg.Groups.RemoveMember)

	analytics := api.Group("/analytics")
	analytics.Post("/", cfg.Analytics.Record)
	analytics.Get("/", cfg.Analytics.List)
	analytics.Get("/export", cfg.Analytics.Export)
	analytics.Get("/:id", cfg.Analytics.Get)

	settings := api.Group("/settings", auth.RequireFamily(domain.FamilyCompany, domain.FamilyPermanent, domain.FamilyTemporary))
	settings.Post("/", cfg.Settings.Provision)
	settings.Get("/", cfg.Settings.List)
	settings.Get("/:officeId", cfg.Settings.Get)
	settings.Patch("/:officeId", cfg.Settings.Update)
	settings.Put("/:officeId/staffing", cfg.Settings.UpdateStaffing)

	staff := api.Group("/staff", auth.RequireFamily(domain.FamilyPermanent, domain.FamilyTemporary))
	staff.Post("/members", cfg.Staff.Invite)
	staff.Get("/members", cfg.Staff.List)
	staff.Get("/members/:id", cfg.Staff.Get)
	staff.Patch("/members/:id/permissions", cfg.Staff.UpdatePermissions)
	staff.Post("/members/:id/end", cfg.Staff.EndAccess)
	staff.Delete("/members/:id", cfg.Staff.Remove)
	staff.Post("/temporary", cfg.Staff.Admit)
	staff.Get("/temporary", cfg.Staff.ActiveTemporary)
}
