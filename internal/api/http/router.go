package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/vps-service/internal/api/http/handlers"
	"github.com/spec-kit/vps-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	VPS            *handlers.VPSHandler
	Orders         *handlers.OrdersHandler
	Settings       *handlers.SettingsHandler
	AdminUsers     *handlers.AdminUsersHandler
	AdminVPS       *handlers.AdminVPSHandler
	AdminOrders    *handlers.AdminOrdersHandler
	Audit          *handlers.AuditHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Get("/settings", cfg.Settings.Get)
	app.Get("/plans", cfg.Orders.ListPlans)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuth())

	protected.Get("/users/me", cfg.Users.Me)
	protected.Patch("/users/me", cfg.Users.UpdateProfile)

	protected.Get("/dashboard", cfg.VPS.Dashboard)
	protected.Get("/vps", cfg.VPS.List)
	protected.Get("/vps/:name", cfg.VPS.Get)
	protected.Post("/vps/:name/start", cfg.VPS.Start)
	protected.Post("/vps/:name/stop", cfg.VPS.Stop)
	protected.Post("/vps/:name/restart", cfg.VPS.Restart)
	protected.Get("/vps/:name/stats", cfg.VPS.Stats)
	protected.Post("/vps/:name/shell", cfg.VPS.Shell)

	protected.Post("/orders", cfg.Orders.Create)
	protected.Get("/orders/:id", cfg.Orders.Get)
	protected.Post("/orders/:id/proof", cfg.Orders.AttachProof)

	admin := protected.Group("/admin", auth.RequireAdmin())

	admin.Get("/users", cfg.AdminUsers.List)
	admin.Post("/users", cfg.AdminUsers.Create)
	admin.Patch("/users/:username", cfg.AdminUsers.Update)
	admin.Delete("/users/:username", cfg.AdminUsers.Delete)
	admin.Post("/users/:username/ban", cfg.AdminUsers.SetBanned)
	admin.Post("/users/:username/suspend", cfg.AdminUsers.SetSuspended)
	admin.Post("/users/:username/balance", cfg.AdminUsers.AddBalance)

	admin.Get("/dashboard", cfg.AdminVPS.Dashboard)
	admin.Get("/vps", cfg.AdminVPS.List)
	admin.Post("/vps", cfg.AdminVPS.Create)
	admin.Delete("/vps/:name", cfg.AdminVPS.Delete)
	admin.Post("/vps/:name/resize", cfg.AdminVPS.Resize)
	admin.Post("/vps/:name/reinstall", cfg.AdminVPS.Reinstall)
	admin.Post("/vps/:name/suspend", cfg.AdminVPS.Suspend)
	admin.Post("/vps/:name/unsuspend", cfg.AdminVPS.Unsuspend)
	admin.Post("/vps/:name/exec", cfg.AdminVPS.Exec)
	admin.Get("/vps/:name/audit", cfg.Audit.ListByContainer)

	admin.Get("/orders", cfg.AdminOrders.List)
	admin.Post("/orders/:id/approve", cfg.AdminOrders.Approve)
	admin.Post("/orders/:id/reject", cfg.AdminOrders.Reject)

	admin.Patch("/settings", cfg.Settings.Update)
}
