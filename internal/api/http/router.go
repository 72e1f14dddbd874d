package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dormdesk/maintenance-service/internal/api/http/handlers"
	"github.com/dormdesk/maintenance-service/internal/auth"
	"github.com/dormdesk/maintenance-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Users          *handlers.UsersHandler
	Reports        *handlers.ReportsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	protected := api.Group("", cfg.AuthMiddleware.Handle)

	tickets := protected.Group("/tickets")
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Post("", auth.RequireRole(domain.RoleResident), cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Put("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", auth.RequireRole(domain.RoleResident, domain.RoleAdmin), cfg.Tickets.DeleteTicket)
	tickets.Get("/:id/messages", cfg.Tickets.ListMessages)
	tickets.Post("/:id/messages", cfg.Tickets.PostMessage)

	users := protected.Group("/users")
	users.Get("", auth.RequireRole(domain.RoleAdmin), cfg.Users.ListUsers)
	users.Post("", auth.RequireRole(domain.RoleAdmin), cfg.Users.CreateUser)
	users.Put("/:id", cfg.Users.UpdateUser)

	protected.Get("/technicians", cfg.Users.ListTechnicians)
	protected.Get("/technician-ratings", cfg.Reports.TechnicianRatings)
	protected.Get("/technicians/:id/reviews", cfg.Reports.TechnicianReviews)
}
