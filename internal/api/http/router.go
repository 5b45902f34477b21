package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/auth-service/internal/api/http/handlers"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Auth          *handlers.AuthHandler
	Users         *handlers.UsersHandler
	Management    *handlers.ManagementHandler
	Authenticator *auth.Authenticator
	// Gatherer backs /metrics. The route is skipped when nil.
	Gatherer prometheus.Gatherer
}

var managementRoles = []domain.Role{domain.RoleAdmin, domain.RoleManager}

var managementAuthorities = map[string][]domain.Permission{
	fiber.MethodGet:    {domain.PermissionAdminRead, domain.PermissionManagementRead},
	fiber.MethodPost:   {domain.PermissionAdminCreate, domain.PermissionManagementCreate},
	fiber.MethodPut:    {domain.PermissionAdminUpdate, domain.PermissionManagementUpdate},
	fiber.MethodDelete: {domain.PermissionAdminDelete, domain.PermissionManagementDelete},
}

// RegisterRoutes wires HTTP routes. The authenticator runs on every request;
// it only attaches identities, and the per-group guards do the rejecting.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Use(cfg.Authenticator.Handle)

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/authenticate", cfg.Auth.Authenticate)
	authGroup.Post("/refresh-token", cfg.Auth.RefreshToken)

	users := api.Group("/users", auth.RequireAuthenticated())
	users.Get("/me", cfg.Users.Me)
	users.Patch("/password", cfg.Users.ChangePassword)

	management := api.Group("/management",
		auth.RequireRole(managementRoles...),
		auth.RequireMethodAuthority(managementAuthorities),
	)
	management.Get("/", cfg.Management.Handle)
	management.Post("/", cfg.Management.Handle)
	management.Put("/", cfg.Management.Handle)
	management.Delete("/", cfg.Management.Handle)
}

// SubjectOf reports the authenticated subject for request logging.
func SubjectOf(c *fiber.Ctx) (string, bool) {
	p, ok := auth.PrincipalFromContext(c)
	if !ok {
		return "", false
	}
	return p.Subject, true
}
