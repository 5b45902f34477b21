package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/domain"
	apperrors "github.com/spec-kit/auth-service/pkg/errorutil"
)

// RequireAuthenticated rejects anonymous callers with 401.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequireRole ensures the principal holds one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowed) > 0 && !principal.HasRole(allowed...) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireAuthority ensures the principal holds at least one of authorities.
func RequireAuthority(authorities ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		for _, a := range authorities {
			if principal.HasAuthority(a) {
				return c.Next()
			}
		}
		return apperrors.NewForbidden("insufficient authority")
	}
}

// RequireMethodAuthority picks the required permissions by HTTP method and
// checks them with RequireAuthority. Methods absent from the map only need an
// authenticated principal.
func RequireMethodAuthority(byMethod map[string][]domain.Permission) fiber.Handler {
	guards := make(map[string]fiber.Handler, len(byMethod))
	for method, perms := range byMethod {
		authorities := make([]string, len(perms))
		for i, p := range perms {
			authorities[i] = string(p)
		}
		guards[method] = RequireAuthority(authorities...)
	}
	authenticated := RequireAuthenticated()

	return func(c *fiber.Ctx) error {
		if guard, ok := guards[c.Method()]; ok {
			return guard(c)
		}
		return authenticated(c)
	}
}
