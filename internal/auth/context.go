package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/domain"
)

const principalKey = "auth_principal"

type principalCtxKey struct{}

// Principal is the request scoped view of an authenticated user. It is
// derived from the stored user on every request and never shared.
type Principal struct {
	UserID      string
	Subject     string
	Name        string
	Role        domain.Role
	Authorities []string
}

// NewPrincipal derives a principal from a stored user.
func NewPrincipal(user *domain.User) *Principal {
	return &Principal{
		UserID:      user.ID,
		Subject:     user.Email,
		Name:        user.FullName(),
		Role:        user.Role,
		Authorities: user.Role.Authorities(),
	}
}

// HasRole reports whether the principal holds any of roles.
func (p *Principal) HasRole(roles ...domain.Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// HasAuthority reports whether the principal was granted authority.
func (p *Principal) HasAuthority(authority string) bool {
	for _, a := range p.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}

// WithPrincipal returns a child context carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// FromContext returns the principal attached to ctx, if any.
func FromContext(ctx context.Context) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	p, ok := ctx.Value(principalCtxKey{}).(*Principal)
	return p, ok && p != nil
}

// CurrentAuditor returns the id of the authenticated caller for audit columns.
func CurrentAuditor(ctx context.Context) (string, bool) {
	p, ok := FromContext(ctx)
	if !ok || p.UserID == "" {
		return "", false
	}
	return p.UserID, true
}

// PrincipalFromContext retrieves the authenticated entity of a Fiber request.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok && principal != nil
}

func attachPrincipal(c *fiber.Ctx, p *Principal) {
	c.Locals(principalKey, p)
	c.SetUserContext(WithPrincipal(c.UserContext(), p))
}
