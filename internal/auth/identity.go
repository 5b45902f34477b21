package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/repository"
)

// ErrIdentityNotFound is returned when no user has the claimed subject.
var ErrIdentityNotFound = errors.New("identity not found")

// UserFinder is the lookup the resolver needs from storage.
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// IdentityResolver maps a subject to its stored user.
type IdentityResolver struct {
	users UserFinder
}

// NewIdentityResolver builds a resolver over users.
func NewIdentityResolver(users UserFinder) *IdentityResolver {
	return &IdentityResolver{users: users}
}

// Resolve looks the subject up by email. A missing row is ErrIdentityNotFound;
// any other storage failure is returned wrapped.
func (r *IdentityResolver) Resolve(ctx context.Context, subject string) (*domain.User, error) {
	if subject == "" {
		return nil, ErrIdentityNotFound
	}
	user, err := r.users.GetByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("resolve identity: %w", err)
	}
	return user, nil
}
