package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/repository"
)

var (
	ErrUnauthenticated      = errors.New("authentication required")
	ErrPasswordMismatch     = errors.New("current password is incorrect")
	ErrConfirmationMismatch = errors.New("new password and confirmation do not match")
)

// ChangePasswordInput carries a password change request.
type ChangePasswordInput struct {
	CurrentPassword      string
	NewPassword          string
	ConfirmationPassword string
}

// UserService serves the authenticated caller's own account.
type UserService struct {
	users       repository.UserRepository
	credentials Credentials
	events      events.Dispatcher
	logger      *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository, credentials Credentials, dispatcher events.Dispatcher, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, credentials: credentials, events: dispatcher, logger: logger}
}

// Current returns the stored user behind the principal in ctx.
func (s *UserService) Current(ctx context.Context) (*domain.User, error) {
	principal, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	user, err := s.users.GetByID(ctx, principal.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	return user, err
}

// ChangePassword re-hashes the caller's password after checking the current
// one. Tokens already issued stay valid until they expire.
func (s *UserService) ChangePassword(ctx context.Context, in ChangePasswordInput) error {
	user, err := s.Current(ctx)
	if err != nil {
		return err
	}
	if !s.credentials.Verify(in.CurrentPassword, user.PasswordHash) {
		return ErrPasswordMismatch
	}
	if in.NewPassword != in.ConfirmationPassword {
		return ErrConfirmationMismatch
	}
	if err := validatePassword(in.NewPassword); err != nil {
		return err
	}

	hash, err := s.credentials.Hash(in.NewPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	if s.events != nil {
		if err := s.events.Publish(ctx, events.NewEvent(events.EventPasswordChanged, user.Email, user.ID, nil)); err != nil {
			s.logger.Warn("publish auth event", zap.String("event", string(events.EventPasswordChanged)), zap.Error(err))
		}
	}
	return nil
}
