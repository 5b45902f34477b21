package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/service"
	apperrors "github.com/spec-kit/auth-service/pkg/errorutil"
)

// mapServiceError turns service sentinels into DomainErrors. Unknown errors
// pass through and render as 500.
func mapServiceError(c *fiber.Ctx, err error) error {
	var throttled *service.ThrottledError
	switch {
	case errors.Is(err, service.ErrAuthenticationFailed):
		return apperrors.NewInvalidCredentials()
	case errors.As(err, &throttled):
		if secs := int(throttled.RetryAfter.Seconds()); secs > 0 {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(secs))
		}
		return apperrors.NewTooManyRequests("too many failed login attempts")
	case errors.Is(err, service.ErrEmailTaken):
		return apperrors.NewConflict("email already registered", nil)
	case errors.Is(err, service.ErrInvalidInput):
		return apperrors.NewValidationError(err.Error(), nil)
	case errors.Is(err, service.ErrUnauthenticated):
		return apperrors.NewUnauthorized("authentication required")
	case errors.Is(err, service.ErrPasswordMismatch):
		return apperrors.NewValidationError("current password is incorrect", map[string]any{"field": "current_password"})
	case errors.Is(err, service.ErrConfirmationMismatch):
		return apperrors.NewValidationError("new password and confirmation do not match", map[string]any{"field": "confirmation_password"})
	}
	return err
}
