package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/auth-service/internal/service"
	apperrors "github.com/spec-kit/auth-service/pkg/errorutil"
)

func TestMapServiceError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{service.ErrAuthenticationFailed, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{&service.ThrottledError{RetryAfter: 30 * time.Second}, http.StatusTooManyRequests, "TOO_MANY_REQUESTS"},
		{service.ErrEmailTaken, http.StatusConflict, "CONFLICT"},
		{fmt.Errorf("%w: email is required", service.ErrInvalidInput), http.StatusBadRequest, "VALIDATION_FAILED"},
		{service.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHORIZED"},
		{service.ErrPasswordMismatch, http.StatusBadRequest, "VALIDATION_FAILED"},
		{service.ErrConfirmationMismatch, http.StatusBadRequest, "VALIDATION_FAILED"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		var mapped *apperrors.DomainError
		app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
			mapped = apperrors.ToDomainError(err)
			return c.SendStatus(mapped.HTTPStatus)
		}})
		app.Get("/", func(c *fiber.Ctx) error { return mapServiceError(c, tc.err) })

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		resp.Body.Close()

		require.NotNil(t, mapped, tc.err.Error())
		assert.Equal(t, tc.status, resp.StatusCode, tc.err.Error())
		assert.Equal(t, tc.code, mapped.Code, tc.err.Error())

		var throttled *service.ThrottledError
		if errors.As(tc.err, &throttled) {
			assert.Equal(t, "30", resp.Header.Get(fiber.HeaderRetryAfter))
		}
	}
}
