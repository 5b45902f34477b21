package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/service"
)

// maxPasswordLength is the longest input bcrypt hashes without truncation.
const maxPasswordLength = 72

// RegisterRequest payload for new users.
type RegisterRequest struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

// Validate checks the payload shape. Uniqueness and role parsing happen in
// the service.
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Firstname, validation.Length(0, 100)),
		validation.Field(&r.Lastname, validation.Length(0, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(service.MinPasswordLength, maxPasswordLength)),
	)
}

// AuthenticationRequest payload for login.
type AuthenticationRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate only requires both fields. Anything else is reported as invalid
// credentials so the response never hints at which field was wrong.
func (r AuthenticationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// AuthenticationResponse carries a token pair.
type AuthenticationResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ChangePasswordRequest payload for PATCH /api/v1/users/password.
type ChangePasswordRequest struct {
	CurrentPassword      string `json:"current_password"`
	NewPassword          string `json:"new_password"`
	ConfirmationPassword string `json:"confirmation_password"`
}

func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(service.MinPasswordLength, maxPasswordLength)),
		validation.Field(&r.ConfirmationPassword, validation.Required),
	)
}

// ValidationDetails flattens validation errors into per-field messages.
func ValidationDetails(err error) map[string]any {
	fieldErrs, ok := err.(validation.Errors)
	if !ok {
		return nil
	}
	details := make(map[string]any, len(fieldErrs))
	for field, fieldErr := range fieldErrs {
		details[field] = fieldErr.Error()
	}
	return details
}

// UserResponse is the public view of a stored user.
type UserResponse struct {
	ID        string      `json:"id"`
	Firstname string      `json:"firstname"`
	Lastname  string      `json:"lastname"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// PrincipalResponse describes the caller of the current request.
type PrincipalResponse struct {
	UserID      string      `json:"user_id"`
	Subject     string      `json:"subject"`
	Name        string      `json:"name"`
	Role        domain.Role `json:"role"`
	Authorities []string    `json:"authorities"`
}

// NewAuthenticationResponse maps a token pair.
func NewAuthenticationResponse(pair *domain.TokenPair) AuthenticationResponse {
	return AuthenticationResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}
}

// NewUserResponse maps a stored user, dropping the password hash.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Firstname: u.Firstname,
		Lastname:  u.Lastname,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
