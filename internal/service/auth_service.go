package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/repository"
)

// MinPasswordLength applies to registration and password changes.
const MinPasswordLength = 8

var (
	// ErrAuthenticationFailed is the only error a caller sees for bad
	// credentials, whether the subject is unknown or the password is wrong.
	ErrAuthenticationFailed = errors.New("invalid email or password")
	// ErrTooManyAttempts is matched by *ThrottledError.
	ErrTooManyAttempts = errors.New("too many failed login attempts")
	ErrEmailTaken      = errors.New("email already registered")
	ErrInvalidInput    = errors.New("invalid input")
)

// ThrottledError is returned by Login while the subject is locked out.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("%s; retry after %s", ErrTooManyAttempts, e.RetryAfter)
}

// Is lets errors.Is match ErrTooManyAttempts.
func (e *ThrottledError) Is(target error) bool {
	return target == ErrTooManyAttempts
}

// AttemptLimiter tracks failed logins per subject.
type AttemptLimiter interface {
	Blocked(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// AuthRecorder receives login and refresh outcomes.
type AuthRecorder interface {
	RecordLogin(outcome string)
	RecordRefresh(outcome string)
}

// Credentials hashes and verifies passwords.
type Credentials interface {
	auth.PasswordHasher
	auth.CredentialVerifier
}

// AuthDependencies encapsulates the collaborators of AuthService.
type AuthDependencies struct {
	Users       repository.UserRepository
	Tokens      *auth.TokenCodec
	Credentials Credentials
	Limiter     AttemptLimiter
	Events      events.Dispatcher
	Recorder    AuthRecorder
	Logger      *zap.Logger
	// RotateRefreshTokens issues a new refresh token on every refresh
	// instead of echoing the presented one.
	RotateRefreshTokens bool
}

// AuthService coordinates registration, login and refresh flows.
type AuthService struct {
	users       repository.UserRepository
	resolver    *auth.IdentityResolver
	tokens      *auth.TokenCodec
	credentials Credentials
	limiter     AttemptLimiter
	events      events.Dispatcher
	recorder    AuthRecorder
	logger      *zap.Logger
	rotate      bool
	// decoyHash is compared against when the subject is unknown so both
	// login failure paths cost one bcrypt comparison.
	decoyHash string
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	Firstname string
	Lastname  string
	Email     string
	Password  string
	Role      string
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) (*AuthService, error) {
	if deps.Users == nil || deps.Tokens == nil || deps.Credentials == nil {
		return nil, errors.New("auth service requires users, tokens and credentials")
	}
	decoy, err := deps.Credentials.Hash("decoy-password-for-unknown-subjects")
	if err != nil {
		return nil, fmt.Errorf("hash decoy password: %w", err)
	}
	s := &AuthService{
		users:       deps.Users,
		resolver:    auth.NewIdentityResolver(deps.Users),
		tokens:      deps.Tokens,
		credentials: deps.Credentials,
		limiter:     deps.Limiter,
		events:      deps.Events,
		recorder:    deps.Recorder,
		logger:      deps.Logger,
		rotate:      deps.RotateRefreshTokens,
		decoyHash:   decoy,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	return s, nil
}

// Register stores a new user with a hashed password.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email := strings.TrimSpace(in.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := s.credentials.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Firstname:    strings.TrimSpace(in.Firstname),
		Lastname:     strings.TrimSpace(in.Lastname),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.publish(ctx, events.NewEvent(events.EventUserRegistered, user.Email, user.ID, nil))
	return user, nil
}

// Login verifies credentials and issues an access and refresh token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	email = strings.TrimSpace(email)

	if err := s.checkThrottle(ctx, email); err != nil {
		return nil, err
	}

	user, err := s.resolver.Resolve(ctx, email)
	switch {
	case errors.Is(err, auth.ErrIdentityNotFound):
		s.credentials.Verify(password, s.decoyHash)
		return nil, s.loginFailed(ctx, email)
	case err != nil:
		s.recorder.RecordLogin("error")
		return nil, err
	}

	if !s.credentials.Verify(password, user.PasswordHash) {
		return nil, s.loginFailed(ctx, email)
	}

	pair, err := s.issuePair(user)
	if err != nil {
		s.recorder.RecordLogin("error")
		return nil, err
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, email); err != nil {
			s.logger.Warn("reset login attempts", zap.Error(err))
		}
	}
	s.recorder.RecordLogin("succeeded")
	s.publish(ctx, events.NewEvent(events.EventLoginSucceeded, user.Email, user.ID, nil))
	return pair, nil
}

// Refresh exchanges the bearer refresh token in authorizationHeader for a new
// access token. ok is false, with a nil error, when the header is absent or
// malformed or the token does not validate; nothing is issued then. A non-nil
// error means storage failed.
func (s *AuthService) Refresh(ctx context.Context, authorizationHeader string) (pair *domain.TokenPair, ok bool, err error) {
	refreshToken, found := auth.BearerToken(authorizationHeader)
	if !found {
		s.recorder.RecordRefresh("declined")
		return nil, false, nil
	}

	subject, err := s.tokens.ExtractSubject(refreshToken)
	if err != nil {
		s.recorder.RecordRefresh("declined")
		return nil, false, nil
	}

	user, err := s.resolver.Resolve(ctx, subject)
	if err != nil {
		if errors.Is(err, auth.ErrIdentityNotFound) {
			s.recorder.RecordRefresh("declined")
			return nil, false, nil
		}
		s.recorder.RecordRefresh("error")
		return nil, false, err
	}

	if !s.tokens.IsValid(refreshToken, user.Email) {
		s.recorder.RecordRefresh("declined")
		return nil, false, nil
	}

	accessToken, err := s.tokens.IssueAccessToken(user.Email, accessClaims(user))
	if err != nil {
		s.recorder.RecordRefresh("error")
		return nil, false, err
	}
	pair = &domain.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}
	if s.rotate {
		if pair.RefreshToken, err = s.tokens.IssueRefreshToken(user.Email); err != nil {
			s.recorder.RecordRefresh("error")
			return nil, false, err
		}
	}

	s.recorder.RecordRefresh("succeeded")
	s.publish(ctx, events.NewEvent(events.EventTokenRefreshed, user.Email, user.ID,
		events.TokenRefreshedPayload{Rotated: s.rotate}))
	return pair, true, nil
}

// Tokens exposes the codec for middleware wiring.
func (s *AuthService) Tokens() *auth.TokenCodec {
	return s.tokens
}

// Resolver exposes the identity resolver for middleware wiring.
func (s *AuthService) Resolver() *auth.IdentityResolver {
	return s.resolver
}

func (s *AuthService) issuePair(user *domain.User) (*domain.TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(user.Email, accessClaims(user))
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(user.Email)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) checkThrottle(ctx context.Context, email string) error {
	if s.limiter == nil {
		return nil
	}
	blocked, err := s.limiter.Blocked(ctx, email)
	if err != nil {
		s.logger.Warn("login limiter unavailable", zap.Error(err))
		return nil
	}
	if !blocked {
		return nil
	}
	retryAfter, err := s.limiter.TTL(ctx, email)
	if err != nil || retryAfter < 0 {
		retryAfter = 0
	}
	s.recorder.RecordLogin("throttled")
	s.publish(ctx, events.NewEvent(events.EventLoginThrottled, email, "",
		events.LoginThrottledPayload{RetryAfterSeconds: int(retryAfter.Seconds())}))
	return &ThrottledError{RetryAfter: retryAfter}
}

func (s *AuthService) loginFailed(ctx context.Context, email string) error {
	if s.limiter != nil {
		if _, err := s.limiter.RecordFailure(ctx, email); err != nil {
			s.logger.Warn("record login failure", zap.Error(err))
		}
	}
	s.recorder.RecordLogin("failed")
	s.publish(ctx, events.NewEvent(events.EventLoginFailed, email, "", nil))
	return ErrAuthenticationFailed
}

func (s *AuthService) publish(ctx context.Context, e events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, e); err != nil {
		s.logger.Warn("publish auth event", zap.String("event", string(e.Type)), zap.Error(err))
	}
}

func accessClaims(user *domain.User) map[string]any {
	return map[string]any{"role": string(user.Role)}
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t\r\n") {
		return fmt.Errorf("%w: email is malformed", ErrInvalidInput)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}
	return nil
}

type nopRecorder struct{}

func (nopRecorder) RecordLogin(string)   {}
func (nopRecorder) RecordRefresh(string) {}
