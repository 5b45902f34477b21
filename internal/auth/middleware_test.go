package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/testutil"
	apperrors "github.com/spec-kit/auth-service/pkg/errorutil"
)

type countingRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *countingRecorder) RecordAuthentication(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

type authFixture struct {
	clock    *fakeClock
	tokens   *TokenCodec
	users    *testutil.MemoryUsers
	recorder *countingRecorder
	auth     *Authenticator
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	tokens := newTestCodec(t, clock)
	users := testutil.NewMemoryUsers(
		testutil.NewUser("alice@example.com", "password1", domain.RoleUser),
		testutil.NewUser("root@example.com", "password1", domain.RoleAdmin),
	)
	public, err := NewPathMatcher([]string{"/api/v1/auth/**", "/health/**"})
	require.NoError(t, err)
	rec := &countingRecorder{}
	return &authFixture{
		clock:    clock,
		tokens:   tokens,
		users:    users,
		recorder: rec,
		auth:     NewAuthenticator(tokens, NewIdentityResolver(users), public, zap.NewNop(), rec),
	}
}

func (f *authFixture) bearer(t *testing.T, subject string) string {
	t.Helper()
	token, err := f.tokens.IssueAccessToken(subject, nil)
	require.NoError(t, err)
	return BearerPrefix + token
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"Bearer   abc ", "abc", true},
		{"Bearer ", "", false},
		{"Bearer", "", false},
		{"bearer abc", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		token, ok := BearerToken(tc.header)
		assert.Equal(t, tc.ok, ok, tc.header)
		assert.Equal(t, tc.token, token, tc.header)
	}
}

func TestAuthenticator_Outcomes(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	valid := f.bearer(t, "alice@example.com")

	expired, err := f.tokens.Issue("alice@example.com", nil, time.Minute)
	require.NoError(t, err)
	ghost := f.bearer(t, "ghost@example.com")
	foreign, err := NewTokenCodec(otherSecret, time.Hour, 24*time.Hour)
	require.NoError(t, err)
	forged, err := foreign.IssueAccessToken("alice@example.com", nil)
	require.NoError(t, err)

	// move the clock so that only the one-minute token has expired
	f.clock.t = f.clock.t.Add(2 * time.Minute)

	cases := []struct {
		name    string
		req     Request
		outcome Outcome
		reached State
	}{
		{"public path skips token checks", Request{Path: "/api/v1/auth/authenticate", Authorization: valid}, OutcomePublicPath, StateUnauthenticated},
		{"no header", Request{Path: "/api/v1/users/me"}, OutcomeNoToken, StateUnauthenticated},
		{"wrong scheme", Request{Path: "/api/v1/users/me", Authorization: "Basic abc"}, OutcomeNoToken, StateUnauthenticated},
		{"garbage token", Request{Path: "/api/v1/users/me", Authorization: "Bearer nope"}, OutcomeInvalidToken, StateUnauthenticated},
		{"forged token", Request{Path: "/api/v1/users/me", Authorization: BearerPrefix + forged}, OutcomeInvalidToken, StateUnauthenticated},
		{"already attached", Request{Path: "/api/v1/users/me", Authorization: valid, Attached: true}, OutcomeAlreadyAuthenticated, StateTokenExtracted},
		{"unknown subject", Request{Path: "/api/v1/users/me", Authorization: ghost}, OutcomeUnknownIdentity, StateTokenExtracted},
		{"expired token", Request{Path: "/api/v1/users/me", Authorization: BearerPrefix + expired}, OutcomeTokenRejected, StateIdentityLoaded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := f.auth.Authenticate(ctx, tc.req)
			assert.False(t, res.Authenticated())
			assert.Nil(t, res.Principal)
			assert.Equal(t, StateUnauthenticated, res.State)
			assert.Equal(t, tc.outcome, res.Outcome)
			assert.Equal(t, tc.reached, res.Reached)
		})
	}

	res := f.auth.Authenticate(ctx, Request{Path: "/api/v1/users/me", Authorization: valid})
	require.True(t, res.Authenticated())
	assert.Equal(t, OutcomeAuthenticated, res.Outcome)
	assert.Equal(t, "alice@example.com", res.Principal.Subject)
	assert.Contains(t, res.Principal.Authorities, "ROLE_USER")

	assert.Len(t, f.recorder.outcomes, len(cases)+1)
}

func TestAuthenticator_LookupFailureIsAnonymous(t *testing.T) {
	f := newAuthFixture(t)
	header := f.bearer(t, "alice@example.com")
	f.users.Err = errors.New("connection refused")

	res := f.auth.Authenticate(context.Background(), Request{Path: "/api/v1/users/me", Authorization: header})
	assert.False(t, res.Authenticated())
	assert.Equal(t, OutcomeLookupFailed, res.Outcome)
}

func TestAuthenticator_DeletedUserTokenRejected(t *testing.T) {
	f := newAuthFixture(t)
	header := f.bearer(t, "alice@example.com")
	f.users.Delete("alice@example.com")

	res := f.auth.Authenticate(context.Background(), Request{Path: "/api/v1/users/me", Authorization: header})
	assert.Equal(t, OutcomeUnknownIdentity, res.Outcome)
}

// statusErrorHandler renders guard errors with their status.
func statusErrorHandler(c *fiber.Ctx, err error) error {
	return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: statusErrorHandler})
}

func newFilterApp(f *authFixture, extra ...fiber.Handler) *fiber.App {
	app := newTestApp()
	for _, h := range extra {
		app.Use(h)
	}
	app.Use(f.auth.Handle)
	app.Get("/api/v1/users/me", RequireAuthenticated(), func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		ctxPrincipal, _ := FromContext(c.UserContext())
		if ctxPrincipal != p {
			return c.SendStatus(http.StatusConflict)
		}
		return c.SendString(p.Subject)
	})
	app.Get("/api/v1/open", func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); ok {
			return c.SendString("authenticated")
		}
		return c.SendString("anonymous")
	})
	app.Post("/api/v1/auth/authenticate", func(c *fiber.Ctx) error {
		_, ok := PrincipalFromContext(c)
		if ok {
			return c.SendString("authenticated")
		}
		return c.SendString("anonymous")
	})
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path, authorization string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if authorization != "" {
		req.Header.Set(fiber.HeaderAuthorization, authorization)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestAuthenticator_Handle(t *testing.T) {
	f := newAuthFixture(t)
	app := newFilterApp(f)
	valid := f.bearer(t, "alice@example.com")

	status, body := doRequest(t, app, http.MethodGet, "/api/v1/users/me", valid)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice@example.com", body)

	status, _ = doRequest(t, app, http.MethodGet, "/api/v1/users/me", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = doRequest(t, app, http.MethodGet, "/api/v1/open", "Bearer garbage")
	assert.Equal(t, http.StatusOK, status, "a bad token never rejects by itself")
	assert.Equal(t, "anonymous", body)

	status, body = doRequest(t, app, http.MethodPost, "/api/v1/auth/authenticate", valid)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "anonymous", body, "public paths do not run token checks")
}

func TestAuthenticator_HandleExpiredToken(t *testing.T) {
	f := newAuthFixture(t)
	app := newFilterApp(f)
	header := f.bearer(t, "alice@example.com")
	f.clock.t = f.clock.t.Add(2 * time.Hour)

	status, body := doRequest(t, app, http.MethodGet, "/api/v1/open", header)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "anonymous", body)

	status, _ = doRequest(t, app, http.MethodGet, "/api/v1/users/me", header)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAuthenticator_HandleKeepsEarlierPrincipal(t *testing.T) {
	f := newAuthFixture(t)
	earlier := &Principal{UserID: "u-0", Subject: "root@example.com"}
	app := newFilterApp(f, func(c *fiber.Ctx) error {
		attachPrincipal(c, earlier)
		return c.Next()
	})

	// a second pass through the filter with another user's token changes nothing
	status, body := doRequest(t, app, http.MethodGet, "/api/v1/users/me", f.bearer(t, "alice@example.com"))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "root@example.com", body)
	assert.Equal(t, []string{string(OutcomeAlreadyAuthenticated)}, f.recorder.outcomes)
}

func TestAuthenticator_HandleTwiceIsIdempotent(t *testing.T) {
	f := newAuthFixture(t)
	app := newTestApp()
	app.Use(f.auth.Handle, f.auth.Handle)
	app.Get("/api/v1/users/me", func(c *fiber.Ctx) error {
		p, ok := PrincipalFromContext(c)
		if !ok {
			return c.SendStatus(http.StatusUnauthorized)
		}
		return c.SendString(p.Subject)
	})

	status, body := doRequest(t, app, http.MethodGet, "/api/v1/users/me", f.bearer(t, "alice@example.com"))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice@example.com", body)
	assert.Equal(t, []string{string(OutcomeAuthenticated), string(OutcomeAlreadyAuthenticated)}, f.recorder.outcomes)
}
