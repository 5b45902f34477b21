package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/domain"
)

// BearerPrefix is the only accepted Authorization scheme prefix, used by both
// the request filter and the refresh endpoint.
const BearerPrefix = "Bearer "

// State is the progress of one request through the authenticator.
type State int

const (
	StateUnauthenticated State = iota
	StateTokenExtracted
	StateIdentityLoaded
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateTokenExtracted:
		return "token_extracted"
	case StateIdentityLoaded:
		return "identity_loaded"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Outcome names the decision point a request stopped at.
type Outcome string

const (
	OutcomePublicPath           Outcome = "public_path"
	OutcomeNoToken              Outcome = "no_token"
	OutcomeInvalidToken         Outcome = "invalid_token"
	// OutcomeAlreadyAuthenticated leaves the earlier principal in place.
	OutcomeAlreadyAuthenticated Outcome = "already_authenticated"
	OutcomeUnknownIdentity      Outcome = "unknown_identity"
	OutcomeLookupFailed         Outcome = "lookup_failed"
	OutcomeTokenRejected        Outcome = "token_rejected"
	OutcomeAuthenticated        Outcome = "authenticated"
)

// Result is the total outcome of authenticating one request. State is the
// terminal state, Reached the furthest state passed before the decision.
// Principal is set only when State is StateAuthenticated.
type Result struct {
	State     State
	Reached   State
	Outcome   Outcome
	Principal *Principal
}

// Authenticated reports whether an identity was established.
func (r Result) Authenticated() bool {
	return r.State == StateAuthenticated && r.Principal != nil
}

// Request is the part of an inbound request the authenticator reads.
type Request struct {
	Path          string
	Authorization string
	// Attached is true when an identity is already bound to the request.
	Attached bool
}

// IdentityLookup resolves a subject to a stored user.
type IdentityLookup interface {
	Resolve(ctx context.Context, subject string) (*domain.User, error)
}

// OutcomeRecorder receives one call per authenticated request.
type OutcomeRecorder interface {
	RecordAuthentication(outcome string)
}

// Authenticator validates bearer tokens and loads principals. It never
// rejects a request; downstream guards act on the absence of a principal.
type Authenticator struct {
	tokens     *TokenCodec
	identities IdentityLookup
	public     *PathMatcher
	logger     *zap.Logger
	recorder   OutcomeRecorder
}

// NewAuthenticator constructs the middleware. recorder may be nil.
func NewAuthenticator(tokens *TokenCodec, identities IdentityLookup, public *PathMatcher, logger *zap.Logger, recorder OutcomeRecorder) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{tokens: tokens, identities: identities, public: public, logger: logger, recorder: recorder}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, BearerPrefix)
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// Authenticate runs the decision steps for one request. It is defined for
// every input and carries no state between calls.
func (a *Authenticator) Authenticate(ctx context.Context, req Request) Result {
	if a.public.Match(req.Path) {
		return a.anonymous(StateUnauthenticated, OutcomePublicPath)
	}

	token, ok := BearerToken(req.Authorization)
	if !ok {
		return a.anonymous(StateUnauthenticated, OutcomeNoToken)
	}

	subject, err := a.tokens.ExtractSubject(token)
	if err != nil {
		return a.anonymous(StateUnauthenticated, OutcomeInvalidToken)
	}
	// A request is authenticated once; an identity bound earlier in the chain wins.
	if req.Attached {
		return a.anonymous(StateTokenExtracted, OutcomeAlreadyAuthenticated)
	}

	user, err := a.identities.Resolve(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return a.anonymous(StateTokenExtracted, OutcomeUnknownIdentity)
		}
		a.logger.Warn("identity lookup failed", zap.Error(err))
		return a.anonymous(StateTokenExtracted, OutcomeLookupFailed)
	}

	if !a.tokens.IsValid(token, user.Email) {
		return a.anonymous(StateIdentityLoaded, OutcomeTokenRejected)
	}

	return a.finish(Result{
		State:     StateAuthenticated,
		Reached:   StateAuthenticated,
		Outcome:   OutcomeAuthenticated,
		Principal: NewPrincipal(user),
	})
}

// Handle is the Fiber middleware. It attaches the principal at most once per
// request and always continues the chain.
func (a *Authenticator) Handle(c *fiber.Ctx) error {
	_, attached := PrincipalFromContext(c)
	res := a.Authenticate(c.UserContext(), Request{
		Path:          c.Path(),
		Authorization: c.Get(fiber.HeaderAuthorization),
		Attached:      attached,
	})
	if res.Authenticated() {
		attachPrincipal(c, res.Principal)
	}
	return c.Next()
}

func (a *Authenticator) anonymous(reached State, outcome Outcome) Result {
	return a.finish(Result{State: StateUnauthenticated, Reached: reached, Outcome: outcome})
}

func (a *Authenticator) finish(res Result) Result {
	if a.recorder != nil {
		a.recorder.RecordAuthentication(string(res.Outcome))
	}
	a.logger.Debug("request authentication",
		zap.String("outcome", string(res.Outcome)),
		zap.Stringer("reached", res.Reached),
	)
	return res
}
