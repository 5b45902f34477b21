package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSigningKeyBytes is the shortest decoded HMAC key accepted for HS256.
const MinSigningKeyBytes = 32

var (
	// ErrInvalidToken covers malformed, forged and unsigned tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidSigningSecret is a startup configuration failure.
	ErrInvalidSigningSecret = errors.New("invalid signing secret")
)

// registered claim names the codec owns; extra claims cannot override them.
var reservedClaims = map[string]struct{}{
	"sub": {}, "iat": {}, "exp": {}, "jti": {},
}

// Claims is the decoded payload of a token.
type Claims struct {
	Subject   string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Extra     map[string]any
}

// TokenCodec issues and verifies HS256 tokens. It is safe for concurrent use;
// the key and TTLs are read-only after construction.
type TokenCodec struct {
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// CodecOption customizes a TokenCodec.
type CodecOption func(*TokenCodec)

// WithClock overrides the time source used for issuing and validity checks.
func WithClock(now func() time.Time) CodecOption {
	return func(tc *TokenCodec) {
		if now != nil {
			tc.now = now
		}
	}
}

// NewTokenCodec decodes the base64 secret and builds a codec.
func NewTokenCodec(secret string, accessTTL, refreshTTL time.Duration, opts ...CodecOption) (*TokenCodec, error) {
	key, err := DecodeSigningSecret(secret)
	if err != nil {
		return nil, err
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, fmt.Errorf("%w: token lifetimes must be positive", ErrInvalidSigningSecret)
	}
	tc := &TokenCodec{key: key, accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now}
	for _, opt := range opts {
		opt(tc)
	}
	return tc, nil
}

// DecodeSigningSecret turns the configured base64 secret into an HMAC key.
func DecodeSigningSecret(secret string) ([]byte, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: empty secret", ErrInvalidSigningSecret)
	}
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSigningSecret, err)
	}
	if len(key) < MinSigningKeyBytes {
		return nil, fmt.Errorf("%w: key is %d bytes, need at least %d", ErrInvalidSigningSecret, len(key), MinSigningKeyBytes)
	}
	return key, nil
}

// AccessTTL returns the access token lifetime.
func (tc *TokenCodec) AccessTTL() time.Duration { return tc.accessTTL }

// RefreshTTL returns the refresh token lifetime.
func (tc *TokenCodec) RefreshTTL() time.Duration { return tc.refreshTTL }

// IssueAccessToken signs a short lived token for subject.
func (tc *TokenCodec) IssueAccessToken(subject string, extra map[string]any) (string, error) {
	return tc.Issue(subject, extra, tc.accessTTL)
}

// IssueRefreshToken signs a long lived token for subject.
func (tc *TokenCodec) IssueRefreshToken(subject string) (string, error) {
	return tc.Issue(subject, nil, tc.refreshTTL)
}

// Issue signs a token with iat=now and exp=now+ttl. Extra claims are copied
// into the payload except for the registered names the codec sets itself.
func (tc *TokenCodec) Issue(subject string, extra map[string]any, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("subject is required")
	}
	if ttl <= 0 {
		return "", errors.New("token lifetime must be positive")
	}

	now := tc.now()
	claims := jwt.MapClaims{}
	for k, v := range extra {
		if _, reserved := reservedClaims[k]; reserved {
			continue
		}
		claims[k] = v
	}
	claims["sub"] = subject
	claims["jti"] = uuid.NewString()
	claims["iat"] = jwt.NewNumericDate(now)
	claims["exp"] = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tc.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseClaims verifies the signature and decodes the payload. Only the exact
// text produced by Issue is accepted. Time based claims are not enforced
// here; IsValid decides expiry.
func (tc *TokenCodec) ParseClaims(tokenStr string) (*Claims, error) {
	parsed, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return tc.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
		// reject non-canonical base64url, where unused trailing bits differ
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return decodeClaims(mapClaims)
}

// ExtractSubject returns the sub claim of a correctly signed token.
func (tc *TokenCodec) ExtractSubject(tokenStr string) (string, error) {
	claims, err := tc.ParseClaims(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// IsValid reports whether the token is correctly signed, belongs to
// expectedSubject (exact match) and the current time is strictly before exp.
func (tc *TokenCodec) IsValid(tokenStr, expectedSubject string) bool {
	claims, err := tc.ParseClaims(tokenStr)
	if err != nil {
		return false
	}
	if claims.Subject != expectedSubject {
		return false
	}
	return tc.now().Before(claims.ExpiresAt)
}

func decodeClaims(mc jwt.MapClaims) (*Claims, error) {
	subject, err := mc.GetSubject()
	if err != nil || subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: missing expiry", ErrInvalidToken)
	}
	iat, err := mc.GetIssuedAt()
	if err != nil {
		return nil, fmt.Errorf("%w: bad issued-at", ErrInvalidToken)
	}

	claims := &Claims{Subject: subject, ExpiresAt: exp.Time}
	if iat != nil {
		claims.IssuedAt = iat.Time
	}
	if id, ok := mc["jti"].(string); ok {
		claims.ID = id
	}
	for k, v := range mc {
		if _, reserved := reservedClaims[k]; reserved {
			continue
		}
		if claims.Extra == nil {
			claims.Extra = make(map[string]any)
		}
		claims.Extra[k] = v
	}
	return claims, nil
}
