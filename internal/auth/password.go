package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned when hashing an empty password.
var ErrEmptyPassword = errors.New("password must not be empty")

// CredentialVerifier checks a submitted password against a stored hash.
type CredentialVerifier interface {
	Verify(plaintext, storedHash string) bool
}

// PasswordHasher produces the stored form of a password.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
}

// Bcrypt hashes and verifies passwords with a fixed cost.
type Bcrypt struct {
	cost int
}

// NewBcrypt clamps cost into the range bcrypt accepts.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

// Hash implements PasswordHasher.
func (b *Bcrypt) Hash(plaintext string) (string, error) {
	return HashPassword(plaintext, b.cost)
}

// Verify implements CredentialVerifier. Any mismatch or malformed hash is false.
func (b *Bcrypt) Verify(plaintext, storedHash string) bool {
	return ComparePassword(storedHash, plaintext) == nil
}

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
