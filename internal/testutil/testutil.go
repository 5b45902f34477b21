// Package testutil provides in-memory stand-ins and fixtures for auth tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/repository"
)

// SigningSecret is a base64 key long enough for HS256.
const SigningSecret = "c2VjcmV0LXNpZ25pbmcta2V5LWZvci10ZXN0cy1vbmx5LTMyYnl0ZXM="

// MemoryUsers is a goroutine safe repository.UserRepository keyed by id.
type MemoryUsers struct {
	mu    sync.RWMutex
	users map[string]domain.User
	// Err, when set, is returned by every call.
	Err error
}

// NewMemoryUsers seeds a store with users.
func NewMemoryUsers(users ...*domain.User) *MemoryUsers {
	m := &MemoryUsers{users: make(map[string]domain.User)}
	for _, u := range users {
		if err := m.Create(context.Background(), u); err != nil {
			panic(err)
		}
	}
	return m
}

func (m *MemoryUsers) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return fmt.Errorf("users_email_key: %w", repository.ErrDuplicate)
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryUsers) Update(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	user.UpdatedAt = time.Now().UTC()
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (m *MemoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, u := range m.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

// Delete removes the user with email, simulating an account deleted after
// tokens were issued.
func (m *MemoryUsers) Delete(email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.Email == email {
			delete(m.users, id)
		}
	}
}

// NewUser returns a user whose stored hash matches password. The hash uses
// the minimum bcrypt cost to keep tests fast.
func NewUser(email, password string, role domain.Role) *domain.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return &domain.User{
		Firstname:    "Test",
		Lastname:     "User",
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
}

// NewRedis starts a miniredis server bound to t and returns a client for it.
func NewRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}
