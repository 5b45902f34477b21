package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/auth-service/internal/domain"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(r.values))
	}
	for i, d := range dest {
		switch d := d.(type) {
		case *string:
			*d = r.values[i].(string)
		case *domain.Role:
			*d = r.values[i].(domain.Role)
		case *time.Time:
			*d = r.values[i].(time.Time)
		case **string:
			*d, _ = r.values[i].(*string)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

type fakeDB struct {
	row     fakeRow
	tag     pgconn.CommandTag
	execErr error

	lastSQL  string
	lastArgs []any
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.lastSQL, f.lastArgs = sql, args
	return f.tag, f.execErr
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.lastSQL, f.lastArgs = sql, args
	return f.row
}

func auditorOf(id string) AuditorFunc {
	return func(context.Context) (string, bool) { return id, id != "" }
}

func TestUserRepository_GetByEmail(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	db := &fakeDB{row: fakeRow{values: []any{
		"u-1", "Alice", "Liddell", "alice@example.com", "$2a$hash", domain.RoleAdmin, now, now, (*string)(nil), (*string)(nil),
	}}}
	repo := NewUserRepository(db, nil)

	user, err := repo.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, domain.RoleAdmin, user.Role)
	assert.Equal(t, now, user.CreatedAt)
	assert.Nil(t, user.CreatedBy)
	assert.Equal(t, []any{"alice@example.com"}, db.lastArgs)
	assert.Contains(t, db.lastSQL, "WHERE email=$1")
}

func TestUserRepository_NotFound(t *testing.T) {
	repo := NewUserRepository(&fakeDB{row: fakeRow{err: pgx.ErrNoRows}}, nil)

	_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_CreateRecordsAuditor(t *testing.T) {
	now := time.Now().UTC()
	db := &fakeDB{row: fakeRow{values: []any{"u-2", now, now}}}
	repo := NewUserRepository(db, auditorOf("admin-1"))

	user := &domain.User{Firstname: "Bob", Email: "bob@example.com", PasswordHash: "$2a$hash", Role: domain.RoleUser}
	require.NoError(t, repo.Create(context.Background(), user))

	assert.Equal(t, "u-2", user.ID)
	require.NotNil(t, user.CreatedBy)
	assert.Equal(t, "admin-1", *user.CreatedBy)
	createdBy, ok := db.lastArgs[5].(*string)
	require.True(t, ok)
	assert.Equal(t, "admin-1", *createdBy)
}

func TestUserRepository_CreateAnonymousLeavesAuditEmpty(t *testing.T) {
	now := time.Now().UTC()
	db := &fakeDB{row: fakeRow{values: []any{"u-3", now, now}}}
	repo := NewUserRepository(db, auditorOf(""))

	user := &domain.User{Email: "carol@example.com", PasswordHash: "$2a$hash", Role: domain.RoleUser}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.Nil(t, user.CreatedBy)
	assert.Nil(t, db.lastArgs[5].(*string))
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	dup := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"}
	repo := NewUserRepository(&fakeDB{row: fakeRow{err: dup}}, nil)

	err := repo.Create(context.Background(), &domain.User{Email: "dup@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUserRepository_Update(t *testing.T) {
	t.Run("updates and audits", func(t *testing.T) {
		db := &fakeDB{tag: pgconn.NewCommandTag("UPDATE 1")}
		repo := NewUserRepository(db, auditorOf("u-1"))

		user := &domain.User{ID: "u-1", Email: "alice@example.com", PasswordHash: "$2a$new"}
		require.NoError(t, repo.Update(context.Background(), user))
		require.NotNil(t, user.UpdatedBy)
		assert.Equal(t, "u-1", *user.UpdatedBy)
		assert.Equal(t, "u-1", db.lastArgs[6])
	})

	t.Run("missing row", func(t *testing.T) {
		repo := NewUserRepository(&fakeDB{tag: pgconn.NewCommandTag("UPDATE 0")}, nil)
		err := repo.Update(context.Background(), &domain.User{ID: "ghost"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("driver error passes through", func(t *testing.T) {
		boom := errors.New("connection reset")
		repo := NewUserRepository(&fakeDB{execErr: boom}, nil)
		err := repo.Update(context.Background(), &domain.User{ID: "u-1"})
		assert.ErrorIs(t, err, boom)
	})
}
