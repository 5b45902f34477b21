package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/auth-service/internal/domain"
)

var (
	// ErrNotFound is returned when no row matches.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned on a unique constraint violation.
	ErrDuplicate = errors.New("duplicate record")
)

// DBTX is the subset of pgxpool.Pool the repositories use.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AuditorFunc returns the id of the caller performing a write, if any.
type AuditorFunc func(ctx context.Context) (string, bool)

// UserRepository defines persistence access for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type userRepository struct {
	db      DBTX
	auditor AuditorFunc
}

// NewUserRepository returns a Postgres-backed implementation. auditor fills
// created_by and updated_by; nil leaves them empty.
func NewUserRepository(db DBTX, auditor AuditorFunc) UserRepository {
	if auditor == nil {
		auditor = func(context.Context) (string, bool) { return "", false }
	}
	return &userRepository{db: db, auditor: auditor}
}

const userColumns = `id, firstname, lastname, email, password_hash, role, created_at, updated_at, created_by, updated_by`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (firstname, lastname, email, password_hash, role, created_by, updated_by)
        VALUES ($1, $2, $3, $4, $5, $6, $6)
        RETURNING id, created_at, updated_at`

	createdBy := r.auditorID(ctx)
	err := r.db.QueryRow(ctx, query,
		user.Firstname,
		user.Lastname,
		user.Email,
		user.PasswordHash,
		user.Role,
		createdBy,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	user.CreatedBy = createdBy
	user.UpdatedBy = createdBy
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET firstname=$1, lastname=$2, email=$3, password_hash=$4, role=$5,
            updated_by=$6, updated_at=NOW()
        WHERE id=$7`

	updatedBy := r.auditorID(ctx)
	cmd, err := r.db.Exec(ctx, query,
		user.Firstname,
		user.Lastname,
		user.Email,
		user.PasswordHash,
		user.Role,
		updatedBy,
		user.ID,
	)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	user.UpdatedBy = updatedBy
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return r.scanOne(r.db.QueryRow(ctx, query, email))
}

func (r *userRepository) scanOne(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Firstname,
		&user.Lastname,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.CreatedBy,
		&user.UpdatedBy,
	); err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (r *userRepository) auditorID(ctx context.Context) *string {
	id, ok := r.auditor(ctx)
	if !ok {
		return nil
	}
	return &id
}

func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
