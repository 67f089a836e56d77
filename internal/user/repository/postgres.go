package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"rental-backoffice/backend/internal/user/domain"
)

const (
	uniqueViolation = "23505"

	usernameConstraint = "users_username_key"
	phoneConstraint    = "users_phone_key"
)

const (
	selectUserByID       = `SELECT id, role, username, password_hash, phone, created_at FROM users WHERE id = $1`
	selectUserByUsername = `SELECT id, role, username, password_hash, phone, created_at FROM users WHERE username = $1`
	insertUser           = `INSERT INTO users (id, role, username, password_hash, phone, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	updatePasswordHash   = `UPDATE users SET password_hash = $2 WHERE id = $1`
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, selectUserByID, id)
}

// GetByUsername returns the user with the given username, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, selectUserByUsername, username)
}

// Create persists the user. The user must have ID set; it is not assigned by this method.
// Returns ErrUsernameTaken or ErrPhoneTaken on a unique constraint violation.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, insertUser, u.ID, string(u.Role), u.Username, u.PasswordHash, u.Phone, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			switch pgErr.ConstraintName {
			case usernameConstraint:
				return ErrUsernameTaken
			case phoneConstraint:
				return ErrPhoneTaken
			}
		}
		return err
	}
	return nil
}

// UpdatePasswordHash replaces the stored password hash. Returns ErrNotFound if no user has id.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, updatePasswordHash, id, passwordHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &role, &u.Username, &u.PasswordHash, &u.Phone, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}
