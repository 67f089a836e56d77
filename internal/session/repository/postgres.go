package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"rental-backoffice/backend/internal/session/domain"
)

const (
	insertSession        = `INSERT INTO sessions (id, user_id, token_value, created_at, expires_at) VALUES ($1, $2, $3, $4, $5)`
	selectSessionByToken = `SELECT id, user_id, token_value, created_at, expires_at FROM sessions WHERE token_value = $1`
	deleteSessionByToken = `DELETE FROM sessions WHERE token_value = $1`
	consumeSession       = `DELETE FROM sessions WHERE token_value = $1 AND user_id = $2 RETURNING id, user_id, token_value, created_at, expires_at`
	deleteUserSessions   = `DELETE FROM sessions WHERE user_id = $1`
	deleteExpired        = `DELETE FROM sessions WHERE expires_at <= $1`
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, insertSession, s.ID, s.UserID, s.TokenValue, s.CreatedAt, s.ExpiresAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateToken
	}
	return err
}

// GetByToken returns the session for token, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	return scanSession(r.db.QueryRowContext(ctx, selectSessionByToken, token))
}

func (r *PostgresRepository) DeleteByToken(ctx context.Context, token string) (bool, error) {
	n, err := r.exec(ctx, deleteSessionByToken, token)
	return n > 0, err
}

// ConsumeByToken deletes the matching row with DELETE ... RETURNING. Postgres row locking
// guarantees only one concurrent statement sees the row.
func (r *PostgresRepository) ConsumeByToken(ctx context.Context, token, userID string) (*domain.Session, error) {
	return scanSession(r.db.QueryRowContext(ctx, consumeSession, token, userID))
}

func (r *PostgresRepository) DeleteAllByUser(ctx context.Context, userID string) (int64, error) {
	return r.exec(ctx, deleteUserSessions, userID)
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return r.exec(ctx, deleteExpired, before)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	var s domain.Session
	if err := row.Scan(&s.ID, &s.UserID, &s.TokenValue, &s.CreatedAt, &s.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
