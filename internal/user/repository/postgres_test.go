package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"rental-backoffice/backend/internal/user/domain"
)

var userColumns = []string{"id", "role", "username", "password_hash", "phone", "created_at"}

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestPostgres_GetByUsername(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(selectUserByUsername)).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u1", "landlord", "alice", "hash", "555-0100", created))

	u, err := repo.GetByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if u == nil || u.ID != "u1" || u.Role != domain.RoleLandlord || u.Phone != "555-0100" || !u.CreatedAt.Equal(created) {
		t.Errorf("GetByUsername: got %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgres_GetByUsername_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectUserByUsername)).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(userColumns))

	u, err := repo.GetByUsername(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if u != nil {
		t.Errorf("GetByUsername: want nil, got %+v", u)
	}
}

func TestPostgres_GetByID_DBError(t *testing.T) {
	repo, mock := newMockRepo(t)
	dbErr := errors.New("connection reset")
	mock.ExpectQuery(regexp.QuoteMeta(selectUserByID)).WithArgs("u1").WillReturnError(dbErr)

	if _, err := repo.GetByID(context.Background(), "u1"); !errors.Is(err, dbErr) {
		t.Errorf("GetByID: want %v, got %v", dbErr, err)
	}
}

func TestPostgres_Create(t *testing.T) {
	repo, mock := newMockRepo(t)
	u := &domain.User{ID: "u1", Role: domain.RoleTenant, Username: "bob", PasswordHash: "h", Phone: "555-0101", CreatedAt: time.Now().UTC()}
	mock.ExpectExec(regexp.QuoteMeta(insertUser)).
		WithArgs(u.ID, "tenant", u.Username, u.PasswordHash, u.Phone, u.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgres_Create_UniqueViolations(t *testing.T) {
	testCases := []struct {
		constraint string
		want       error
	}{
		{usernameConstraint, ErrUsernameTaken},
		{phoneConstraint, ErrPhoneTaken},
	}
	for _, tc := range testCases {
		t.Run(tc.constraint, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			mock.ExpectExec(regexp.QuoteMeta(insertUser)).
				WillReturnError(&pgconn.PgError{Code: uniqueViolation, ConstraintName: tc.constraint})

			u := &domain.User{ID: "u1", Role: domain.RoleTenant, Username: "bob", PasswordHash: "h", Phone: "p"}
			if err := repo.Create(context.Background(), u); !errors.Is(err, tc.want) {
				t.Errorf("Create: want %v, got %v", tc.want, err)
			}
		})
	}
}

func TestPostgres_UpdatePasswordHash(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta(updatePasswordHash)).
		WithArgs("u1", "new-hash").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(updatePasswordHash)).
		WithArgs("missing", "new-hash").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.UpdatePasswordHash(context.Background(), "u1", "new-hash"); err != nil {
		t.Fatalf("UpdatePasswordHash: %v", err)
	}
	if err := repo.UpdatePasswordHash(context.Background(), "missing", "new-hash"); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdatePasswordHash missing user: want ErrNotFound, got %v", err)
	}
}
