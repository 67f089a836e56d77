// seed inserts development users for local testing.
// Idempotent: users that already exist are left untouched. Every dev user logs in with "correct-pw".
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rental-backoffice/backend/internal/config"
	"rental-backoffice/backend/internal/db"
	"rental-backoffice/backend/internal/logging"
	"rental-backoffice/backend/internal/security"
	userdomain "rental-backoffice/backend/internal/user/domain"
	userrepo "rental-backoffice/backend/internal/user/repository"
)

const devPassword = "correct-pw"

var devUsers = []struct {
	username string
	role     userdomain.Role
	phone    string
}{
	{"alice", userdomain.RoleLandlord, "+15550000001"},
	{"bob", userdomain.RoleTenant, "+15550000002"},
}

func main() {
	log, err := logging.New("info", "console", "seed")
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	dsn, err := config.LoadDatabaseURL()
	if err != nil {
		log.Fatal("create a .env or export DATABASE_URL", zap.Error(err))
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, dsn)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer conn.Close()

	users := userrepo.NewPostgresRepository(conn)
	hasher := security.NewHasher(security.DefaultBcryptCost)
	passwordHash, err := hasher.Hash(devPassword)
	if err != nil {
		log.Fatal("hash password", zap.Error(err))
	}

	for _, du := range devUsers {
		existing, err := users.GetByUsername(ctx, du.username)
		if err != nil {
			log.Fatal("seed check", zap.String("username", du.username), zap.Error(err))
		}
		if existing != nil {
			log.Info("user already exists, skipping", zap.String("username", du.username))
			continue
		}
		if err := users.Create(ctx, &userdomain.User{
			ID:           uuid.NewString(),
			Role:         du.role,
			Username:     du.username,
			PasswordHash: passwordHash,
			Phone:        du.phone,
			CreatedAt:    time.Now().UTC(),
		}); err != nil {
			log.Fatal("create user", zap.String("username", du.username), zap.Error(err))
		}
		log.Info("created user", zap.String("username", du.username), zap.String("role", string(du.role)))
	}
	log.Info("seed complete", zap.Int("users", len(devUsers)))
}
