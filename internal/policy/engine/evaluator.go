package engine

import (
	"context"

	userdomain "rental-backoffice/backend/internal/user/domain"
)

// RoleEvaluator decides whether an authenticated identity holding role may call an operation
// that requires required.
type RoleEvaluator interface {
	Allow(ctx context.Context, role, required userdomain.Role) (bool, error)
}

// StaticEvaluator admits a request only when role equals required exactly.
type StaticEvaluator struct{}

func (StaticEvaluator) Allow(_ context.Context, role, required userdomain.Role) (bool, error) {
	return role.Valid() && role == required, nil
}
