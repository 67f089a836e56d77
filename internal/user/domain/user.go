package domain

import (
	"errors"
	"strings"
	"time"
)

// User is an account that can sign in to the back-office.
type User struct {
	ID           string
	Role         Role
	Username     string
	PasswordHash string
	Phone        string
	CreatedAt    time.Time
}

// Role is the single role a user holds.
type Role string

const (
	RoleLandlord Role = "landlord"
	RoleTenant   Role = "tenant"
)

// ParseRole returns the Role for s (case-insensitive) and whether it is known.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleLandlord || r == RoleTenant
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return errors.New("username is required")
	}
	if !u.Role.Valid() {
		return errors.New("role must be landlord or tenant")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	if strings.TrimSpace(u.Phone) == "" {
		return errors.New("phone is required")
	}
	return nil
}
