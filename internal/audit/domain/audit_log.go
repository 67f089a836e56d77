package domain

import "time"

// Actions recorded by the auth session lifecycle.
const (
	ActionLoginSuccess    = "login_success"
	ActionLoginFailure    = "login_failure"
	ActionRefreshSuccess  = "refresh_success"
	ActionRefreshRejected = "refresh_rejected"
	ActionLogout          = "logout"
	ActionPasswordChanged = "password_changed"
	ActionUserCreated     = "user_created"
)

// AuditLog represents an audit event. UserID is empty when the actor is unknown
// (for example a login attempt for a username that does not exist).
type AuditLog struct {
	ID        string
	UserID    string
	Action    string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
