package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"rental-backoffice/backend/internal/audit"
	auditdomain "rental-backoffice/backend/internal/audit/domain"
	"rental-backoffice/backend/internal/metrics"
	"rental-backoffice/backend/internal/security"
	sessiondomain "rental-backoffice/backend/internal/session/domain"
	"rental-backoffice/backend/internal/telemetry"
	userdomain "rental-backoffice/backend/internal/user/domain"
	userrepo "rental-backoffice/backend/internal/user/repository"
)

// Sentinel errors for the auth service; the HTTP handler maps them to status codes.
var (
	ErrInvalidCredentials        = errors.New("invalid credentials")
	ErrRefreshInvalid            = errors.New("invalid or expired refresh token")
	ErrSessionPersistenceFailed  = errors.New("session could not be persisted")
	ErrSessionInvalidationFailed = errors.New("session could not be invalidated")
	ErrStoreFailure              = errors.New("store failure")
	ErrUserExists                = errors.New("username or phone already registered")
	ErrUserNotFound              = errors.New("user not found")
	ErrInvalidInput              = errors.New("invalid input")
)

const minPasswordLength = 8

// AuthResult holds the outcome of Authenticate or Refresh. User is set by Authenticate only.
type AuthResult struct {
	User             *userdomain.User
	UserID           string
	Role             userdomain.Role
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByUsername(ctx context.Context, username string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	Create(ctx context.Context, s *sessiondomain.Session) error
	DeleteByToken(ctx context.Context, token string) (bool, error)
	ConsumeByToken(ctx context.Context, token, userID string) (*sessiondomain.Session, error)
	DeleteAllByUser(ctx context.Context, userID string) (int64, error)
}

// Option configures optional AuthService collaborators.
type Option func(*AuthService)

// WithAuditLogger records lifecycle events to the audit trail.
func WithAuditLogger(l audit.AuditLogger) Option {
	return func(s *AuthService) { s.audit = l }
}

// WithEventEmitter streams auth telemetry events. Emit is called inline; wrap slow
// emitters in telemetry.Async.
func WithEventEmitter(e telemetry.EventEmitter) Option {
	return func(s *AuthService) { s.emitter = e }
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *AuthService) { s.log = l }
}

// AuthService implements the session lifecycle: login, refresh rotation, logout, plus the
// user administration operations that consume the password hasher.
type AuthService struct {
	users    UserRepo
	sessions SessionRepo
	hasher   *security.Hasher
	tokens   *security.TokenCodec
	audit    audit.AuditLogger
	emitter  telemetry.EventEmitter
	log      *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(users UserRepo, sessions SessionRepo, hasher *security.Hasher, tokens *security.TokenCodec, opts ...Option) *AuthService {
	s := &AuthService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		tokens:   tokens,
		audit:    audit.Nop{},
		log:      zap.NewNop(),
		tracer:   otel.Tracer("rental-backoffice/identity"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authenticate verifies username and password, revokes every prior session of the user, and
// starts a new one. Unknown usernames and wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (res *AuthResult, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Authenticate")
	defer func() { endSpan(span, err) }()

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		s.loginFailed(ctx, "", username, metrics.OutcomeInvalidCredentials)
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		metrics.RecordLogin(metrics.OutcomeError)
		return nil, fmt.Errorf("%w: lookup user: %w", ErrStoreFailure, err)
	}
	if user == nil {
		// Match the wrong-password path's bcrypt cost.
		_ = s.hasher.Matches(s.dummyPasswordHash(), password)
		s.loginFailed(ctx, "", username, metrics.OutcomeInvalidCredentials)
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Matches(user.PasswordHash, password) {
		s.loginFailed(ctx, user.ID, username, metrics.OutcomeInvalidCredentials)
		return nil, ErrInvalidCredentials
	}
	s.upgradeHash(ctx, user, password)
	span.SetAttributes(attribute.String("user.id", user.ID), attribute.String("user.role", string(user.Role)))

	pair, err := s.tokens.IssuePair(user.ID, user.Role)
	if err != nil {
		metrics.RecordLogin(metrics.OutcomeError)
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	removed, err := s.sessions.DeleteAllByUser(ctx, user.ID)
	if err != nil {
		metrics.RecordLogin(metrics.OutcomeError)
		return nil, fmt.Errorf("%w: %w", ErrSessionInvalidationFailed, err)
	}
	if err := s.sessions.Create(ctx, s.newSession(user.ID, pair)); err != nil {
		metrics.RecordLogin(metrics.OutcomeError)
		s.log.Error("login: session persistence failed after prior sessions were cleared",
			zap.String("user_id", user.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrSessionPersistenceFailed, err)
	}

	metrics.RecordLogin(metrics.OutcomeSuccess)
	s.audit.LogEvent(ctx, user.ID, auditdomain.ActionLoginSuccess, fmt.Sprintf("replaced_sessions=%d", removed))
	s.emit(ctx, user.ID, user.Role, auditdomain.ActionLoginSuccess)
	s.log.Info("login succeeded", zap.String("user_id", user.ID), zap.Int64("replaced_sessions", removed))
	return &AuthResult{
		User:             user,
		UserID:           user.ID,
		Role:             user.Role,
		AccessToken:      pair.AccessToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}, nil
}

// Refresh redeems a refresh token exactly once and returns a new pair. The consumed session is
// removed before the replacement is written, so at no point do two sessions exist for one rotation.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (res *AuthResult, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Refresh")
	defer func() { endSpan(span, err) }()

	if refreshToken == "" {
		metrics.RecordRefresh(metrics.OutcomeInvalidToken)
		return nil, ErrRefreshInvalid
	}
	digest := security.DigestRefreshToken(refreshToken)
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		// Drop a dangling row for this token if one exists.
		if _, delErr := s.sessions.DeleteByToken(ctx, digest); delErr != nil {
			s.log.Warn("refresh: cleanup of rejected token failed", zap.Error(delErr))
		}
		metrics.RecordRefresh(metrics.OutcomeInvalidToken)
		s.audit.LogEvent(ctx, "", auditdomain.ActionRefreshRejected, "reason=invalid_token")
		return nil, fmt.Errorf("%w: %w", ErrRefreshInvalid, err)
	}
	span.SetAttributes(attribute.String("user.id", claims.Subject))

	consumed, err := s.sessions.ConsumeByToken(ctx, digest, claims.Subject)
	if err != nil {
		metrics.RecordRefresh(metrics.OutcomeError)
		return nil, fmt.Errorf("%w: %w", ErrSessionInvalidationFailed, err)
	}
	if consumed == nil {
		metrics.RecordRefresh(metrics.OutcomeReplayed)
		s.audit.LogEvent(ctx, claims.Subject, auditdomain.ActionRefreshRejected, "reason=no_live_session")
		s.log.Warn("refresh: token has no live session", zap.String("user_id", claims.Subject))
		return nil, ErrRefreshInvalid
	}

	pair, err := s.tokens.IssuePair(claims.Subject, claims.Role)
	if err != nil {
		metrics.RecordRefresh(metrics.OutcomeError)
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	if err := s.sessions.Create(ctx, s.newSession(claims.Subject, pair)); err != nil {
		metrics.RecordRefresh(metrics.OutcomeError)
		s.log.Error("refresh: session persistence failed after old session was consumed",
			zap.String("user_id", claims.Subject), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrSessionPersistenceFailed, err)
	}

	metrics.RecordRefresh(metrics.OutcomeSuccess)
	s.audit.LogEvent(ctx, claims.Subject, auditdomain.ActionRefreshSuccess, "")
	s.emit(ctx, claims.Subject, claims.Role, auditdomain.ActionRefreshSuccess)
	return &AuthResult{
		UserID:           claims.Subject,
		Role:             claims.Role,
		AccessToken:      pair.AccessToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}, nil
}

// Logout removes the session for refreshToken. It succeeds whether or not a session existed;
// removed reports which case occurred.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) (removed bool, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Logout")
	defer func() { endSpan(span, err) }()

	if refreshToken == "" {
		metrics.RecordLogout(false)
		return false, nil
	}
	removed, err = s.sessions.DeleteByToken(ctx, security.DigestRefreshToken(refreshToken))
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	var userID string
	var role userdomain.Role
	if claims, verr := s.tokens.VerifyRefresh(refreshToken); verr == nil {
		userID, role = claims.Subject, claims.Role
	}
	metrics.RecordLogout(removed)
	s.audit.LogEvent(ctx, userID, auditdomain.ActionLogout, fmt.Sprintf("removed=%t", removed))
	s.emit(ctx, userID, role, auditdomain.ActionLogout)
	return removed, nil
}

// AddUser creates a user with a freshly hashed password. actorID identifies the landlord
// performing the operation and is recorded in the audit trail.
func (s *AuthService) AddUser(ctx context.Context, actorID, username, password, role, phone string) (u *userdomain.User, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.AddUser")
	defer func() { endSpan(span, err) }()

	r, ok := userdomain.ParseRole(role)
	if !ok {
		return nil, fmt.Errorf("%w: role must be landlord or tenant", ErrInvalidInput)
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &userdomain.User{
		ID:           uuid.New().String(),
		Role:         r,
		Username:     strings.TrimSpace(username),
		PasswordHash: hash,
		Phone:        strings.TrimSpace(phone),
		CreatedAt:    s.now().UTC(),
	}
	if err := user.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, userrepo.ErrUsernameTaken) || errors.Is(err, userrepo.ErrPhoneTaken) {
			return nil, fmt.Errorf("%w: %w", ErrUserExists, err)
		}
		return nil, fmt.Errorf("%w: create user: %w", ErrStoreFailure, err)
	}
	s.audit.LogEvent(ctx, actorID, auditdomain.ActionUserCreated, fmt.Sprintf("user_id=%s role=%s", user.ID, user.Role))
	return user, nil
}

// ChangePassword replaces the user's password hash after checking the current password, then
// revokes every session so outstanding refresh tokens stop working.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) (err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.ChangePassword")
	defer func() { endSpan(span, err) }()

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Matches(user.PasswordHash, currentPassword) {
		return ErrInvalidCredentials
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: update password: %w", ErrStoreFailure, err)
	}
	if _, err := s.sessions.DeleteAllByUser(ctx, userID); err != nil {
		return fmt.Errorf("%w: %w", ErrSessionInvalidationFailed, err)
	}
	s.audit.LogEvent(ctx, userID, auditdomain.ActionPasswordChanged, "")
	return nil
}

// GetUser returns the stored user for id, or ErrUserNotFound.
func (s *AuthService) GetUser(ctx context.Context, id string) (*userdomain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup user: %w", ErrStoreFailure, err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *AuthService) newSession(userID string, pair *security.TokenPair) *sessiondomain.Session {
	return &sessiondomain.Session{
		ID:         uuid.New().String(),
		UserID:     userID,
		TokenValue: security.DigestRefreshToken(pair.RefreshToken),
		CreatedAt:  s.now().UTC(),
		ExpiresAt:  pair.RefreshExpiresAt,
	}
}

func (s *AuthService) loginFailed(ctx context.Context, userID, username, outcome string) {
	metrics.RecordLogin(outcome)
	s.audit.LogEvent(ctx, userID, auditdomain.ActionLoginFailure, "username="+username)
	s.log.Info("login failed", zap.String("username", username))
}

// upgradeHash re-hashes a verified password whose stored hash uses a stale cost.
// Failures are logged and the login proceeds.
func (s *AuthService) upgradeHash(ctx context.Context, user *userdomain.User, password string) {
	if !s.hasher.NeedsRehash(user.PasswordHash) {
		return
	}
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		s.log.Warn("login: password rehash failed", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	user.PasswordHash = hash
}

func (s *AuthService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("dummy-password-for-timing")
	})
	return s.dummyHash
}

type authEventMetadata struct {
	Action string `json:"action"`
}

func (s *AuthService) emit(ctx context.Context, userID string, role userdomain.Role, action string) {
	if s.emitter == nil {
		return
	}
	meta, _ := json.Marshal(authEventMetadata{Action: action})
	_ = s.emitter.Emit(ctx, &telemetry.Event{
		EventType: telemetry.EventAuth,
		Source:    "auth_service",
		UserID:    userID,
		Role:      string(role),
		Metadata:  meta,
		CreatedAt: s.now().UTC(),
	})
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if len(password) > security.MaxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, security.MaxPasswordBytes)
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
