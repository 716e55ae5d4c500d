package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/craftlane/backend/internal/apperr"
	"github.com/craftlane/backend/internal/models"
)

// UserStore is the credential-store view the session manager needs. Absent
// records are (nil, nil), errors are transport failures.
type UserStore interface {
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UserByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, hash string) error
	UpdateRole(ctx context.Context, userID uuid.UUID, role models.Role) error
}

// SessionStore persists server-side session records.
type SessionStore interface {
	CreateSession(ctx context.Context, s *models.Session) error
	SessionByToken(ctx context.Context, token string) (*models.Session, error)
	SessionByRefreshToken(ctx context.Context, token string) (*models.Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteUserSessions(ctx context.Context, userID uuid.UUID) error
	DeleteUserSessionsExcept(ctx context.Context, userID uuid.UUID, token string) error
}

// TenantStore resolves tenants by id for activity checks.
type TenantStore interface {
	TenantByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

// TokenPair is the access/refresh pair returned by every login pathway.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// SessionManager issues, validates and revokes sessions. Password logins,
// magic-link consumption and OAuth completion all converge here.
type SessionManager struct {
	codec    *TokenCodec
	users    UserStore
	sessions SessionStore
	tenants  TenantStore
	now      func() time.Time
	logger   *zap.Logger
}

// NewSessionManager creates a session manager.
func NewSessionManager(codec *TokenCodec, users UserStore, sessions SessionStore, tenants TenantStore, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		codec:    codec,
		users:    users,
		sessions: sessions,
		tenants:  tenants,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock overrides the manager clock for deterministic tests.
func (m *SessionManager) WithClock(now func() time.Time) *SessionManager {
	m.now = now
	return m
}

// Issue generates an access/refresh token pair and persists the session row
// binding the access token to the user. The session expires with the refresh
// TTL so a refreshed client outlives its access token.
func (m *SessionManager) Issue(ctx context.Context, u *models.User) (*TokenPair, error) {
	access, err := m.codec.SignAccess(u)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := m.codec.SignRefresh(u)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	expiresAt := m.now().Add(m.codec.RefreshTTL())
	sess := &models.Session{
		ID:           uuid.New(),
		UserID:       u.ID,
		Token:        access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	}
	if err := m.sessions.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: expiresAt}, nil
}

// LoginPassword authenticates email+password within a tenant and issues a
// session. Every failure collapses to Unauthenticated so callers cannot
// distinguish a wrong password from an unknown email.
func (m *SessionManager) LoginPassword(ctx context.Context, tenantID uuid.UUID, email, password string) (*models.User, *TokenPair, error) {
	u, err := m.users.UserByEmail(ctx, tenantID, email)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil || !u.Active || !u.HasPassword() || !CheckPassword(password, u.PasswordHash) {
		return nil, nil, fmt.Errorf("%w: invalid email or password", apperr.ErrUnauthenticated)
	}
	if err := m.requireActiveTenant(ctx, u.TenantID); err != nil {
		return nil, nil, err
	}

	pair, err := m.Issue(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

// Authenticate re-validates a bearer token for one request: the token must
// verify and be unexpired, the user must still exist, be active and belong
// to the tenant claimed in the token, and a live session row must exist for
// this exact token. Failing any one yields Unauthenticated, never a partial
// identity.
func (m *SessionManager) Authenticate(ctx context.Context, token string) (*models.User, *Claims, error) {
	claims, err := m.codec.Verify(token)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: invalid or expired token", apperr.ErrUnauthenticated)
	}

	sess, err := m.sessions.SessionByToken(ctx, token)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup session: %w", err)
	}
	if sess == nil || sess.Expired(m.now()) {
		return nil, nil, fmt.Errorf("%w: session not found", apperr.ErrUnauthenticated)
	}

	u, err := m.users.UserByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil || !u.Active || u.TenantID != claims.TenantID {
		return nil, nil, fmt.Errorf("%w: user unavailable", apperr.ErrUnauthenticated)
	}
	if err := m.requireActiveTenant(ctx, u.TenantID); err != nil {
		return nil, nil, err
	}
	return u, claims, nil
}

// Refresh validates a refresh token and rotates the session: the old row is
// deleted and a fresh pair is issued, making each refresh token single-use.
// A refresh token whose session was revoked (logout, logout-all, password
// change) is rejected.
func (m *SessionManager) Refresh(ctx context.Context, refreshToken string) (*models.User, *TokenPair, error) {
	claims, err := m.codec.Verify(refreshToken)
	if err != nil || claims.Kind != TokenKindRefresh {
		return nil, nil, fmt.Errorf("%w: invalid refresh token", apperr.ErrUnauthenticated)
	}

	sess, err := m.sessions.SessionByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup session: %w", err)
	}
	if sess == nil || sess.Expired(m.now()) {
		return nil, nil, fmt.Errorf("%w: session not found", apperr.ErrUnauthenticated)
	}

	u, err := m.users.UserByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil || !u.Active || u.TenantID != claims.TenantID {
		return nil, nil, fmt.Errorf("%w: user unavailable", apperr.ErrUnauthenticated)
	}
	if err := m.requireActiveTenant(ctx, u.TenantID); err != nil {
		return nil, nil, err
	}

	if err := m.sessions.DeleteSession(ctx, sess.Token); err != nil {
		return nil, nil, fmt.Errorf("rotate session: %w", err)
	}
	pair, err := m.Issue(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

// Logout deletes the session matching the presented token. Unknown tokens
// are a no-op; logout is idempotent.
func (m *SessionManager) Logout(ctx context.Context, token string) error {
	return m.sessions.DeleteSession(ctx, token)
}

// LogoutAll deletes every session for the user, across devices.
func (m *SessionManager) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	return m.sessions.DeleteUserSessions(ctx, userID)
}

// ChangePassword verifies the current password, stores the new hash and
// revokes every session except the one presenting this request's token.
func (m *SessionManager) ChangePassword(ctx context.Context, u *models.User, current, next, presentedToken string) error {
	if u.HasPassword() && !CheckPassword(current, u.PasswordHash) {
		return fmt.Errorf("%w: current password mismatch", apperr.ErrUnauthenticated)
	}
	hash, err := HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := m.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := m.sessions.DeleteUserSessionsExcept(ctx, u.ID, presentedToken); err != nil {
		return fmt.Errorf("revoke other sessions: %w", err)
	}
	return nil
}

func (m *SessionManager) requireActiveTenant(ctx context.Context, tenantID uuid.UUID) error {
	tenant, err := m.tenants.TenantByID(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("lookup tenant: %w", err)
	}
	if tenant == nil || !tenant.Active {
		return fmt.Errorf("%w: tenant unavailable", apperr.ErrUnauthenticated)
	}
	return nil
}
