package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/craftlane/backend/internal/apperr"
	"github.com/craftlane/backend/internal/models"
)

type fakeUsers struct {
	byID map[uuid.UUID]*models.User
}

func (f *fakeUsers) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return f.byID[id], nil
}

func (f *fakeUsers) UserByEmail(_ context.Context, tenantID uuid.UUID, email string) (*models.User, error) {
	for _, u := range f.byID {
		if u.TenantID == tenantID && u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) CreateUser(_ context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, userID uuid.UUID, hash string) error {
	f.byID[userID].PasswordHash = hash
	return nil
}

func (f *fakeUsers) UpdateRole(_ context.Context, userID uuid.UUID, role models.Role) error {
	f.byID[userID].Role = role
	return nil
}

type fakeSessions struct {
	byToken map[string]*models.Session
}

func (f *fakeSessions) CreateSession(_ context.Context, s *models.Session) error {
	f.byToken[s.Token] = s
	return nil
}

func (f *fakeSessions) SessionByToken(_ context.Context, token string) (*models.Session, error) {
	return f.byToken[token], nil
}

func (f *fakeSessions) SessionByRefreshToken(_ context.Context, token string) (*models.Session, error) {
	for _, s := range f.byToken {
		if s.RefreshToken == token {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeSessions) DeleteSession(_ context.Context, token string) error {
	delete(f.byToken, token)
	return nil
}

func (f *fakeSessions) DeleteUserSessions(_ context.Context, userID uuid.UUID) error {
	for tok, s := range f.byToken {
		if s.UserID == userID {
			delete(f.byToken, tok)
		}
	}
	return nil
}

func (f *fakeSessions) DeleteUserSessionsExcept(_ context.Context, userID uuid.UUID, token string) error {
	for tok, s := range f.byToken {
		if s.UserID == userID && tok != token {
			delete(f.byToken, tok)
		}
	}
	return nil
}

type fakeTenants struct {
	byID map[uuid.UUID]*models.Tenant
}

func (f *fakeTenants) TenantByID(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	return f.byID[id], nil
}

type managerFixture struct {
	manager  *SessionManager
	users    *fakeUsers
	sessions *fakeSessions
	tenants  *fakeTenants
	tenant   *models.Tenant
	user     *models.User
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()
	tenant := &models.Tenant{ID: uuid.New(), Slug: "acme", Active: true}
	hash, err := HashPassword("hunter2-long")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := &models.User{
		ID:           uuid.New(),
		TenantID:     tenant.ID,
		Email:        "pat@acme.test",
		PasswordHash: hash,
		Role:         models.RoleStaff,
		Active:       true,
	}
	users := &fakeUsers{byID: map[uuid.UUID]*models.User{user.ID: user}}
	sessions := &fakeSessions{byToken: map[string]*models.Session{}}
	tenants := &fakeTenants{byID: map[uuid.UUID]*models.Tenant{tenant.ID: tenant}}
	codec := NewTokenCodec("test-secret", 24*time.Hour, 7*24*time.Hour)
	m := NewSessionManager(codec, users, sessions, tenants, nil)
	return &managerFixture{manager: m, users: users, sessions: sessions, tenants: tenants, tenant: tenant, user: user}
}

func TestLoginPasswordIssuesSession(t *testing.T) {
	fx := newManagerFixture(t)
	ctx := context.Background()
	before := time.Now()

	u, pair, err := fx.manager.LoginPassword(ctx, fx.tenant.ID, "pat@acme.test", "hunter2-long")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if u.ID != fx.user.ID {
		t.Fatalf("logged in as %s, want %s", u.ID, fx.user.ID)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("missing tokens in pair")
	}

	sess := fx.sessions.byToken[pair.AccessToken]
	if sess == nil {
		t.Fatal("no session row persisted for access token")
	}
	want := before.Add(7 * 24 * time.Hour)
	if sess.ExpiresAt.Before(want.Add(-time.Minute)) || sess.ExpiresAt.After(want.Add(time.Minute)) {
		t.Fatalf("session expires at %v, want ~7 days out", sess.ExpiresAt)
	}
}

func TestLoginPasswordFailuresCollapse(t *testing.T) {
	fx := newManagerFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		setup  func()
		email  string
		secret string
	}{
		{"wrong password", func() {}, "pat@acme.test", "wrong"},
		{"unknown email", func() {}, "ghost@acme.test", "hunter2-long"},
		{"inactive user", func() { fx.user.Active = false }, "pat@acme.test", "hunter2-long"},
		{"inactive tenant", func() { fx.user.Active = true; fx.tenant.Active = false }, "pat@acme.test", "hunter2-long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			_, _, err := fx.manager.LoginPassword(ctx, fx.tenant.ID, tt.email, tt.secret)
			if !apperr.IsUnauthenticated(err) {
				t.Fatalf("err = %v, want Unauthenticated", err)
			}
		})
	}
}

func TestAuthenticateRequiresAllThree(t *testing.T) {
	fx := newManagerFixture(t)
	ctx := context.Background()

	_, pair, err := fx.manager.LoginPassword(ctx, fx.tenant.ID, "pat@acme.test", "hunter2-long")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, _, err := fx.manager.Authenticate(ctx, pair.AccessToken); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	// Valid token but revoked session.
	if err := fx.manager.Logout(ctx, pair.AccessToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, _, err := fx.manager.Authenticate(ctx, pair.AccessToken); !apperr.IsUnauthenticated(err) {
		t.Fatalf("revoked session: err = %v, want Unauthenticated", err)
	}

	// Session exists but user moved tenants relative to the token claim.
	_, pair2, _ := fx.manager.LoginPassword(ctx, fx.tenant.ID, "pat@acme.test", "hunter2-long")
	fx.user.TenantID = uuid.New()
	fx.tenants.byID[fx.user.TenantID] = &models.Tenant{ID: fx.user.TenantID, Active: true}
	if _, _, err := fx.manager.Authenticate(ctx, pair2.AccessToken); !apperr.IsUnauthenticated(err) {
		t.Fatalf("tenant mismatch: err = %v, want Unauthenticated", err)
	}
}

func TestLogoutAllRevokesEveryDevice(t *testing.T) {
	fx := newManagerFixture(t)
	ctx := context.Background()

	var pairs []*TokenPair
	for i := 0; i < 3; i++ {
		_, pair, err := fx.manager.LoginPassword(ctx, fx.tenant.ID, "pat@acme.test", "hunter2-long")
		if err != nil {
			t.Fatalf("login %d: %v", i, err)
		}
		pairs = append(pairs, pair)
	}

	if err := fx.manager.LogoutAll(ctx, fx.user.ID); err != nil {
		t.Fatalf("logout all: %v", err)
	}
	if len(fx.sessions.byToken) != 0 {
		t.Fatalf("%d session rows survive logout-all", len(fx.sessions.byToken))
	}
	for i, pair := range pairs {
		if _, _, err := fx.manager.Authenticate(ctx, pair.AccessToken); !apperr.IsUnauthenticated(err) {
			t.Fatalf("token %d: err = %v, want Unauthenticated", i, err)
		}
	}
}

func TestChangePasswordKeepsCurrentSession(t *testing.T) {
	fx := newManagerFixture(t)
	ctx := context.Background()

	_, current, _ := fx.manager.LoginPassword(ctx, fx.tenant.ID, "pat@acme.test", "hunter2-long")
	_, other, _ := fx.manager.LoginPassword(ctx, fx.tenant.ID, "pat@acme.test", "hunter2-long")

	if err := fx.manager.ChangePassword(ctx, fx.user, "hunter2-long", "correct-horse-battery", current.AccessToken); err != nil {
		t.Fatalf("change password: %v", err)
	}

	if _, _, err := fx.manager.Authenticate(ctx, current.AccessToken); err != nil {
		t.Fatalf("current session revoked: %v", err)
	}
	if _, _, err := fx.manager.Authenticate(ctx, other.AccessToken); !apperr.IsUnauthenticated(err) {
		t.Fatalf("other session survives: err = %v", err)
	}
	if !CheckPassword("correct-horse-battery", fx.user.PasswordHash) {
		t.Fatal("new password does not verify")
	}
}

func TestChangePasswordRequiresCurrent(t *testing.T) {
	fx := newManagerFixture(t)
	err := fx.manager.ChangePassword(context.Background(), fx.user, "wrong", "next-password", "tok")
	if !apperr.IsUnauthenticated(err) {
		t.Fatalf("err = %v, want Unauthenticated", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	fx := newManagerFixture(t)
	ctx := context.Background()

	_, pair, _ := fx.manager.LoginPassword(ctx, fx.tenant.ID, "pat@acme.test", "hunter2-long")

	if _, _, err := fx.manager.Refresh(ctx, pair.AccessToken); !apperr.IsUnauthenticated(err) {
		t.Fatalf("access token accepted for refresh: err = %v", err)
	}

	_, next, err := fx.manager.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, _, err := fx.manager.Authenticate(ctx, next.AccessToken); err != nil {
		t.Fatalf("refreshed access token rejected: %v", err)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	fx := newManagerFixture(t)
	ctx := context.Background()

	_, pair, _ := fx.manager.LoginPassword(ctx, fx.tenant.ID, "pat@acme.test", "hunter2-long")

	_, next, err := fx.manager.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// The old pair is revoked: its access token no longer authenticates and
	// its refresh token cannot be replayed.
	if _, _, err := fx.manager.Authenticate(ctx, pair.AccessToken); !apperr.IsUnauthenticated(err) {
		t.Fatalf("pre-rotation access token survives: err = %v", err)
	}
	if _, _, err := fx.manager.Refresh(ctx, pair.RefreshToken); !apperr.IsUnauthenticated(err) {
		t.Fatalf("refresh token replayed: err = %v", err)
	}
	if _, _, err := fx.manager.Refresh(ctx, next.RefreshToken); err != nil {
		t.Fatalf("rotated refresh token rejected: %v", err)
	}
}

func TestRefreshRejectedAfterLogoutAll(t *testing.T) {
	fx := newManagerFixture(t)
	ctx := context.Background()

	_, pair, _ := fx.manager.LoginPassword(ctx, fx.tenant.ID, "pat@acme.test", "hunter2-long")

	if err := fx.manager.LogoutAll(ctx, fx.user.ID); err != nil {
		t.Fatalf("logout all: %v", err)
	}
	if _, _, err := fx.manager.Refresh(ctx, pair.RefreshToken); !apperr.IsUnauthenticated(err) {
		t.Fatalf("refresh token survives logout-all: err = %v", err)
	}
	if len(fx.sessions.byToken) != 0 {
		t.Fatalf("%d session rows created by rejected refresh", len(fx.sessions.byToken))
	}
}
