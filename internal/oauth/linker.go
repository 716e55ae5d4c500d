package oauth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/craftlane/backend/internal/apperr"
	"github.com/craftlane/backend/internal/models"
)

var (
	// ErrTenantMismatch means the linked user belongs to a different tenant
	// than the one the callback was resolved for.
	ErrTenantMismatch = fmt.Errorf("%w: oauth account belongs to another tenant", apperr.ErrUnauthenticated)
	// ErrNotLinked means the user has no account for the given provider.
	ErrNotLinked = fmt.Errorf("%w: provider not linked", apperr.ErrNotFound)
	// ErrLastCredential means unlinking would leave the user with no way to
	// sign in.
	ErrLastCredential = fmt.Errorf("%w: cannot unlink the only sign-in method", apperr.ErrConflict)
	// ErrUserDisabled means the resolved user cannot sign in.
	ErrUserDisabled = fmt.Errorf("%w: user disabled", apperr.ErrUnauthenticated)
)

// AccountStore persists provider account links.
type AccountStore interface {
	AccountByProviderID(ctx context.Context, provider, providerAccountID string) (*models.OAuthAccount, error)
	AccountsByUser(ctx context.Context, userID uuid.UUID) ([]*models.OAuthAccount, error)
	CreateAccount(ctx context.Context, a *models.OAuthAccount) error
	UpdateAccountTokens(ctx context.Context, id uuid.UUID, access, refresh string, expiresAt *time.Time) error
	DeleteAccount(ctx context.Context, userID uuid.UUID, provider string) (bool, error)
}

// UserStore is the slice of the user repository the linker needs.
type UserStore interface {
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UserByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
}

// Linker maps provider identities to local users.
type Linker struct {
	accounts AccountStore
	users    UserStore
	now      func() time.Time
	logger   *zap.Logger
}

// NewLinker creates a linker.
func NewLinker(accounts AccountStore, users UserStore, logger *zap.Logger) *Linker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Linker{accounts: accounts, users: users, now: time.Now, logger: logger}
}

// WithClock overrides the linker clock for deterministic tests.
func (l *Linker) WithClock(now func() time.Time) *Linker {
	l.now = now
	return l
}

// Resolve maps a completed exchange to a local user within the tenant, in
// strict precedence order: an already-linked account wins, then a
// verified-email match links the identity to the existing user, and
// otherwise a new user is created. Unverified provider emails never attach
// to an existing account.
func (l *Linker) Resolve(ctx context.Context, tenantID uuid.UUID, id *Identity) (*models.User, error) {
	account, err := l.accounts.AccountByProviderID(ctx, id.Provider, id.ProviderAccountID)
	if err != nil {
		return nil, fmt.Errorf("lookup oauth account: %w", err)
	}
	if account != nil {
		return l.resolveLinked(ctx, tenantID, account, id)
	}

	email := strings.ToLower(strings.TrimSpace(id.Email))
	if id.EmailVerified {
		u, err := l.users.UserByEmail(ctx, tenantID, email)
		if err != nil {
			return nil, fmt.Errorf("lookup user by email: %w", err)
		}
		if u != nil {
			if !u.Active {
				return nil, ErrUserDisabled
			}
			if err := l.createAccount(ctx, u.ID, id); err != nil {
				return nil, err
			}
			l.logger.Info("linked oauth account to existing user",
				zap.String("provider", id.Provider),
				zap.String("user_id", u.ID.String()),
			)
			return u, nil
		}
	}

	return l.createUser(ctx, tenantID, email, id)
}

func (l *Linker) resolveLinked(ctx context.Context, tenantID uuid.UUID, account *models.OAuthAccount, id *Identity) (*models.User, error) {
	u, err := l.users.UserByID(ctx, account.UserID)
	if err != nil {
		return nil, fmt.Errorf("lookup linked user: %w", err)
	}
	if u == nil || !u.Active {
		return nil, ErrUserDisabled
	}
	if u.TenantID != tenantID {
		return nil, ErrTenantMismatch
	}
	if err := l.accounts.UpdateAccountTokens(ctx, account.ID, id.AccessToken, id.RefreshToken, id.TokenExpiresAt); err != nil {
		// Stale provider tokens are an inconvenience, not a login failure.
		l.logger.Warn("update oauth tokens failed", zap.Error(err))
	}
	return u, nil
}

func (l *Linker) createUser(ctx context.Context, tenantID uuid.UUID, email string, id *Identity) (*models.User, error) {
	u := &models.User{
		ID:       uuid.New(),
		TenantID: tenantID,
		Email:    email,
		FullName: id.Name,
		Role:     models.RoleStaff,
		Active:   true,
	}
	if id.EmailVerified {
		verifiedAt := l.now()
		u.EmailVerifiedAt = &verifiedAt
	}
	if err := l.users.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("create user from oauth: %w", err)
	}
	if err := l.createAccount(ctx, u.ID, id); err != nil {
		return nil, err
	}
	l.logger.Info("created user from oauth signup",
		zap.String("provider", id.Provider),
		zap.String("user_id", u.ID.String()),
		zap.String("tenant_id", tenantID.String()),
	)
	return u, nil
}

func (l *Linker) createAccount(ctx context.Context, userID uuid.UUID, id *Identity) error {
	a := &models.OAuthAccount{
		ID:                uuid.New(),
		UserID:            userID,
		Provider:          id.Provider,
		ProviderAccountID: id.ProviderAccountID,
		AccessToken:       id.AccessToken,
		RefreshToken:      id.RefreshToken,
		TokenExpiresAt:    id.TokenExpiresAt,
	}
	if err := l.accounts.CreateAccount(ctx, a); err != nil {
		return fmt.Errorf("create oauth account: %w", err)
	}
	return nil
}

// Unlink removes the user's link to a provider, refusing when that link is
// the user's only way to sign in.
func (l *Linker) Unlink(ctx context.Context, u *models.User, provider string) error {
	accounts, err := l.accounts.AccountsByUser(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("list oauth accounts: %w", err)
	}
	var linked bool
	for _, a := range accounts {
		if a.Provider == provider {
			linked = true
			break
		}
	}
	if !linked {
		return ErrNotLinked
	}
	if !u.HasPassword() && len(accounts) == 1 {
		return ErrLastCredential
	}
	ok, err := l.accounts.DeleteAccount(ctx, u.ID, provider)
	if err != nil {
		return fmt.Errorf("delete oauth account: %w", err)
	}
	if !ok {
		return ErrNotLinked
	}
	return nil
}

// Accounts lists the user's linked providers.
func (l *Linker) Accounts(ctx context.Context, userID uuid.UUID) ([]*models.OAuthAccount, error) {
	return l.accounts.AccountsByUser(ctx, userID)
}
