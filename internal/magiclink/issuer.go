// Package magiclink issues and validates single-use, time-boxed login
// tokens, independent of password state.
package magiclink

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/craftlane/backend/internal/apperr"
	"github.com/craftlane/backend/internal/models"
)

// Validation failures are distinguishable internally; the issuance endpoint
// deliberately collapses them for enumeration resistance. Each wraps its
// taxonomy kind so callers can also classify with apperr.
var (
	ErrNotFound       = fmt.Errorf("%w: magic link not found", apperr.ErrUnauthenticated)
	ErrExpired        = fmt.Errorf("%w: magic link expired", apperr.ErrUnauthenticated)
	ErrUsed           = fmt.Errorf("%w: magic link already used", apperr.ErrConflict)
	ErrUserDisabled   = fmt.Errorf("%w: user disabled", apperr.ErrUnauthenticated)
	ErrTenantDisabled = fmt.Errorf("%w: tenant disabled", apperr.ErrUnauthenticated)
)

// LinkTTL is how long a magic link stays valid after issuance.
const LinkTTL = 15 * time.Minute

// tokenBytes is the entropy of a link token; hex-encoded to double the
// length on the wire.
const tokenBytes = 32

// LinkStore persists magic links.
type LinkStore interface {
	CreateMagicLink(ctx context.Context, l *models.MagicLink) error
	MagicLinkByToken(ctx context.Context, token string) (*models.MagicLink, error)
	// MarkUsed stamps used_at and reports false when the link was already
	// consumed, so exactly one caller wins a race on the same token.
	MarkUsed(ctx context.Context, token string) (bool, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// UserStore resolves users by email within a tenant.
type UserStore interface {
	UserByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*models.User, error)
}

// TenantStore resolves tenants for activity checks.
type TenantStore interface {
	TenantByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

// Issuer creates and consumes magic links.
type Issuer struct {
	links   LinkStore
	users   UserStore
	tenants TenantStore
	now     func() time.Time
	logger  *zap.Logger
}

// NewIssuer creates a magic link issuer.
func NewIssuer(links LinkStore, users UserStore, tenants TenantStore, logger *zap.Logger) *Issuer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Issuer{links: links, users: users, tenants: tenants, now: time.Now, logger: logger}
}

// WithClock overrides the issuer clock for deterministic tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Create issues a link for an existing, active user of an active tenant.
// Unknown emails return ErrNotFound; the HTTP layer hides that distinction.
func (i *Issuer) Create(ctx context.Context, tenantID uuid.UUID, email string) (*models.MagicLink, error) {
	tenant, err := i.tenants.TenantByID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("lookup tenant: %w", err)
	}
	if tenant == nil || !tenant.Active {
		return nil, ErrTenantDisabled
	}

	u, err := i.users.UserByEmail(ctx, tenantID, email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		return nil, ErrNotFound
	}
	if !u.Active {
		return nil, ErrUserDisabled
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	link := &models.MagicLink{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Email:     u.Email,
		Token:     token,
		ExpiresAt: i.now().Add(LinkTTL),
	}
	if err := i.links.CreateMagicLink(ctx, link); err != nil {
		return nil, fmt.Errorf("persist magic link: %w", err)
	}
	return link, nil
}

// Validate resolves the user behind a token without consuming it. It fails
// closed with a distinguishable reason when the link is unknown, expired,
// already used, or its user or tenant is disabled.
func (i *Issuer) Validate(ctx context.Context, token string) (*models.User, error) {
	link, err := i.links.MagicLinkByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("lookup magic link: %w", err)
	}
	if link == nil {
		return nil, ErrNotFound
	}
	if link.Expired(i.now()) {
		return nil, ErrExpired
	}
	if link.Used() {
		return nil, ErrUsed
	}

	tenant, err := i.tenants.TenantByID(ctx, link.TenantID)
	if err != nil {
		return nil, fmt.Errorf("lookup tenant: %w", err)
	}
	if tenant == nil || !tenant.Active {
		return nil, ErrTenantDisabled
	}

	u, err := i.users.UserByEmail(ctx, link.TenantID, link.Email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil || !u.Active {
		return nil, ErrUserDisabled
	}
	return u, nil
}

// Consume validates the token and marks it used in the same flow, so a
// token never authenticates twice even under concurrent attempts.
func (i *Issuer) Consume(ctx context.Context, token string) (*models.User, error) {
	u, err := i.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	ok, err := i.links.MarkUsed(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("mark magic link used: %w", err)
	}
	if !ok {
		return nil, ErrUsed
	}
	return u, nil
}

// Sweep deletes expired, unused links. Housekeeping only; the request path
// never depends on it.
func (i *Issuer) Sweep(ctx context.Context) (int64, error) {
	n, err := i.links.DeleteExpired(ctx, i.now())
	if err != nil {
		return 0, fmt.Errorf("delete expired links: %w", err)
	}
	if n > 0 {
		i.logger.Info("swept expired magic links", zap.Int64("count", n))
	}
	return n, nil
}

func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
