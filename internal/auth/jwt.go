package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/craftlane/backend/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

// Token kinds. Access and refresh tokens share the payload shape and differ
// only in TTL; both are valid inputs to Verify.
const (
	TokenKindAccess  = "access"
	TokenKindRefresh = "refresh"
)

// Claims holds JWT claims identifying the user within its tenant.
type Claims struct {
	UserID   uuid.UUID   `json:"user_id"`
	TenantID uuid.UUID   `json:"tenant_id"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
	Kind     string      `json:"kind"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies bearer tokens with an embedded payload and
// explicit expiry.
type TokenCodec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenCodec creates a codec with the given signing secret and TTLs.
func NewTokenCodec(secret string, accessTTL, refreshTTL time.Duration) *TokenCodec {
	return &TokenCodec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock overrides the codec clock for deterministic tests.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	c.now = now
	return c
}

// AccessTTL returns the access token lifetime.
func (c *TokenCodec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the refresh token lifetime.
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

// SignAccess creates a short-lived access token for the user.
func (c *TokenCodec) SignAccess(u *models.User) (string, error) {
	return c.sign(u, TokenKindAccess, c.accessTTL)
}

// SignRefresh creates a longer-lived refresh token for the user.
func (c *TokenCodec) SignRefresh(u *models.User) (string, error) {
	return c.sign(u, TokenKindRefresh, c.refreshTTL)
}

func (c *TokenCodec) sign(u *models.User, kind string, ttl time.Duration) (string, error) {
	now := c.now()
	claims := Claims{
		UserID:   u.ID,
		TenantID: u.TenantID,
		Email:    u.Email,
		Role:     u.Role,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify parses and validates a token. Expired or tampered tokens return
// ErrInvalidToken; verification never panics past this boundary.
func (c *TokenCodec) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
