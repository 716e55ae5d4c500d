package models

import (
	"time"

	"github.com/google/uuid"
)

// MagicLink is a single-use, time-boxed login token tied to an email. The
// user is resolved lazily at validation time; UsedAt is set on consumption
// and a consumed link never authenticates again.
type MagicLink struct {
	ID        uuid.UUID  `json:"id"`
	TenantID  uuid.UUID  `json:"tenant_id"`
	Email     string     `json:"email"`
	Token     string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Expired reports whether the link expiry has passed at the given time.
func (m *MagicLink) Expired(now time.Time) bool {
	return !now.Before(m.ExpiresAt)
}

// Used reports whether the link has already been consumed.
func (m *MagicLink) Used() bool { return m.UsedAt != nil }
