package models

import (
	"time"

	"github.com/google/uuid"
)

// Session binds an issued access/refresh token pair to a user. A session
// whose expiry has passed is treated identically to a revoked one: lookups no
// longer match it. The refresh token is single-use: refreshing deletes the
// row and creates a new one. Multiple concurrent sessions per user are
// allowed (multi-device).
type Session struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	Token        string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// Expired reports whether the session expiry has passed at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
