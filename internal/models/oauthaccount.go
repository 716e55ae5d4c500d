package models

import (
	"time"

	"github.com/google/uuid"
)

// OAuthAccount links a user to exactly one (provider, provider_account_id)
// identity. Provider tokens are stored opportunistically for future calls.
type OAuthAccount struct {
	ID                uuid.UUID  `json:"id"`
	UserID            uuid.UUID  `json:"user_id"`
	Provider          string     `json:"provider"`
	ProviderAccountID string     `json:"provider_account_id"`
	AccessToken       string     `json:"-"`
	RefreshToken      string     `json:"-"`
	TokenExpiresAt    *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
}
