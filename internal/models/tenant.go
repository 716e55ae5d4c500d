package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant represents an isolated customer organization, the unit of data
// partitioning. Tenants are soft-deactivated, never hard-deleted while
// referenced data exists.
type Tenant struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	CustomDomain *string   `json:"custom_domain,omitempty"`
	LogoURL      *string   `json:"logo_url,omitempty"`
	PrimaryColor string    `json:"primary_color,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
