package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's role within a tenant.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
	RoleStaff    Role = "staff"
	RoleCustomer Role = "customer"
)

// User represents a tenant-scoped account. Email is unique within a tenant.
// PasswordHash is empty for users who only authenticate via OAuth or magic
// links.
type User struct {
	ID              uuid.UUID  `json:"id"`
	TenantID        uuid.UUID  `json:"tenant_id"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	FullName        string     `json:"full_name"`
	Role            Role       `json:"role"`
	Permissions     []string   `json:"permissions,omitempty"`
	Active          bool       `json:"active"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID              uuid.UUID  `json:"id"`
	TenantID        uuid.UUID  `json:"tenant_id"`
	Email           string     `json:"email"`
	FullName        string     `json:"full_name"`
	Role            Role       `json:"role"`
	Active          bool       `json:"active"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:              u.ID,
		TenantID:        u.TenantID,
		Email:           u.Email,
		FullName:        u.FullName,
		Role:            u.Role,
		Active:          u.Active,
		EmailVerifiedAt: u.EmailVerifiedAt,
		CreatedAt:       u.CreatedAt,
	}
}

// RecordTenantID implements permissions.Record.
func (u UserPublic) RecordTenantID() uuid.UUID { return u.TenantID }

// RecordOwnerID implements permissions.Record. A user record is owned by the
// user it describes.
func (u UserPublic) RecordOwnerID() uuid.UUID { return u.ID }

// HasPassword reports whether the user can authenticate with a password.
func (u *User) HasPassword() bool { return u.PasswordHash != "" }
