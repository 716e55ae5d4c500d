package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditEvent is an append-only record of a security-relevant action. Events
// are written by the background worker and never mutated or deleted.
type AuditEvent struct {
	ID         uuid.UUID         `json:"id"`
	TenantID   uuid.UUID         `json:"tenant_id"`
	UserID     *uuid.UUID        `json:"user_id,omitempty"`
	Action     string            `json:"action"`
	EntityType string            `json:"entity_type,omitempty"`
	EntityID   string            `json:"entity_id,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}
