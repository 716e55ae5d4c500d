// Package audit records security-relevant actions. Recording is
// fire-and-forget: it never fails the request that triggered it.
package audit

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/craftlane/backend/pkg/queue"
)

// Actions recorded across the auth surface.
const (
	ActionLogin           = "auth.login"
	ActionLogout          = "auth.logout"
	ActionLogoutAll       = "auth.logout_all"
	ActionRegister        = "auth.register"
	ActionPasswordChanged = "auth.password_changed"
	ActionMagicLinkLogin  = "auth.magic_link_login"
	ActionOAuthLogin      = "auth.oauth_login"
	ActionOAuthUnlinked   = "auth.oauth_unlinked"
	ActionRoleChanged     = "users.role_changed"
	ActionTenantUpdated   = "tenant.updated"
	ActionLogoUploaded    = "tenant.logo_uploaded"
)

// Recorder enqueues audit events for the background worker to persist.
type Recorder struct {
	jobs   *queue.Queue
	logger *zap.Logger
}

// NewRecorder creates a recorder. jobs may be nil; events are then only
// logged, which keeps single-process deployments working.
func NewRecorder(jobs *queue.Queue, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{jobs: jobs, logger: logger}
}

// Record enqueues one audit event. Failures are logged and swallowed; the
// triggering request already succeeded and must stay succeeded.
func (r *Recorder) Record(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID, action, entityType, entityID string, metadata map[string]string) {
	payload := queue.AuditPayload{
		TenantID:   tenantID,
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   metadata,
	}
	if r.jobs == nil {
		r.logger.Info("audit event",
			zap.String("tenant_id", tenantID.String()),
			zap.String("action", action),
		)
		return
	}
	if err := r.jobs.Enqueue(ctx, queue.QueueAudit, queue.JobTypeAudit, payload); err != nil {
		r.logger.Error("enqueue audit event failed",
			zap.String("action", action),
			zap.Error(err),
		)
	}
}
