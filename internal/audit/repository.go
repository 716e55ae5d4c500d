package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/craftlane/backend/pkg/queue"
)

// Repository writes audit events to the append-only sink. Only the worker
// uses it; request handlers never touch the table directly.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an audit repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends one event.
func (r *Repository) Insert(ctx context.Context, p queue.AuditPayload) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_events (id, tenant_id, user_id, action, entity_type, entity_id, metadata)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)`,
		p.TenantID, p.UserID, p.Action, p.EntityType, p.EntityID, p.Metadata,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
