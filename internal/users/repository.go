// Package users exposes the tenant member directory and role management.
package users

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/craftlane/backend/internal/models"
	"github.com/craftlane/backend/internal/rls"
)

// Repository reads the member directory through scoped transactions, so
// row-level security filters every row to the caller's tenant.
type Repository struct {
	store *rls.ScopedStore
}

// NewRepository creates a scoped users repository.
func NewRepository(store *rls.ScopedStore) *Repository {
	return &Repository{store: store}
}

// List returns every member visible under the caller's scope.
func (r *Repository) List(ctx context.Context) ([]models.UserPublic, error) {
	var out []models.UserPublic
	err := r.store.Exec(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, tenant_id, email, full_name, role, active, email_verified_at, created_at
			FROM users
			ORDER BY created_at`,
		)
		if err != nil {
			return fmt.Errorf("query users: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var u models.UserPublic
			if err := rows.Scan(&u.ID, &u.TenantID, &u.Email, &u.FullName, &u.Role,
				&u.Active, &u.EmailVerifiedAt, &u.CreatedAt); err != nil {
				return fmt.Errorf("scan user: %w", err)
			}
			out = append(out, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
