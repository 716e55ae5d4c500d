package rls

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ScopedStore executes statements inside a transaction whose session
// variables carry the enforcement scope, so the database's row-level
// security policies filter every row to the current tenant.
type ScopedStore struct {
	pool *pgxpool.Pool
}

// NewScopedStore creates a scoped store over the shared pool.
func NewScopedStore(pool *pgxpool.Pool) *ScopedStore {
	return &ScopedStore{pool: pool}
}

// Exec runs fn inside a transaction with the request's enforcement scope
// applied. It returns ErrNoScope when the context carries no scope and fails
// the request when the scope cannot be applied; it never proceeds unscoped.
func (s *ScopedStore) Exec(ctx context.Context, fn func(tx pgx.Tx) error) error {
	scope, ok := FromContext(ctx)
	if !ok {
		return ErrNoScope
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin scoped tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// set_config with is_local=true binds the variables to this transaction
	// only, so pooled connections never leak scope across requests.
	const q = `SELECT set_config('app.tenant_id', $1, true),
		set_config('app.user_id', $2, true),
		set_config('app.role', $3, true)`
	if _, err := tx.Exec(ctx, q, scope.TenantID.String(), scope.UserID.String(), string(scope.Role)); err != nil {
		return fmt.Errorf("apply enforcement scope: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
