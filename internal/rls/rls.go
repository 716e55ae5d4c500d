// Package rls carries the request-scoped row-level-security enforcement
// context and applies it to every statement executed through the scoped
// store. The binding lives in the request's context.Context, never in shared
// state, so concurrent requests cannot observe each other's scope.
package rls

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/craftlane/backend/internal/apperr"
	"github.com/craftlane/backend/internal/models"
)

// ErrNoScope is returned when a tenant-scoped statement is attempted without
// an established enforcement context. Requests fail closed on it.
var ErrNoScope = fmt.Errorf("%w: no enforcement context in request", apperr.ErrForbidden)

// Scope is the per-request binding of tenant, user and role that scopes all
// data access.
type Scope struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Role     models.Role
}

type ctxKey struct{}

// WithScope returns a context carrying the enforcement scope. It is set
// exactly once per request, after authentication succeeds and before any
// tenant-scoped statement runs.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext extracts the enforcement scope from the request context.
func FromContext(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(ctxKey{}).(Scope)
	return s, ok
}
