package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/craftlane/backend/internal/models"
)

// Repository handles user and session persistence. It runs on the shared
// pool without row-level scoping: authentication happens before an
// enforcement context exists, so the tables it touches carry no RLS policy.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, tenant_id, email, COALESCE(password_hash,''), full_name, role,
	COALESCE(permissions,'{}'), active, email_verified_at, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.FullName, &u.Role,
		&u.Permissions, &u.Active, &u.EmailVerifiedAt, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UserByID returns a user by ID, or nil when absent.
func (r *Repository) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, q, id))
}

// UserByEmail returns a user by email within a tenant, or nil when absent.
func (r *Repository) UserByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE tenant_id = $1 AND lower(email) = lower($2)`
	return scanUser(r.pool.QueryRow(ctx, q, tenantID, email))
}

// CreateUser inserts a new user and fills in generated fields.
func (r *Repository) CreateUser(ctx context.Context, u *models.User) error {
	const q = `INSERT INTO users (id, tenant_id, email, password_hash, full_name, role, permissions, active, email_verified_at)
		VALUES (gen_random_uuid(), $1, lower($2), NULLIF($3,''), $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, u.TenantID, u.Email, u.PasswordHash, u.FullName,
		string(u.Role), u.Permissions, u.Active, u.EmailVerifiedAt).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

// UpdatePassword stores a new password hash.
func (r *Repository) UpdatePassword(ctx context.Context, userID uuid.UUID, hash string) error {
	const q = `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, userID, hash)
	return err
}

// UpdateRole changes a user's role.
func (r *Repository) UpdateRole(ctx context.Context, userID uuid.UUID, role models.Role) error {
	const q = `UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, userID, string(role))
	return err
}

// CreateSession inserts a session row.
func (r *Repository) CreateSession(ctx context.Context, s *models.Session) error {
	const q = `INSERT INTO sessions (id, user_id, token, refresh_token, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`
	return r.pool.QueryRow(ctx, q, s.ID, s.UserID, s.Token, s.RefreshToken, s.ExpiresAt).Scan(&s.CreatedAt)
}

const sessionColumns = `id, user_id, token, refresh_token, expires_at, created_at`

func scanSession(row pgx.Row) (*models.Session, error) {
	var s models.Session
	err := row.Scan(&s.ID, &s.UserID, &s.Token, &s.RefreshToken, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SessionByToken returns a non-expired session for the exact access token, or
// nil. Expiry is checked at read time; no background timer reaps sessions.
func (r *Repository) SessionByToken(ctx context.Context, token string) (*models.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE token = $1 AND expires_at > NOW()`
	return scanSession(r.pool.QueryRow(ctx, q, token))
}

// SessionByRefreshToken returns a non-expired session for the exact refresh
// token, or nil.
func (r *Repository) SessionByRefreshToken(ctx context.Context, token string) (*models.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE refresh_token = $1 AND expires_at > NOW()`
	return scanSession(r.pool.QueryRow(ctx, q, token))
}

// DeleteSession removes the session matching the token.
func (r *Repository) DeleteSession(ctx context.Context, token string) error {
	const q = `DELETE FROM sessions WHERE token = $1`
	_, err := r.pool.Exec(ctx, q, token)
	return err
}

// DeleteUserSessions removes every session for a user.
func (r *Repository) DeleteUserSessions(ctx context.Context, userID uuid.UUID) error {
	const q = `DELETE FROM sessions WHERE user_id = $1`
	_, err := r.pool.Exec(ctx, q, userID)
	return err
}

// DeleteUserSessionsExcept removes every session for a user except the one
// holding the given token.
func (r *Repository) DeleteUserSessionsExcept(ctx context.Context, userID uuid.UUID, token string) error {
	const q = `DELETE FROM sessions WHERE user_id = $1 AND token <> $2`
	_, err := r.pool.Exec(ctx, q, userID, token)
	return err
}
