package tenants

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/craftlane/backend/internal/models"
)

// Repository handles tenant persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a tenants repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const tenantColumns = `id, name, slug, custom_domain, logo_url, COALESCE(primary_color,''), active, created_at, updated_at`

func scanTenant(row pgx.Row) (*models.Tenant, error) {
	var t models.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.CustomDomain, &t.LogoURL, &t.PrimaryColor,
		&t.Active, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// TenantByID returns a tenant by ID, or nil when absent.
func (r *Repository) TenantByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	const q = `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return scanTenant(r.pool.QueryRow(ctx, q, id))
}

// TenantBySlug returns a tenant by slug, or nil when absent.
func (r *Repository) TenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	const q = `SELECT ` + tenantColumns + ` FROM tenants WHERE slug = $1`
	return scanTenant(r.pool.QueryRow(ctx, q, slug))
}

// TenantByDomain returns a tenant by custom domain, or nil when absent.
func (r *Repository) TenantByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	const q = `SELECT ` + tenantColumns + ` FROM tenants WHERE custom_domain = $1`
	return scanTenant(r.pool.QueryRow(ctx, q, domain))
}

// CreateTenant inserts a new active tenant.
func (r *Repository) CreateTenant(ctx context.Context, t *models.Tenant) error {
	const q = `INSERT INTO tenants (id, name, slug, custom_domain, active)
		VALUES (gen_random_uuid(), $1, $2, $3, TRUE)
		RETURNING id, active, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, t.Name, t.Slug, t.CustomDomain).
		Scan(&t.ID, &t.Active, &t.CreatedAt, &t.UpdatedAt)
}

// UpdateBranding updates branding fields and returns the fresh row.
func (r *Repository) UpdateBranding(ctx context.Context, id uuid.UUID, name, primaryColor string, customDomain, logoURL *string) (*models.Tenant, error) {
	const q = `UPDATE tenants SET
		name = COALESCE(NULLIF($2,''), name),
		primary_color = COALESCE(NULLIF($3,''), primary_color),
		custom_domain = COALESCE($4, custom_domain),
		logo_url = COALESCE($5, logo_url),
		updated_at = NOW()
		WHERE id = $1
		RETURNING ` + tenantColumns
	return scanTenant(r.pool.QueryRow(ctx, q, id, name, primaryColor, customDomain, logoURL))
}

// SetActive soft-activates or deactivates a tenant.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	const q = `UPDATE tenants SET active = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, active)
	return err
}
