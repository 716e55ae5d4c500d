package magiclink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/craftlane/backend/internal/models"
)

// Repository persists magic links in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a magic link repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const linkColumns = `id, tenant_id, email, token, expires_at, used_at, created_at`

func scanLink(row pgx.Row) (*models.MagicLink, error) {
	var l models.MagicLink
	err := row.Scan(&l.ID, &l.TenantID, &l.Email, &l.Token, &l.ExpiresAt, &l.UsedAt, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan magic link: %w", err)
	}
	return &l, nil
}

func (r *Repository) CreateMagicLink(ctx context.Context, l *models.MagicLink) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO magic_links (id, tenant_id, email, token, expires_at)
		VALUES ($1, $2, lower($3), $4, $5)`,
		l.ID, l.TenantID, l.Email, l.Token, l.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert magic link: %w", err)
	}
	return nil
}

func (r *Repository) MagicLinkByToken(ctx context.Context, token string) (*models.MagicLink, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+linkColumns+`
		FROM magic_links
		WHERE token = $1`,
		token,
	)
	return scanLink(row)
}

// MarkUsed stamps used_at only when it is still null, so concurrent
// consumers of the same token cannot both succeed.
func (r *Repository) MarkUsed(ctx context.Context, token string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE magic_links
		SET used_at = NOW()
		WHERE token = $1 AND used_at IS NULL`,
		token,
	)
	if err != nil {
		return false, fmt.Errorf("mark magic link used: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM magic_links
		WHERE used_at IS NULL AND expires_at < $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired magic links: %w", err)
	}
	return tag.RowsAffected(), nil
}
