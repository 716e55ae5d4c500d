package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/craftlane/backend/internal/models"
)

// Repository persists OAuth account links in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an OAuth account repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const accountColumns = `id, user_id, provider, provider_account_id, access_token, refresh_token, token_expires_at, created_at`

func scanAccount(row pgx.Row) (*models.OAuthAccount, error) {
	var a models.OAuthAccount
	err := row.Scan(&a.ID, &a.UserID, &a.Provider, &a.ProviderAccountID,
		&a.AccessToken, &a.RefreshToken, &a.TokenExpiresAt, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan oauth account: %w", err)
	}
	return &a, nil
}

func (r *Repository) AccountByProviderID(ctx context.Context, provider, providerAccountID string) (*models.OAuthAccount, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM oauth_accounts
		WHERE provider = $1 AND provider_account_id = $2`,
		provider, providerAccountID,
	)
	return scanAccount(row)
}

func (r *Repository) AccountsByUser(ctx context.Context, userID uuid.UUID) ([]*models.OAuthAccount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+accountColumns+`
		FROM oauth_accounts
		WHERE user_id = $1
		ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query oauth accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.OAuthAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *Repository) CreateAccount(ctx context.Context, a *models.OAuthAccount) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO oauth_accounts (id, user_id, provider, provider_account_id, access_token, refresh_token, token_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.UserID, a.Provider, a.ProviderAccountID, a.AccessToken, a.RefreshToken, a.TokenExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert oauth account: %w", err)
	}
	return nil
}

func (r *Repository) UpdateAccountTokens(ctx context.Context, id uuid.UUID, access, refresh string, expiresAt *time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE oauth_accounts
		SET access_token = $2,
		    refresh_token = COALESCE(NULLIF($3, ''), refresh_token),
		    token_expires_at = $4
		WHERE id = $1`,
		id, access, refresh, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("update oauth tokens: %w", err)
	}
	return nil
}

func (r *Repository) DeleteAccount(ctx context.Context, userID uuid.UUID, provider string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM oauth_accounts
		WHERE user_id = $1 AND provider = $2`,
		userID, provider,
	)
	if err != nil {
		return false, fmt.Errorf("delete oauth account: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
