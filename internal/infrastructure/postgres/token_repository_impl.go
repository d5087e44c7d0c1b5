package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/crmgate/crmgate/internal/domain/entity"
	"github.com/crmgate/crmgate/internal/domain/repository"
)

type TokenRepository struct {
	db db
}

func NewTokenRepository(db db) *TokenRepository {
	return &TokenRepository{db: db}
}

// Replace deletes every prior row of the user and inserts the new one inside
// a single transaction. The delete and insert must land together; otherwise a
// concurrent login and logout could leave two active rows for one user.
func (r *TokenRepository) Replace(ctx context.Context, userID, token string, expiresAt time.Time) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM auth_tokens WHERE user_id = $1`, userID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO auth_tokens (user_id, refresh_token, expires_at)
		VALUES ($1, $2, $3)
	`, userID, token, expiresAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// FindActive looks up an unrevoked, unexpired row by the raw token string,
// joined with its owning user. Returns ErrNotFound for revoked, expired, or
// unknown tokens alike.
func (r *TokenRepository) FindActive(ctx context.Context, token string) (*repository.StoredToken, error) {
	t := &entity.RefreshToken{}
	u := &entity.User{}
	var revokedAt *time.Time

	row := r.db.QueryRow(ctx, `
		SELECT t.id, t.user_id, t.refresh_token, t.expires_at, t.revoked_at, t.created_at,
		       u.id, u.email, u.password_hash, u.phone, u.name, u.surname, u.address,
		       u.avatar_url, u.role, u.is_active, u.created_at, u.updated_at
		FROM auth_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.refresh_token = $1 AND t.revoked_at IS NULL AND t.expires_at > now()
	`, token)

	if err := row.Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiresAt, &revokedAt, &t.CreatedAt,
		&u.ID, &u.Email, &u.PasswordHash, &u.Phone, &u.Name, &u.Surname, &u.Address,
		&u.AvatarURL, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	t.RevokedAt = revokedAt

	return &repository.StoredToken{Token: t, User: u}, nil
}

// Revoke marks one row as revoked, keeping it for the audit trail.
func (r *TokenRepository) Revoke(ctx context.Context, tokenID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE auth_tokens SET revoked_at = now()
		WHERE id = $1 AND revoked_at IS NULL
	`, tokenID)
	return err
}

// RevokeAll marks every unrevoked row of the user as revoked. Safe to call
// when the user has no active session.
func (r *TokenRepository) RevokeAll(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE auth_tokens SET revoked_at = now()
		WHERE user_id = $1 AND revoked_at IS NULL
	`, userID)
	return err
}

var _ repository.TokenRepository = (*TokenRepository)(nil)
