package repository

import (
	"context"
	"time"

	"github.com/crmgate/crmgate/internal/domain/entity"
)

// StoredToken is an active refresh-token row joined with its owning user.
type StoredToken struct {
	Token *entity.RefreshToken
	User  *entity.User
}

// TokenRepository persists issued refresh tokens. Replace enforces the
// at-most-one-active-token-per-user policy: it removes every prior row for
// the user and inserts the new one as a single atomic unit, so a login
// racing a logout can never leave two active rows behind.
type TokenRepository interface {
	// Replace atomically deletes all rows for userID and inserts one new row.
	Replace(ctx context.Context, userID, token string, expiresAt time.Time) error
	// FindActive returns the row matching the raw token string, joined with
	// its owning user, only when revoked_at IS NULL and expires_at > now.
	FindActive(ctx context.Context, token string) (*StoredToken, error)
	// Revoke marks a single row as revoked (sets revoked_at, keeps the row).
	Revoke(ctx context.Context, tokenID string) error
	// RevokeAll marks every unrevoked row of the user as revoked. Idempotent.
	RevokeAll(ctx context.Context, userID string) error
}
