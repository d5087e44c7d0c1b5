package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmgate/crmgate/internal/domain/repository"
)

var tokenJoinColumns = []string{
	"id", "user_id", "refresh_token", "expires_at", "revoked_at", "created_at",
	"id", "email", "password_hash", "phone", "name", "surname", "address",
	"avatar_url", "role", "is_active", "created_at", "updated_at",
}

func TestTokenRepository_Replace(t *testing.T) {
	exp := time.Now().Add(7 * 24 * time.Hour)

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   bool
	}{
		{
			name: "delete and insert commit together",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(`DELETE FROM auth_tokens WHERE user_id`).
					WithArgs("user-1").
					WillReturnResult(pgxmock.NewResult("DELETE", 2))
				mock.ExpectExec(`INSERT INTO auth_tokens`).
					WithArgs("user-1", "new-token", exp).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "no prior rows is fine",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(`DELETE FROM auth_tokens WHERE user_id`).
					WithArgs("user-1").
					WillReturnResult(pgxmock.NewResult("DELETE", 0))
				mock.ExpectExec(`INSERT INTO auth_tokens`).
					WithArgs("user-1", "new-token", exp).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "insert failure rolls back the delete",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(`DELETE FROM auth_tokens WHERE user_id`).
					WithArgs("user-1").
					WillReturnResult(pgxmock.NewResult("DELETE", 1))
				mock.ExpectExec(`INSERT INTO auth_tokens`).
					WithArgs("user-1", "new-token", exp).
					WillReturnError(errors.New("connection reset"))
				mock.ExpectRollback()
			},
			wantErr: true,
		},
		{
			name: "begin failure",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.setupMock(mock)

			repo := NewTokenRepository(mock)
			err = repo.Replace(context.Background(), "user-1", "new-token", exp)

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTokenRepository_FindActive(t *testing.T) {
	now := time.Now()

	t.Run("active row with owner", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		rows := pgxmock.NewRows(tokenJoinColumns).AddRow(
			"tok-1", "user-1", "raw-token", now.Add(time.Hour), nil, now.Add(-time.Hour),
			"user-1", "a@b.co", "$argon2id$...", "", "Ada", "Lovelace", "",
			"", "admin", true, now.Add(-48*time.Hour), now.Add(-time.Hour),
		)
		mock.ExpectQuery(`FROM auth_tokens t`).
			WithArgs("raw-token").
			WillReturnRows(rows)

		repo := NewTokenRepository(mock)
		stored, err := repo.FindActive(context.Background(), "raw-token")
		require.NoError(t, err)

		assert.Equal(t, "tok-1", stored.Token.ID)
		assert.Equal(t, "user-1", stored.Token.UserID)
		assert.Nil(t, stored.Token.RevokedAt)
		assert.Equal(t, "a@b.co", stored.User.Email)
		assert.True(t, stored.User.IsActive)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no matching row maps to not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`FROM auth_tokens t`).
			WithArgs("revoked-or-unknown").
			WillReturnRows(pgxmock.NewRows(tokenJoinColumns))

		repo := NewTokenRepository(mock)
		_, err = repo.FindActive(context.Background(), "revoked-or-unknown")
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTokenRepository_Revoke(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`UPDATE auth_tokens SET revoked_at`).
		WithArgs("tok-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewTokenRepository(mock)
	require.NoError(t, repo.Revoke(context.Background(), "tok-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepository_RevokeAll(t *testing.T) {
	t.Run("revokes every active row", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`UPDATE auth_tokens SET revoked_at`).
			WithArgs("user-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 3))

		repo := NewTokenRepository(mock)
		require.NoError(t, repo.RevokeAll(context.Background(), "user-1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("idempotent when nothing is active", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`UPDATE auth_tokens SET revoked_at`).
			WithArgs("user-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := NewTokenRepository(mock)
		require.NoError(t, repo.RevokeAll(context.Background(), "user-1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
