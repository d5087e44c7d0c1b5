package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmgate/crmgate/internal/domain/entity"
	"github.com/crmgate/crmgate/internal/domain/repository"
)

var userCols = []string{
	"id", "email", "password_hash", "phone", "name", "surname", "address",
	"avatar_url", "role", "is_active", "created_at", "updated_at",
}

func userRow(now time.Time) *pgxmock.Rows {
	return pgxmock.NewRows(userCols).AddRow(
		"user-1", "a@b.co", "$argon2id$...", "+70000000001", "Ada", "Lovelace",
		"", "", "user", true, now, now,
	)
}

func TestUserRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("a@b.co", "$argon2id$...", "", "Ada", "Lovelace", "", "", entity.RoleUser, true).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow("user-1", now, now))

	repo := NewUserRepository(mock)
	u := &entity.User{
		Email:        "a@b.co",
		PasswordHash: "$argon2id$...",
		Name:         "Ada",
		Surname:      "Lovelace",
		Role:         entity.RoleUser,
		IsActive:     true,
	}
	require.NoError(t, repo.Create(context.Background(), u))

	assert.Equal(t, "user-1", u.ID)
	assert.Equal(t, now, u.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmail(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT .+ FROM users WHERE email`).
			WithArgs("a@b.co").
			WillReturnRows(userRow(time.Now()))

		repo := NewUserRepository(mock)
		u, err := repo.GetByEmail(context.Background(), "a@b.co")
		require.NoError(t, err)
		assert.Equal(t, "user-1", u.ID)
		assert.Equal(t, entity.RoleUser, u.Role)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing maps to not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT .+ FROM users WHERE email`).
			WithArgs("missing@b.co").
			WillReturnRows(pgxmock.NewRows(userCols))

		repo := NewUserRepository(mock)
		_, err = repo.GetByEmail(context.Background(), "missing@b.co")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestUserRepository_Update(t *testing.T) {
	t.Run("updates existing row", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`UPDATE users`).
			WithArgs("a@b.co", "$argon2id$...", "", "Grace", "Hopper", "", "",
				entity.RoleUser, true, pgxmock.AnyArg(), "user-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := NewUserRepository(mock)
		err = repo.Update(context.Background(), &entity.User{
			ID:           "user-1",
			Email:        "a@b.co",
			PasswordHash: "$argon2id$...",
			Name:         "Grace",
			Surname:      "Hopper",
			Role:         entity.RoleUser,
			IsActive:     true,
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero rows maps to not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`UPDATE users`).
			WithArgs("a@b.co", "", "", "", "", "", "", entity.RoleUser, true,
				pgxmock.AnyArg(), "ghost").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := NewUserRepository(mock)
		err = repo.Update(context.Background(), &entity.User{
			ID: "ghost", Email: "a@b.co", Role: entity.RoleUser, IsActive: true,
		})
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}
