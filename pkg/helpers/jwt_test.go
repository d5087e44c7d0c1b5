package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmgate/crmgate/internal/domain/entity"
)

func newTestJWT() *JWTManager {
	return NewJWTManager("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
}

func TestJWTManager_AccessRoundTrip(t *testing.T) {
	m := newTestJWT()

	token, exp, err := m.GenerateAccessToken("user-1", "a@b.co", entity.RoleAdmin)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), exp, 5*time.Second)

	claims, err := m.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "a@b.co", claims.Email)
	assert.Equal(t, entity.RoleAdmin, claims.Role)
}

func TestJWTManager_SecretsAreIndependent(t *testing.T) {
	m := newTestJWT()

	access, _, err := m.GenerateAccessToken("user-1", "a@b.co", entity.RoleUser)
	require.NoError(t, err)
	refresh, _, err := m.GenerateRefreshToken("user-1", "a@b.co", entity.RoleUser)
	require.NoError(t, err)

	// a token signed with one secret must fail the other parser
	_, err = m.ParseRefreshToken(access)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = m.ParseAccessToken(refresh)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestJWTManager_WrongSecret(t *testing.T) {
	m := newTestJWT()
	other := NewJWTManager("other-access", "other-refresh", 15*time.Minute, time.Hour)

	token, _, err := m.GenerateAccessToken("user-1", "a@b.co", entity.RoleUser)
	require.NoError(t, err)

	_, err = other.ParseAccessToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestJWTManager_Expired(t *testing.T) {
	m := NewJWTManager("access-secret", "refresh-secret", -time.Minute, -time.Minute)

	token, _, err := m.GenerateAccessToken("user-1", "a@b.co", entity.RoleUser)
	require.NoError(t, err)

	_, err = m.ParseAccessToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestJWTManager_Malformed(t *testing.T) {
	m := newTestJWT()

	for _, token := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := m.ParseAccessToken(token)
		assert.ErrorIs(t, err, ErrTokenMalformed, "token %q", token)
	}
}

func TestJWTManager_EmptySubject(t *testing.T) {
	m := newTestJWT()

	token, _, err := m.GenerateAccessToken("", "a@b.co", entity.RoleUser)
	require.NoError(t, err)

	_, err = m.ParseAccessToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
