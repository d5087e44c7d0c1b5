package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmgate/crmgate/internal/domain/entity"
	"github.com/crmgate/crmgate/internal/domain/repository"
	"github.com/crmgate/crmgate/pkg/helpers"
)

type stubUserRepo struct {
	users map[string]*entity.User
}

func (r *stubUserRepo) Create(context.Context, *entity.User) error { return nil }
func (r *stubUserRepo) Update(context.Context, *entity.User) error { return nil }
func (r *stubUserRepo) GetByEmail(context.Context, string) (*entity.User, error) {
	return nil, repository.ErrNotFound
}
func (r *stubUserRepo) GetByPhone(context.Context, string) (*entity.User, error) {
	return nil, repository.ErrNotFound
}
func (r *stubUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func authTestRouter(jwt *helpers.JWTManager, users repository.UserRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", Auth(jwt, users), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"id":    c.GetString(CtxUserID),
			"email": c.GetString(CtxUserEmail),
			"role":  c.GetString(CtxUserRole),
		})
	})
	return r
}

func doGet(t *testing.T, r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func messageOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Message
}

func TestAuth(t *testing.T) {
	jwt := helpers.NewJWTManager("access-secret", "refresh-secret", 15*time.Minute, time.Hour)
	user := &entity.User{ID: "user-1", Email: "a@b.co", Role: entity.RoleAdmin, IsActive: true}
	repo := &stubUserRepo{users: map[string]*entity.User{"user-1": user}}
	r := authTestRouter(jwt, repo)

	token, _, err := jwt.GenerateAccessToken("user-1", "a@b.co", entity.RoleAdmin)
	require.NoError(t, err)

	t.Run("missing header", func(t *testing.T) {
		w := doGet(t, r, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Access token is required", messageOf(t, w))
	})

	t.Run("wrong scheme", func(t *testing.T) {
		w := doGet(t, r, "Basic "+token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Access token is required", messageOf(t, w))
	})

	t.Run("bare token without scheme", func(t *testing.T) {
		w := doGet(t, r, token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Access token is required", messageOf(t, w))
	})

	t.Run("garbage token", func(t *testing.T) {
		w := doGet(t, r, "Bearer not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid access token", messageOf(t, w))
	})

	t.Run("expired token", func(t *testing.T) {
		expired := helpers.NewJWTManager("access-secret", "refresh-secret", -time.Minute, time.Hour)
		tok, _, err := expired.GenerateAccessToken("user-1", "a@b.co", entity.RoleAdmin)
		require.NoError(t, err)
		w := doGet(t, r, "Bearer "+tok)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid access token", messageOf(t, w))
	})

	t.Run("refresh token on access route", func(t *testing.T) {
		refresh, _, err := jwt.GenerateRefreshToken("user-1", "a@b.co", entity.RoleAdmin)
		require.NoError(t, err)
		w := doGet(t, r, "Bearer "+refresh)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid access token", messageOf(t, w))
	})

	t.Run("user deleted after token issued", func(t *testing.T) {
		tok, _, err := jwt.GenerateAccessToken("ghost", "ghost@b.co", entity.RoleUser)
		require.NoError(t, err)
		w := doGet(t, r, "Bearer "+tok)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "User not found", messageOf(t, w))
	})

	t.Run("success attaches identity", func(t *testing.T) {
		w := doGet(t, r, "Bearer "+token)
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "user-1", body["id"])
		assert.Equal(t, "a@b.co", body["email"])
		assert.Equal(t, "admin", body["role"])
	})

	t.Run("deactivated between requests", func(t *testing.T) {
		w := doGet(t, r, "Bearer "+token)
		require.Equal(t, http.StatusOK, w.Code)

		// the token stays cryptographically valid, only the account changed
		user.IsActive = false
		defer func() { user.IsActive = true }()

		w = doGet(t, r, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "User account is disabled", messageOf(t, w))
	})
}
