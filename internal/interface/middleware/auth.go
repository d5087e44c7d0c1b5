package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/crmgate/crmgate/internal/domain/repository"
	"github.com/crmgate/crmgate/pkg/helpers"
	"github.com/crmgate/crmgate/pkg/response"
)

// Gin context keys populated by Auth on success.
const (
	CtxUserID    = "userID"
	CtxUserEmail = "userEmail"
	CtxUserRole  = "userRole"
)

// Auth validates the bearer access token and re-fetches the user so that a
// deactivated or deleted account is rejected immediately, not when its
// token expires. On success it sets userID, userEmail and userRole in the
// Gin context.
func Auth(jwt *helpers.JWTManager, users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Error[any](c, http.StatusUnauthorized, "Access token is required", nil)
			c.Abort()
			return
		}

		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			response.Error[any](c, http.StatusUnauthorized, "Invalid access token", nil)
			c.Abort()
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.Subject)
		if err != nil {
			response.Error[any](c, http.StatusUnauthorized, "User not found", nil)
			c.Abort()
			return
		}
		if !user.IsActive {
			response.Error[any](c, http.StatusUnauthorized, "User account is disabled", nil)
			c.Abort()
			return
		}

		c.Set(CtxUserID, user.ID)
		c.Set(CtxUserEmail, user.Email)
		c.Set(CtxUserRole, string(user.Role))
		c.Next()
	}
}

// bearerToken pulls the token out of the Authorization header. Only the
// Bearer scheme is accepted; a bare token or another scheme counts as
// missing.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
