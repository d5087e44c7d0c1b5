package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crmgate/crmgate/internal/domain/entity"
	"github.com/crmgate/crmgate/pkg/response"
)

// RequireRoles allows the request through only when the authenticated user's
// role is one of the given roles. Must run after Auth.
func RequireRoles(roles ...entity.Role) gin.HandlerFunc {
	allowed := make(map[entity.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		role := entity.Role(c.GetString(CtxUserRole))
		if _, ok := allowed[role]; !ok {
			response.Error[any](c, http.StatusForbidden, "Forbidden", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
