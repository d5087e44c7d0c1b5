package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crmgate/crmgate/internal/container"
	"github.com/crmgate/crmgate/internal/domain/entity"
	"github.com/crmgate/crmgate/internal/domain/repository"
	handlers "github.com/crmgate/crmgate/internal/interface/http"
	"github.com/crmgate/crmgate/internal/interface/middleware"
	"github.com/crmgate/crmgate/pkg/helpers"
)

// UserModule wires profile and search routes. Everything is guarded; search
// is restricted to admin and manager roles.

type UserModule struct {
	Handler *handlers.UserHandler
	JWT     *helpers.JWTManager
	Users   repository.UserRepository
}

func NewUserModule(h *handlers.UserHandler, jwt *helpers.JWTManager, users repository.UserRepository) *UserModule {
	return &UserModule{Handler: h, JWT: jwt, Users: users}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()

	users := rg.Group("/users")
	users.Use(middleware.Auth(m.JWT, m.Users))
	users.Use(middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		users.GET("/profile", m.Handler.GetProfile)
		users.PATCH("/profile", m.Handler.UpdateProfile)
		users.POST("/avatar", m.Handler.UploadAvatar)
		users.GET("/search", middleware.RequireRoles(entity.RoleAdmin, entity.RoleManager), m.Handler.Search)
	}
}
