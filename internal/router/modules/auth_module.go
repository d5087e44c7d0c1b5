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

// AuthModule wires the auth HTTP handlers into routes.
// Public: POST /api/auth/register, /api/auth/login, /api/auth/refresh
// Protected: POST /api/auth/logout, GET /api/auth/profile
// Admin: GET /api/auth/admin-only

type AuthModule struct {
	Handler *handlers.AuthHandler
	JWT     *helpers.JWTManager
	Users   repository.UserRepository
}

func NewAuthModule(h *handlers.AuthHandler, jwt *helpers.JWTManager, users repository.UserRepository) *AuthModule {
	return &AuthModule{Handler: h, JWT: jwt, Users: users}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	registerLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	loginLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIP(), nil)
	refreshLimiter := middleware.RateLimit(rdb, 60, time.Minute, middleware.KeyByIP(), nil)

	auth := rg.Group("/auth")
	auth.POST("/register", registerLimiter, m.Handler.Register)
	auth.POST("/login", loginLimiter, m.Handler.Login)
	auth.POST("/refresh", refreshLimiter, m.Handler.Refresh)

	guarded := auth.Group("/")
	guarded.Use(middleware.Auth(m.JWT, m.Users))
	guarded.Use(middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		guarded.POST("/logout", m.Handler.Logout)
		guarded.GET("/profile", m.Handler.Profile)
		guarded.GET("/admin-only", middleware.RequireRoles(entity.RoleAdmin), m.Handler.AdminOnly)
	}
}
