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

// CRMModule wires the Bitrix24 proxy routes. Reads are open to any
// authenticated user; writes require admin or manager.

type CRMModule struct {
	Handler *handlers.CRMHandler
	JWT     *helpers.JWTManager
	Users   repository.UserRepository
}

func NewCRMModule(h *handlers.CRMHandler, jwt *helpers.JWTManager, users repository.UserRepository) *CRMModule {
	return &CRMModule{Handler: h, JWT: jwt, Users: users}
}

func (m *CRMModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()

	crm := rg.Group("/crm")
	crm.Use(middleware.Auth(m.JWT, m.Users))
	crm.Use(middleware.RateLimit(rdb, 60, time.Minute, middleware.KeyByUserID(), nil))

	writer := middleware.RequireRoles(entity.RoleAdmin, entity.RoleManager)
	{
		crm.GET("/deals", m.Handler.ListDeals)
		crm.GET("/deals/:id", m.Handler.GetDeal)
		crm.POST("/deals", writer, m.Handler.CreateDeal)
		crm.PATCH("/deals/:id", writer, m.Handler.UpdateDeal)
		crm.DELETE("/deals/:id", writer, m.Handler.DeleteDeal)
		crm.POST("/contacts", writer, m.Handler.CreateContact)
	}
}
