package router

import "github.com/gin-gonic/gin"

// Module is one routable feature area (auth, users, crm, debug).
// Register mounts the module's routes on the shared API group.
type Module interface {
	Register(rg *gin.RouterGroup)
}
