package router

import (
	app "github.com/crmgate/crmgate/internal/application"
	"github.com/crmgate/crmgate/internal/container"
	pginfra "github.com/crmgate/crmgate/internal/infrastructure/postgres"
	handlers "github.com/crmgate/crmgate/internal/interface/http"
	"github.com/crmgate/crmgate/internal/router/modules"
)

// InitModules constructs repositories, services and handlers from the
// container singletons and registers every feature module with the registry.
// Called once during startup.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	pool := container.GetPGPool()

	userRepo := pginfra.NewUserRepository(pool)
	tokenRepo := pginfra.NewTokenRepository(pool)

	var pub app.Publisher
	if rp := container.GetRabbitPub(); rp != nil {
		pub = rp
	}
	authSvc := app.NewAuthService(userRepo, tokenRepo, container.GetJWT(), pub, logger)
	userSvc := app.NewUserService(userRepo, container.GetGCS(), cfg.GCSBucket, container.GetES(), cfg.ESUsersIndex, logger)

	authHandler := handlers.NewAuthHandler(authSvc, userSvc, logger)
	userHandler := handlers.NewUserHandler(userSvc, logger)
	crmHandler := handlers.NewCRMHandler(container.GetCRM(), logger)

	r.Add(modules.NewAuthModule(authHandler, container.GetJWT(), userRepo))
	r.Add(modules.NewUserModule(userHandler, container.GetJWT(), userRepo))
	r.Add(modules.NewCRMModule(crmHandler, container.GetJWT(), userRepo))
	r.Add(modules.NewDebugModule())
}
