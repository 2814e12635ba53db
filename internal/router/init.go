package router

import (
	"github.com/oksasatya/go-user-directory/config"
	"github.com/oksasatya/go-user-directory/internal/application"
	"github.com/oksasatya/go-user-directory/internal/container"
	"github.com/oksasatya/go-user-directory/internal/infrastructure/cache"
	handlers "github.com/oksasatya/go-user-directory/internal/interface/http"
	"github.com/oksasatya/go-user-directory/internal/router/modules"
)

type UserModuleDeps struct {
	Service *application.Service
	Handler *handlers.UserHandler
}

func buildUserDeps(cfg *config.Config) UserModuleDeps {
	logger := container.GetLogger()
	policy := application.Policy{
		MinAge:        cfg.RegistrationMinAge,
		UpsertMissing: cfg.UpsertOnMissing(),
	}

	// typed nils must not leak into the interfaces
	var events application.EventPublisher
	if p := container.GetRabbitPub(); p != nil {
		events = p
	}
	var searchCache application.SearchCache
	if rdb := container.GetRedis(); rdb != nil {
		searchCache = cache.NewSearchCache(rdb, cfg.SearchCacheTTL, logger)
	}

	service := application.NewService(container.GetUserRepository(), policy, events, searchCache, logger)
	handler := handlers.NewUserHandler(service, cfg.RegistrationMinAge, logger)

	return UserModuleDeps{Service: service, Handler: handler}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	userDeps := buildUserDeps(cfg)
	r.Add(modules.NewUserModule(userDeps.Handler, container.GetRedis(), cfg.RateLimitPerMinute, cfg.RateLimitSearchPerMinute, cfg.RateLimitBypassLAN))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(container.GetRedis()))
	}
}
