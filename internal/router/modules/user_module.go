package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-user-directory/internal/interface/http"
	"github.com/oksasatya/go-user-directory/internal/interface/middleware"
)

// UserModule wires the user directory routes:
// POST /users, GET /users/search, GET|PUT|DELETE /users/:userId
// All routes share a per-IP rate limit when redis is configured; search also has
// its own per IP and route limit since it is the only unbounded read.
type UserModule struct {
	Handler         *handlers.UserHandler
	Redis           *redis.Client
	PerMinute       int
	SearchPerMinute int
	BypassLAN       bool
}

func NewUserModule(h *handlers.UserHandler, rdb *redis.Client, perMinute, searchPerMinute int, bypassLAN bool) *UserModule {
	return &UserModule{Handler: h, Redis: rdb, PerMinute: perMinute, SearchPerMinute: searchPerMinute, BypassLAN: bypassLAN}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	var allow middleware.AllowFunc
	if m.BypassLAN {
		allow = middleware.AllowPrivateIP()
	}

	users := rg.Group("/users")
	users.Use(middleware.RateLimit(m.Redis, m.PerMinute, time.Minute, middleware.KeyByIP(), allow))
	searchLimiter := middleware.RateLimit(m.Redis, m.SearchPerMinute, time.Minute, middleware.KeyByIPAndPath(), allow)
	{
		users.POST("", m.Handler.Create)
		users.GET("/search", searchLimiter, m.Handler.Search)
		users.GET("/:userId", m.Handler.Get)
		users.PUT("/:userId", m.Handler.Update)
		users.DELETE("/:userId", m.Handler.Delete)
	}
}
