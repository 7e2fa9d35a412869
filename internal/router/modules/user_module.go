package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/user-registration-service/internal/interface/http"
	"github.com/oksasatya/user-registration-service/internal/interface/middleware"
)

// RateLimits are per-minute request budgets. Zero disables a limiter.
type RateLimits struct {
	Register int
	Global   int
	Allow    middleware.AllowFunc
}

// UserModule wires the user lifecycle routes:
//
//	POST   /users/register
//	GET    /users
//	GET    /users/search
//	GET    /users/:id
//	PATCH  /users
//	DELETE /users
type UserModule struct {
	Handler *handlers.UserHandler
	Redis   *redis.Client
	Limits  RateLimits
}

func NewUserModule(h *handlers.UserHandler, rdb *redis.Client, limits RateLimits) *UserModule {
	return &UserModule{Handler: h, Redis: rdb, Limits: limits}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	registerLimiter := middleware.RateLimit(m.Redis, m.Limits.Register, time.Minute, middleware.KeyByIPAndPath(), m.Limits.Allow)

	users := rg.Group("/users")
	users.Use(middleware.RateLimit(m.Redis, m.Limits.Global, time.Minute, middleware.KeyByIP(), m.Limits.Allow))
	{
		users.POST("/register", registerLimiter, m.Handler.Register)
		users.GET("", m.Handler.List)
		users.GET("/search", m.Handler.Search)
		users.GET("/:id", m.Handler.Get)
		users.PATCH("", m.Handler.UpdateMany)
		users.DELETE("", m.Handler.DeleteMany)
	}
}
