package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/skillvouch/skillvouch/internal/interface/http"
	"github.com/skillvouch/skillvouch/internal/interface/middleware"
)

// UserModule wires the user, skill and verification routes.
// All routes are public: the service has no authentication, any caller may
// act as any user id. Mutating routes carry tighter per-IP rate limits.
type UserModule struct {
	Users  *handlers.UserHandler
	Skills *handlers.SkillHandler
	Redis  *redis.Client
}

func NewUserModule(users *handlers.UserHandler, skills *handlers.SkillHandler, rdb *redis.Client) *UserModule {
	return &UserModule{Users: users, Skills: skills, Redis: rdb}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	readLimiter := middleware.RateLimit(m.Redis, 300, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	writeLimiter := middleware.RateLimit(m.Redis, 60, time.Minute, middleware.KeyByIPAndPath(), middleware.AllowPrivateIP())

	rg.POST("/users", writeLimiter, m.Users.Create)
	rg.GET("/users", readLimiter, m.Users.List)
	rg.GET("/users/search", readLimiter, m.Users.Search)
	rg.GET("/users/:id", readLimiter, m.Users.Get)
	rg.PUT("/users/:id", writeLimiter, m.Users.Update)
	rg.DELETE("/users/:id", writeLimiter, m.Users.Delete)

	rg.GET("/users/:id/skills", readLimiter, m.Skills.List)
	rg.POST("/users/:id/skills", writeLimiter, m.Skills.Add)
	rg.DELETE("/users/:id/skills/:skillName", writeLimiter, m.Skills.Remove)
	rg.POST("/users/:id/skills/:skillName/verify", writeLimiter, m.Skills.Verify)
}
