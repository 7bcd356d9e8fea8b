package router

import (
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/skillvouch/skillvouch/internal/application"
	handlers "github.com/skillvouch/skillvouch/internal/interface/http"
	"github.com/skillvouch/skillvouch/internal/router/modules"
)

// Deps carries the process-wide collaborators, constructed once in main and
// passed down explicitly; there is no module-level container.
type Deps struct {
	Service      *application.Service
	Logger       *logrus.Logger
	Redis        *redis.Client
	DebugMetrics bool
}

// InitModules wires all feature modules into the router registry.
// This function should be called once during application startup.
func InitModules(r *Registry, deps Deps) {
	userHandler := handlers.NewUserHandler(deps.Service, deps.Logger)
	skillHandler := handlers.NewSkillHandler(deps.Service, deps.Logger)

	r.Add(modules.NewUserModule(userHandler, skillHandler, deps.Redis))
	r.Add(modules.NewDebugModule(deps.Redis, deps.DebugMetrics))
}
