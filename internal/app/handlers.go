package app

import (
	"github.com/applyforge/applyforge-backend/internal/http/handlers"
	"github.com/applyforge/applyforge-backend/internal/platform/logger"
)

type Handlers struct {
	Health     *handlers.HealthHandler
	Job        *handlers.JobHandler
	Workspace  *handlers.WorkspaceHandler
	Generation *handlers.GenerationHandler
	Admin      *handlers.AdminHandler
}

func wireHandlers(log *logger.Logger, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     handlers.NewHealthHandler(),
		Job:        handlers.NewJobHandler(serviceset.JobContext),
		Workspace:  handlers.NewWorkspaceHandler(serviceset.JobContext, serviceset.Resume),
		Generation: handlers.NewGenerationHandler(serviceset.JobContext, serviceset.Generation),
		Admin:      handlers.NewAdminHandler(serviceset.Admin, serviceset.Audit),
	}
}
