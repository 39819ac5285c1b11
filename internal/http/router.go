package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/applyforge/applyforge-backend/internal/http/handlers"
	httpMW "github.com/applyforge/applyforge-backend/internal/http/middleware"
	"github.com/applyforge/applyforge-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	AuthMiddleware *httpMW.AuthMiddleware
	TracingEnabled bool
	ServiceName    string

	HealthHandler     *httpH.HealthHandler
	JobHandler        *httpH.JobHandler
	WorkspaceHandler  *httpH.WorkspaceHandler
	GenerationHandler *httpH.GenerationHandler
	AdminHandler      *httpH.AdminHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.CORS())
	r.Use(httpMW.RequestLogger(cfg.Log))

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.JobHandler != nil {
			protected.GET("/jobs", cfg.JobHandler.ListJobs)
			protected.POST("/jobs", cfg.JobHandler.AddJob)
			protected.POST("/jobs/:id/select", cfg.JobHandler.SelectJob)
			protected.DELETE("/jobs/:id", cfg.JobHandler.DeleteJob)
			protected.PUT("/jobs/:id/outputs", cfg.JobHandler.UpdateJobOutputs)
		}

		if cfg.WorkspaceHandler != nil {
			protected.GET("/workspace", cfg.WorkspaceHandler.GetWorkspace)
			protected.GET("/resume", cfg.WorkspaceHandler.GetResume)
			protected.PUT("/resume", cfg.WorkspaceHandler.SaveResume)
			protected.DELETE("/resume", cfg.WorkspaceHandler.DeleteResume)
		}

		if cfg.GenerationHandler != nil {
			protected.POST("/generate/research", cfg.GenerationHandler.RunResearch)
			protected.POST("/generate/cover-letter", cfg.GenerationHandler.GenerateCoverLetter)
			protected.POST("/generate/outreach", cfg.GenerationHandler.GenerateOutreach)
			protected.POST("/generate/interview-prep", cfg.GenerationHandler.GenerateInterviewPrep)
		}

		if cfg.AdminHandler != nil && cfg.AuthMiddleware != nil {
			admin := protected.Group("/admin")
			admin.Use(cfg.AuthMiddleware.RequireAdmin())
			admin.DELETE("/users/:id", cfg.AdminHandler.DeleteUser)
			admin.POST("/users/:id/impersonate", cfg.AdminHandler.ImpersonateUser)
			admin.POST("/jobs/:id/purge", cfg.AdminHandler.PurgeJob)
			admin.GET("/audit", cfg.AdminHandler.ListAudit)
		}
	}

	return r
}
