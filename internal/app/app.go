package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/applyforge/applyforge-backend/internal/data/db"
	apphttp "github.com/applyforge/applyforge-backend/internal/http"
	"github.com/applyforge/applyforge-backend/internal/http/middleware"
	"github.com/applyforge/applyforge-backend/internal/observability"
	"github.com/applyforge/applyforge-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services

	server       *apphttp.Server
	cancel       context.CancelFunc
	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(log, cfg, reposet)
	if err != nil {
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, serviceset)

	authMW, err := middleware.NewAuthMiddleware(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("auth middleware: %w", err)
	}

	srv := apphttp.NewServer(apphttp.RouterConfig{
		Log:            log,
		AuthMiddleware: authMW,
		TracingEnabled: observability.Enabled(),
		ServiceName:    cfg.ServiceName,

		HealthHandler:     handlerset.Health,
		JobHandler:        handlerset.Job,
		WorkspaceHandler:  handlerset.Workspace,
		GenerationHandler: handlerset.Generation,
		AdminHandler:      handlerset.Admin,
	})

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       srv.Engine,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		server:       srv,
		otelShutdown: otelShutdown,
	}, nil
}

func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Services.MemoryLimiter != nil {
		a.Services.MemoryLimiter.Start(ctx)
	}
}

func (a *App) Run(addr string) error {
	if a == nil || a.server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.server.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
