package app

import (
	"fmt"
	"strings"

	"github.com/applyforge/applyforge-backend/internal/domain"
	"github.com/applyforge/applyforge-backend/internal/platform/aiclient"
	"github.com/applyforge/applyforge-backend/internal/platform/logger"
	"github.com/applyforge/applyforge-backend/internal/services"
)

type Services struct {
	RateLimiter services.RateLimiter
	Quota       services.QuotaService
	Audit       services.AuditService
	Resume      services.ResumeService
	JobContext  services.JobContextService
	Generation  services.GenerationService
	Admin       services.AdminService

	// Set only for the in-memory limiter; Start launches its sweeper.
	MemoryLimiter *services.MemoryRateLimiter
}

func wireServices(log *logger.Logger, cfg Config, reposet Repos) (Services, error) {
	log.Info("Wiring services...")

	rules, err := services.LoadRateLimitRules(cfg.RateLimitRulesPath)
	if err != nil {
		return Services{}, fmt.Errorf("rate limit rules: %w", err)
	}

	var limiter services.RateLimiter
	var memLimiter *services.MemoryRateLimiter
	switch strings.ToLower(cfg.RateLimitBackend) {
	case "redis":
		limiter, err = services.NewRedisRateLimiter(log, rules)
		if err != nil {
			return Services{}, fmt.Errorf("redis rate limiter: %w", err)
		}
	default:
		memLimiter = services.NewMemoryRateLimiter(log, rules)
		limiter = memLimiter
	}

	client, err := aiclient.New(log)
	if err != nil {
		return Services{}, fmt.Errorf("ai client: %w", err)
	}

	defaults := domain.WorkspaceDefaults{CoverLetterTone: cfg.CoverLetterTone}

	quota := services.NewQuotaService(log, reposet.JobOutput)
	audit := services.NewAuditService(log, reposet.AuditLog)
	resume := services.NewResumeService(log, reposet.Resume)
	jobContext := services.NewJobContextService(log, reposet.Job, reposet.JobOutput, reposet.Resume, defaults)
	generation := services.NewGenerationService(log, client, limiter, quota, reposet.JobOutput)

	admin, err := services.NewAdminService(log, audit, reposet.User, reposet.Job, reposet.Resume)
	if err != nil {
		return Services{}, fmt.Errorf("admin service: %w", err)
	}

	return Services{
		RateLimiter:   limiter,
		Quota:         quota,
		Audit:         audit,
		Resume:        resume,
		JobContext:    jobContext,
		Generation:    generation,
		Admin:         admin,
		MemoryLimiter: memLimiter,
	}, nil
}
