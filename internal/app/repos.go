package app

import (
	"gorm.io/gorm"

	"github.com/applyforge/applyforge-backend/internal/data/repos"
	"github.com/applyforge/applyforge-backend/internal/platform/logger"
)

type Repos struct {
	User      repos.UserRepo
	Resume    repos.ResumeRepo
	Job       repos.JobRepo
	JobOutput repos.JobOutputRepo
	AuditLog  repos.AuditLogRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:      repos.NewUserRepo(db, log),
		Resume:    repos.NewResumeRepo(db, log),
		Job:       repos.NewJobRepo(db, log),
		JobOutput: repos.NewJobOutputRepo(db, log),
		AuditLog:  repos.NewAuditLogRepo(db, log),
	}
}
