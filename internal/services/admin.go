package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/applyforge/applyforge-backend/internal/data/repos"
	"github.com/applyforge/applyforge-backend/internal/domain"
	"github.com/applyforge/applyforge-backend/internal/pkg/faults"
	"github.com/applyforge/applyforge-backend/internal/platform/dbctx"
	"github.com/applyforge/applyforge-backend/internal/platform/logger"
	"github.com/applyforge/applyforge-backend/internal/platform/requestdata"
)

// AdminService is the privileged surface. Every destructive or identity
// operation routes through the audit guard; none of them execute unless the
// audit entry committed first.
type AdminService interface {
	DeleteUser(ctx context.Context, actor *requestdata.RequestData, userID uuid.UUID) error
	// ImpersonateUser mints a short-lived user token for support debugging.
	ImpersonateUser(ctx context.Context, actor *requestdata.RequestData, userID uuid.UUID) (string, error)
	PurgeJob(ctx context.Context, actor *requestdata.RequestData, jobID uuid.UUID) error
}

type adminService struct {
	log     *logger.Logger
	audit   AuditService
	users   repos.UserRepo
	jobs    repos.JobRepo
	resumes repos.ResumeRepo
	secret  []byte
}

func NewAdminService(
	baseLog *logger.Logger,
	audit AuditService,
	users repos.UserRepo,
	jobs repos.JobRepo,
	resumes repos.ResumeRepo,
) (AdminService, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("missing JWT_SECRET")
	}
	return &adminService{
		log:     baseLog.With("service", "AdminService"),
		audit:   audit,
		users:   users,
		jobs:    jobs,
		resumes: resumes,
		secret:  []byte(secret),
	}, nil
}

func (s *adminService) requireAdmin(actor *requestdata.RequestData) error {
	if actor == nil || actor.UserID == uuid.Nil {
		return faults.ErrUnauthorized
	}
	if !actor.IsPrivileged() {
		return faults.ErrUnauthorized
	}
	return nil
}

func (s *adminService) DeleteUser(ctx context.Context, actor *requestdata.RequestData, userID uuid.UUID) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}
	if userID == uuid.Nil {
		return faults.ErrInvalidArgument
	}
	target, err := s.users.GetByID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return faults.NewPersistenceError("user_load_failed", err)
	}
	if target == nil {
		return faults.ErrNotFound
	}

	meta := map[string]any{"email": target.Email}
	return s.audit.GuardedExecute(ctx, actor.UserID, domain.AuditActionUserDelete, "user", userID.String(), meta, func(ctx context.Context) error {
		dbc := dbctx.Context{Ctx: ctx}
		if err := s.jobs.DeleteByUserID(dbc, userID); err != nil {
			return faults.NewPersistenceError("user_jobs_delete_failed", err)
		}
		if err := s.resumes.DeleteByUserID(dbc, userID); err != nil {
			return faults.NewPersistenceError("user_resume_delete_failed", err)
		}
		if err := s.users.Delete(dbc, userID); err != nil {
			return faults.NewPersistenceError("user_delete_failed", err)
		}
		return nil
	})
}

func (s *adminService) ImpersonateUser(ctx context.Context, actor *requestdata.RequestData, userID uuid.UUID) (string, error) {
	if err := s.requireAdmin(actor); err != nil {
		return "", err
	}
	if userID == uuid.Nil {
		return "", faults.ErrInvalidArgument
	}
	target, err := s.users.GetByID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return "", faults.NewPersistenceError("user_load_failed", err)
	}
	if target == nil {
		return "", faults.ErrNotFound
	}

	var token string
	meta := map[string]any{"impersonated_email": target.Email}
	err = s.audit.GuardedExecute(ctx, actor.UserID, domain.AuditActionUserImpersonate, "user", userID.String(), meta, func(ctx context.Context) error {
		now := time.Now().UTC()
		claims := jwt.MapClaims{
			"user_id":    userID.String(),
			"session_id": uuid.New().String(),
			"role":       requestdata.RoleUser,
			"iat":        now.Unix(),
			"exp":        now.Add(30 * time.Minute).Unix(),
		}
		signed, signErr := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
		if signErr != nil {
			return signErr
		}
		token = signed
		return nil
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *adminService) PurgeJob(ctx context.Context, actor *requestdata.RequestData, jobID uuid.UUID) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}
	if jobID == uuid.Nil {
		return faults.ErrInvalidArgument
	}
	job, err := s.jobs.GetByID(dbctx.Context{Ctx: ctx}, jobID)
	if err != nil {
		return faults.NewPersistenceError("job_load_failed", err)
	}
	if job == nil {
		return faults.ErrNotFound
	}

	meta := map[string]any{"company": job.Company, "title": job.Title, "owner_id": job.UserID.String()}
	return s.audit.GuardedExecute(ctx, actor.UserID, domain.AuditActionJobPurge, "job", jobID.String(), meta, func(ctx context.Context) error {
		if err := s.jobs.Delete(dbctx.Context{Ctx: ctx}, jobID); err != nil {
			return faults.NewPersistenceError("job_delete_failed", err)
		}
		return nil
	})
}
