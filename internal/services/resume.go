package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/applyforge/applyforge-backend/internal/data/repos"
	"github.com/applyforge/applyforge-backend/internal/domain"
	"github.com/applyforge/applyforge-backend/internal/pkg/faults"
	"github.com/applyforge/applyforge-backend/internal/platform/dbctx"
	"github.com/applyforge/applyforge-backend/internal/platform/logger"
)

const maxResumeBytes = 200 * 1024

type ResumeService interface {
	// Save stores the user's resume, replacing any previous one.
	Save(ctx context.Context, userID uuid.UUID, title, text string) (*domain.Resume, error)
	Get(ctx context.Context, userID uuid.UUID) (*domain.Resume, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

type resumeService struct {
	log     *logger.Logger
	resumes repos.ResumeRepo
}

func NewResumeService(baseLog *logger.Logger, resumes repos.ResumeRepo) ResumeService {
	return &resumeService{
		log:     baseLog.With("service", "ResumeService"),
		resumes: resumes,
	}
}

func (s *resumeService) Save(ctx context.Context, userID uuid.UUID, title, text string) (*domain.Resume, error) {
	if userID == uuid.Nil {
		return nil, faults.ErrUnauthorized
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: resume text is required", faults.ErrInvalidArgument)
	}
	if len(text) > maxResumeBytes {
		return nil, fmt.Errorf("%w: resume exceeds %d bytes", faults.ErrInvalidArgument, maxResumeBytes)
	}
	if strings.TrimSpace(title) == "" {
		title = "My Resume"
	}

	resume := &domain.Resume{
		ID:     uuid.New(),
		UserID: userID,
		Title:  title,
		Text:   text,
	}
	if _, err := s.resumes.Upsert(dbctx.Context{Ctx: ctx}, resume); err != nil {
		return nil, faults.NewPersistenceError("resume_upsert_failed", err)
	}
	return resume, nil
}

func (s *resumeService) Get(ctx context.Context, userID uuid.UUID) (*domain.Resume, error) {
	if userID == uuid.Nil {
		return nil, faults.ErrUnauthorized
	}
	resume, err := s.resumes.GetByUserID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, faults.NewPersistenceError("resume_load_failed", err)
	}
	if resume == nil {
		return nil, faults.ErrNotFound
	}
	return resume, nil
}

func (s *resumeService) Delete(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return faults.ErrUnauthorized
	}
	if err := s.resumes.DeleteByUserID(dbctx.Context{Ctx: ctx}, userID); err != nil {
		return faults.NewPersistenceError("resume_delete_failed", err)
	}
	return nil
}
