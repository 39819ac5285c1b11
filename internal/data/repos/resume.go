package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/applyforge/applyforge-backend/internal/domain"
	"github.com/applyforge/applyforge-backend/internal/platform/dbctx"
	"github.com/applyforge/applyforge-backend/internal/platform/logger"
)

type ResumeRepo interface {
	// Upsert keys on user_id; each user owns at most one resume.
	Upsert(dbc dbctx.Context, resume *domain.Resume) (uuid.UUID, error)
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*domain.Resume, error)
	DeleteByUserID(dbc dbctx.Context, userID uuid.UUID) error
}

type resumeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResumeRepo(db *gorm.DB, baseLog *logger.Logger) ResumeRepo {
	return &resumeRepo{db: db, log: baseLog.With("repo", "ResumeRepo")}
}

func (r *resumeRepo) Upsert(dbc dbctx.Context, resume *domain.Resume) (uuid.UUID, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if resume == nil || resume.UserID == uuid.Nil {
		return uuid.Nil, nil
	}
	now := time.Now().UTC()
	if resume.ID == uuid.Nil {
		resume.ID = uuid.New()
	}
	if resume.CreatedAt.IsZero() {
		resume.CreatedAt = now
	}
	resume.UpdatedAt = now

	err := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "text", "updated_at"}),
		}).
		Create(resume).Error
	if err != nil {
		return uuid.Nil, err
	}
	return resume.ID, nil
}

func (r *resumeRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*domain.Resume, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil {
		return nil, nil
	}
	var row domain.Resume
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *resumeRepo) DeleteByUserID(dbc dbctx.Context, userID uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Delete(&domain.Resume{}).Error
}
