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

type JobRepo interface {
	// Upsert returns only after the row is durably committed. Callers may use
	// the returned id as a foreign key for dependent writes.
	Upsert(dbc dbctx.Context, job *domain.JobApplication) (uuid.UUID, error)
	GetByID(dbc dbctx.Context, jobID uuid.UUID) (*domain.JobApplication, error)
	// ListByUserIDWithOutputs preloads output rows so callers can pivot them
	// per job without a second round-trip.
	ListByUserIDWithOutputs(dbc dbctx.Context, userID uuid.UUID) ([]*domain.JobApplication, error)
	// Delete removes the job and its output rows in one transaction.
	Delete(dbc dbctx.Context, jobID uuid.UUID) error
	DeleteByUserID(dbc dbctx.Context, userID uuid.UUID) error
}

type jobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRepo(db *gorm.DB, baseLog *logger.Logger) JobRepo {
	return &jobRepo{db: db, log: baseLog.With("repo", "JobRepo")}
}

func (r *jobRepo) Upsert(dbc dbctx.Context, job *domain.JobApplication) (uuid.UUID, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if job == nil {
		return uuid.Nil, nil
	}
	now := time.Now().UTC()
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = domain.JobStatusSaved
	}

	err := t.WithContext(dbc.Ctx).
		Omit("Outputs").
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "company", "description", "company_url", "source_url",
				"context_name", "linked_resume_id", "status", "updated_at",
			}),
		}).
		Create(job).Error
	if err != nil {
		return uuid.Nil, err
	}
	return job.ID, nil
}

func (r *jobRepo) GetByID(dbc dbctx.Context, jobID uuid.UUID) (*domain.JobApplication, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if jobID == uuid.Nil {
		return nil, nil
	}
	var row domain.JobApplication
	if err := t.WithContext(dbc.Ctx).
		Preload("Outputs").
		Where("id = ?", jobID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *jobRepo) ListByUserIDWithOutputs(dbc dbctx.Context, userID uuid.UUID) ([]*domain.JobApplication, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var results []*domain.JobApplication
	if userID == uuid.Nil {
		return results, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Preload("Outputs").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *jobRepo) Delete(dbc dbctx.Context, jobID uuid.UUID) error {
	if jobID == uuid.Nil {
		return nil
	}
	del := func(tx *gorm.DB) error {
		if err := tx.WithContext(dbc.Ctx).
			Where("job_id = ?", jobID).
			Delete(&domain.JobOutputRecord{}).Error; err != nil {
			return err
		}
		return tx.WithContext(dbc.Ctx).
			Where("id = ?", jobID).
			Delete(&domain.JobApplication{}).Error
	}
	if dbc.Tx != nil {
		return del(dbc.Tx)
	}
	return r.db.WithContext(dbc.Ctx).Transaction(del)
}

func (r *jobRepo) DeleteByUserID(dbc dbctx.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return nil
	}
	del := func(tx *gorm.DB) error {
		if err := tx.WithContext(dbc.Ctx).
			Where("job_id IN (?)", tx.Session(&gorm.Session{NewDB: true}).
				Model(&domain.JobApplication{}).
				Select("id").
				Where("user_id = ?", userID)).
			Delete(&domain.JobOutputRecord{}).Error; err != nil {
			return err
		}
		return tx.WithContext(dbc.Ctx).
			Where("user_id = ?", userID).
			Delete(&domain.JobApplication{}).Error
	}
	if dbc.Tx != nil {
		return del(dbc.Tx)
	}
	return r.db.WithContext(dbc.Ctx).Transaction(del)
}
