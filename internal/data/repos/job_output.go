package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/applyforge/applyforge-backend/internal/domain"
	"github.com/applyforge/applyforge-backend/internal/platform/dbctx"
	"github.com/applyforge/applyforge-backend/internal/platform/logger"
)

// OutputUpsert is one artifact payload to write for a job. Snapshot building
// omits empty artifacts, so a batch never overwrites saved content with blanks.
type OutputUpsert struct {
	ArtifactType string
	Content      datatypes.JSON
}

type JobOutputRepo interface {
	// UpsertBatch writes all patches keyed by (job_id, artifact_type) in a
	// single transaction; it either fully applies or fully fails.
	UpsertBatch(dbc dbctx.Context, jobID uuid.UUID, patches []OutputUpsert) error
	GetByJobID(dbc dbctx.Context, jobID uuid.UUID) ([]*domain.JobOutputRecord, error)
	// IncrementGenerationCount atomically increments the counter for
	// (job_id, artifact_type) if it is below max. Creates the row at zero
	// first when absent. Returns false when the ceiling is already reached.
	IncrementGenerationCount(dbc dbctx.Context, jobID uuid.UUID, artifactType string, max int) (bool, error)
}

type jobOutputRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobOutputRepo(db *gorm.DB, baseLog *logger.Logger) JobOutputRepo {
	return &jobOutputRepo{db: db, log: baseLog.With("repo", "JobOutputRepo")}
}

func (r *jobOutputRepo) UpsertBatch(dbc dbctx.Context, jobID uuid.UUID, patches []OutputUpsert) error {
	if jobID == uuid.Nil || len(patches) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]*domain.JobOutputRecord, 0, len(patches))
	for _, p := range patches {
		if !domain.ValidArtifactType(p.ArtifactType) {
			continue
		}
		rows = append(rows, &domain.JobOutputRecord{
			ID:           uuid.New(),
			JobID:        jobID,
			ArtifactType: p.ArtifactType,
			Content:      p.Content,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	if len(rows) == 0 {
		return nil
	}

	write := func(tx *gorm.DB) error {
		return tx.WithContext(dbc.Ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "job_id"}, {Name: "artifact_type"}},
				DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
			}).
			Create(&rows).Error
	}
	if dbc.Tx != nil {
		return write(dbc.Tx)
	}
	return r.db.WithContext(dbc.Ctx).Transaction(write)
}

func (r *jobOutputRepo) GetByJobID(dbc dbctx.Context, jobID uuid.UUID) ([]*domain.JobOutputRecord, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var results []*domain.JobOutputRecord
	if jobID == uuid.Nil {
		return results, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("job_id = ?", jobID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *jobOutputRepo) IncrementGenerationCount(dbc dbctx.Context, jobID uuid.UUID, artifactType string, max int) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if jobID == uuid.Nil || !domain.ValidArtifactType(artifactType) || max <= 0 {
		return false, nil
	}

	now := time.Now().UTC()
	seed := &domain.JobOutputRecord{
		ID:           uuid.New(),
		JobID:        jobID,
		ArtifactType: artifactType,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(seed).Error; err != nil {
		return false, err
	}

	// Check-and-increment as one statement so two near-simultaneous requests
	// cannot both pass the ceiling.
	res := t.WithContext(dbc.Ctx).
		Model(&domain.JobOutputRecord{}).
		Where("job_id = ? AND artifact_type = ? AND generation_count < ?", jobID, artifactType, max).
		Updates(map[string]any{
			"generation_count": gorm.Expr("generation_count + 1"),
			"updated_at":       now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
