package services

import (
	"github.com/google/uuid"

	"github.com/applyforge/applyforge-backend/internal/data/repos"
	"github.com/applyforge/applyforge-backend/internal/domain"
	"github.com/applyforge/applyforge-backend/internal/pkg/faults"
	"github.com/applyforge/applyforge-backend/internal/platform/dbctx"
	"github.com/applyforge/applyforge-backend/internal/platform/logger"
	"github.com/applyforge/applyforge-backend/internal/platform/requestdata"
)

// FeatureGenerationLimit caps generation attempts per (job, artifact type).
// The counter increments on the check itself, so failed generations count too.
const FeatureGenerationLimit = 3

type QuotaService interface {
	CheckFeatureLimit(dbc dbctx.Context, actor *requestdata.RequestData, jobID uuid.UUID, artifactType string) error
}

type quotaService struct {
	log     *logger.Logger
	outputs repos.JobOutputRepo
	limit   int
}

func NewQuotaService(baseLog *logger.Logger, outputs repos.JobOutputRepo) QuotaService {
	return &quotaService{
		log:     baseLog.With("service", "QuotaService"),
		outputs: outputs,
		limit:   FeatureGenerationLimit,
	}
}

func (s *quotaService) CheckFeatureLimit(dbc dbctx.Context, actor *requestdata.RequestData, jobID uuid.UUID, artifactType string) error {
	if actor == nil || actor.UserID == uuid.Nil {
		return faults.ErrUnauthorized
	}
	if actor.IsPrivileged() {
		return nil
	}
	if jobID == uuid.Nil || !domain.ValidArtifactType(artifactType) {
		return faults.ErrInvalidArgument
	}

	allowed, err := s.outputs.IncrementGenerationCount(dbc, jobID, artifactType, s.limit)
	if err != nil {
		return faults.NewPersistenceError("quota_increment_failed", err)
	}
	if !allowed {
		return &faults.QuotaError{JobID: jobID, ArtifactType: artifactType, Limit: s.limit}
	}
	return nil
}
