package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/applyforge/applyforge-backend/internal/data/repos"
	"github.com/applyforge/applyforge-backend/internal/domain"
	"github.com/applyforge/applyforge-backend/internal/pkg/faults"
	"github.com/applyforge/applyforge-backend/internal/platform/dbctx"
	"github.com/applyforge/applyforge-backend/internal/platform/logger"
)

type AuditService interface {
	// GuardedExecute writes the audit entry first and runs effect only after
	// that write committed. An audit write failure aborts with AuditFailure
	// and the effect never runs. The inverse risk, an audited action that
	// never executed, is accepted as the safer failure mode.
	GuardedExecute(ctx context.Context, actorID uuid.UUID, action, entityType, entityID string, metadata map[string]any, effect func(ctx context.Context) error) error
	ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]*domain.AuditLogEntry, error)
}

type auditService struct {
	log  *logger.Logger
	repo repos.AuditLogRepo
}

func NewAuditService(baseLog *logger.Logger, repo repos.AuditLogRepo) AuditService {
	return &auditService{
		log:  baseLog.With("service", "AuditService"),
		repo: repo,
	}
}

func (s *auditService) GuardedExecute(ctx context.Context, actorID uuid.UUID, action, entityType, entityID string, metadata map[string]any, effect func(ctx context.Context) error) error {
	if actorID == uuid.Nil {
		return faults.ErrUnauthorized
	}
	if action == "" || entityType == "" || entityID == "" || effect == nil {
		return faults.ErrInvalidArgument
	}

	var raw datatypes.JSON
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			raw = datatypes.JSON(b)
		}
	}

	entry := &domain.AuditLogEntry{
		ID:         uuid.New(),
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   raw,
	}
	if err := s.repo.Append(dbctx.Context{Ctx: ctx}, entry); err != nil {
		s.log.Error("audit write failed, privileged operation aborted",
			"action", action,
			"entity_type", entityType,
			"entity_id", entityID,
			"actor_id", actorID.String(),
			"error", err,
		)
		return &faults.AuditFailure{
			ActorID:    actorID,
			Action:     action,
			EntityType: entityType,
			EntityID:   entityID,
			Err:        err,
		}
	}

	return effect(ctx)
}

func (s *auditService) ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]*domain.AuditLogEntry, error) {
	return s.repo.ListByEntity(dbctx.Context{Ctx: ctx}, entityType, entityID, limit)
}
