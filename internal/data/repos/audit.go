package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/applyforge/applyforge-backend/internal/domain"
	"github.com/applyforge/applyforge-backend/internal/platform/dbctx"
	"github.com/applyforge/applyforge-backend/internal/platform/logger"
)

type AuditLogRepo interface {
	// Append commits the entry before returning; the audit guard depends on
	// that ordering.
	Append(dbc dbctx.Context, entry *domain.AuditLogEntry) error
	ListByEntity(dbc dbctx.Context, entityType, entityID string, limit int) ([]*domain.AuditLogEntry, error)
}

type auditLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAuditLogRepo(db *gorm.DB, baseLog *logger.Logger) AuditLogRepo {
	return &auditLogRepo{db: db, log: baseLog.With("repo", "AuditLogRepo")}
}

func (r *auditLogRepo) Append(dbc dbctx.Context, entry *domain.AuditLogEntry) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if entry == nil {
		return nil
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return t.WithContext(dbc.Ctx).Create(entry).Error
}

func (r *auditLogRepo) ListByEntity(dbc dbctx.Context, entityType, entityID string, limit int) ([]*domain.AuditLogEntry, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var results []*domain.AuditLogEntry
	if err := t.WithContext(dbc.Ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
