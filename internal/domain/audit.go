package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Privileged actions that must not execute without a committed audit row.
const (
	AuditActionUserDelete      = "user.delete"
	AuditActionUserImpersonate = "user.impersonate"
	AuditActionJobPurge        = "job.purge"
)

// AuditLogEntry is append-only; rows are never updated or deleted.
type AuditLogEntry struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ActorID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"actor_id"`
	Action     string         `gorm:"type:text;not null;index" json:"action"`
	EntityType string         `gorm:"type:text;not null" json:"entity_type"`
	EntityID   string         `gorm:"type:text;not null;index" json:"entity_id"`
	Metadata   datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;index" json:"created_at"`
}

func (AuditLogEntry) TableName() string { return "audit_log_entry" }
