package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	JobStatusSaved        = "saved"
	JobStatusApplied      = "applied"
	JobStatusInterviewing = "interviewing"
	JobStatusOffer        = "offer"
	JobStatusRejected     = "rejected"
	JobStatusArchived     = "archived"
)

// Artifact types for generated outputs. One JobOutputRecord per
// (job_id, artifact_type).
const (
	ArtifactResearch        = "research"
	ArtifactAnalysis        = "analysis"
	ArtifactCoverLetter     = "cover_letter"
	ArtifactOutreachMessage = "outreach_message"
	ArtifactInterviewPrep   = "interview_prep"
)

func ArtifactTypes() []string {
	return []string{
		ArtifactResearch,
		ArtifactAnalysis,
		ArtifactCoverLetter,
		ArtifactOutreachMessage,
		ArtifactInterviewPrep,
	}
}

func ValidArtifactType(t string) bool {
	switch t {
	case ArtifactResearch, ArtifactAnalysis, ArtifactCoverLetter, ArtifactOutreachMessage, ArtifactInterviewPrep:
		return true
	default:
		return false
	}
}

type JobApplication struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Title          string     `gorm:"type:text;not null" json:"title"`
	Company        string     `gorm:"type:text;not null" json:"company"`
	Description    string     `gorm:"type:text" json:"description"`
	CompanyURL     *string    `gorm:"column:company_url;type:text" json:"company_url,omitempty"`
	SourceURL      *string    `gorm:"column:source_url;type:text" json:"source_url,omitempty"`
	ContextName    string     `gorm:"type:text;not null" json:"context_name"`
	LinkedResumeID *uuid.UUID `gorm:"type:uuid;column:linked_resume_id" json:"linked_resume_id,omitempty"`
	Status         string     `gorm:"type:text;not null;index" json:"status"`
	CreatedAt      time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updated_at"`

	Outputs []JobOutputRecord `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE" json:"outputs,omitempty"`
}

func (JobApplication) TableName() string { return "job_application" }

// OutputsByType pivots the preloaded output rows into a keyed map.
func (j *JobApplication) OutputsByType() map[string]*JobOutputRecord {
	out := make(map[string]*JobOutputRecord, len(j.Outputs))
	for i := range j.Outputs {
		out[j.Outputs[i].ArtifactType] = &j.Outputs[i]
	}
	return out
}

// JobOutputRecord holds one generated artifact for one job. The natural key
// (job_id, artifact_type) is unique; writes go through upsert, never
// delete-then-insert.
type JobOutputRecord struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	JobID           uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:ux_job_output_job_artifact,priority:1" json:"job_id"`
	ArtifactType    string         `gorm:"type:text;not null;uniqueIndex:ux_job_output_job_artifact,priority:2" json:"artifact_type"`
	Content         datatypes.JSON `gorm:"type:jsonb" json:"content,omitempty"`
	GenerationCount int            `gorm:"not null;default:0" json:"generation_count"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}

func (JobOutputRecord) TableName() string { return "job_output_record" }
