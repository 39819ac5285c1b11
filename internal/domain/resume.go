package domain

import (
	"time"

	"github.com/google/uuid"
)

// Resume is the user's single stored resume. Jobs may link to it through
// JobApplication.LinkedResumeID; generation reads its text as input.
type Resume struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Title     string    `gorm:"type:text" json:"title"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Resume) TableName() string { return "resume" }
