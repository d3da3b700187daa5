package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Study lifecycle statuses.
const (
	StudyStatusDraft     = "draft"
	StudyStatusActive    = "active"
	StudyStatusPaused    = "paused"
	StudyStatusCompleted = "completed"
	StudyStatusCancelled = "cancelled"
)

// ValidStudyStatus reports whether s is a known study status.
func ValidStudyStatus(s string) bool {
	switch s {
	case StudyStatusDraft, StudyStatusActive, StudyStatusPaused, StudyStatusCompleted, StudyStatusCancelled:
		return true
	}
	return false
}

// Study represents a clinical study recruiting participants.
// CurrentParticipants counts reserved slots and may never exceed
// MaxParticipants while the study is active; the counter is maintained
// inside the submission transaction, never written directly by handlers.
type Study struct {
	ID                  string         `gorm:"primaryKey;size:36" json:"id"`
	Title               string         `gorm:"size:200;not null" json:"title"`
	Description         string         `gorm:"type:text" json:"description"`
	ProtocolNumber      string         `gorm:"size:50" json:"protocol_number"`
	StartDate           time.Time      `json:"start_date"`
	EndDate             time.Time      `json:"end_date"`
	MaxParticipants     int            `gorm:"not null" json:"max_participants"`
	CurrentParticipants int            `gorm:"default:0" json:"current_participants"`
	EligibilityCriteria datatypes.JSON `json:"eligibility_criteria"` // ordered free-text rules
	Status              string         `gorm:"size:20;default:draft;index" json:"status"`
	CreatedBy           uint           `json:"created_by"`
	CreatedAt           time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Study) TableName() string { return "studies" }

func (s *Study) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
