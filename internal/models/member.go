package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Member lifecycle statuses. Members are never hard-deleted; deactivation
// flips the status to inactive and preserves referential history.
const (
	MemberStatusActive   = "active"
	MemberStatusInactive = "inactive"
)

// Member represents a recruitment pool participant.
type Member struct {
	ID             string         `gorm:"primaryKey;size:36" json:"id"`
	FirstName      string         `gorm:"size:100;not null" json:"first_name"`
	LastName       string         `gorm:"size:100;not null" json:"last_name"`
	Email          string         `gorm:"uniqueIndex;size:255;not null" json:"email"` // unique regardless of status
	Phone          string         `gorm:"size:30" json:"phone"`
	DateOfBirth    time.Time      `json:"date_of_birth"`
	Gender         string         `gorm:"size:20" json:"gender"` // male, female, other
	Street         string         `gorm:"size:200" json:"street"`
	City           string         `gorm:"size:100" json:"city"`
	State          string         `gorm:"size:100" json:"state"`
	ZipCode        string         `gorm:"size:20" json:"zip_code"`
	Country        string         `gorm:"size:2" json:"country"`
	StudyInterests datatypes.JSON `json:"study_interests"` // array of interest tags
	ConsentGiven   bool           `gorm:"default:false" json:"consent_given"`
	ConsentDate    *time.Time     `json:"consent_date"`
	Notes          string         `gorm:"type:text" json:"notes"`
	Status         string         `gorm:"size:20;default:active;index" json:"status"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (Member) TableName() string { return "members" }

func (m *Member) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Age returns the member's age in whole years at the given reference time.
func (m *Member) Age(now time.Time) int {
	age := now.Year() - m.DateOfBirth.Year()
	if now.YearDay() < m.DateOfBirth.YearDay() {
		age--
	}
	return age
}
