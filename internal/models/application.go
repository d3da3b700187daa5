package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Application statuses form a closed enumeration. The canonical happy path is
// submitted → under_review → screening → interview_scheduled → approved →
// completed, with rejected reachable from every non-terminal stage.
const (
	AppStatusSubmitted          = "submitted"
	AppStatusUnderReview        = "under_review"
	AppStatusScreening          = "screening"
	AppStatusInterviewScheduled = "interview_scheduled"
	AppStatusApproved           = "approved"
	AppStatusRejected           = "rejected"
	AppStatusCompleted          = "completed"
)

// ValidAppStatus reports whether s is a known application status.
func ValidAppStatus(s string) bool {
	_, ok := appTransitions[s]
	return ok
}

// appTransitions is the strict-mode transition table. Terminal statuses map
// to an empty set.
var appTransitions = map[string][]string{
	AppStatusSubmitted:          {AppStatusUnderReview, AppStatusRejected},
	AppStatusUnderReview:        {AppStatusScreening, AppStatusRejected},
	AppStatusScreening:          {AppStatusInterviewScheduled, AppStatusRejected},
	AppStatusInterviewScheduled: {AppStatusApproved, AppStatusRejected},
	AppStatusApproved:           {AppStatusCompleted},
	AppStatusRejected:           {},
	AppStatusCompleted:          {},
}

// CanTransition reports whether the strict transition table allows moving an
// application from one status to the other.
func CanTransition(from, to string) bool {
	for _, next := range appTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TerminalAppStatus reports whether s admits no further transitions.
func TerminalAppStatus(s string) bool {
	next, ok := appTransitions[s]
	return ok && len(next) == 0
}

// Application is a member's application to a study. At most one application
// exists per (member, study) pair, enforced by the composite unique index.
// Applications are never deleted.
type Application struct {
	ID                string         `gorm:"primaryKey;size:36" json:"id"`
	MemberID          string         `gorm:"size:36;not null;uniqueIndex:idx_member_study" json:"member_id"`
	Member            *Member        `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	StudyID           string         `gorm:"size:36;not null;uniqueIndex:idx_member_study;index" json:"study_id"`
	Study             *Study         `gorm:"foreignKey:StudyID" json:"study,omitempty"`
	Answers           datatypes.JSON `json:"answers"` // opaque to the lifecycle engine
	Status            string         `gorm:"size:30;default:submitted;index" json:"status"`
	ScreeningScore    *float64       `json:"screening_score"`
	DecisionNotes     string         `gorm:"type:text" json:"decision_notes"`
	ReviewedBy        *uint          `json:"reviewed_by"`
	ReviewedAt        *time.Time     `json:"reviewed_at"`
	InterviewDate     *time.Time     `json:"interview_date"`
	InterviewLocation string         `gorm:"size:200" json:"interview_location"`
	InterviewNotes    string         `gorm:"type:text" json:"interview_notes"`
	SubmittedAt       time.Time      `gorm:"index" json:"submitted_at"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func (Application) TableName() string { return "applications" }

func (a *Application) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
