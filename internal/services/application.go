package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/clinreach/clinreach/internal/models"
	"github.com/clinreach/clinreach/pkg/logger"
	"github.com/clinreach/clinreach/pkg/response"
)

// ApplicationService drives the application lifecycle: transactional
// submission against study capacity, staged status review, and interview
// scheduling. Strict mode enforces the stage-by-stage transition table;
// otherwise any known status is reachable from any non-terminal state.
type ApplicationService struct {
	db     *gorm.DB
	strict bool
}

func NewApplicationService(db *gorm.DB, strict bool) *ApplicationService {
	return &ApplicationService{db: db, strict: strict}
}

type SubmitApplicationRequest struct {
	MemberID string         `json:"member_id" binding:"required"`
	StudyID  string         `json:"study_id" binding:"required"`
	Answers  datatypes.JSON `json:"answers"`
}

type UpdateApplicationStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

type ReviewApplicationRequest struct {
	Status         string   `json:"status" binding:"required"`
	ScreeningScore *float64 `json:"screening_score"`
	Notes          string   `json:"notes"`
}

type ScheduleInterviewRequest struct {
	InterviewDate time.Time `json:"interview_date" binding:"required"`
	Location      string    `json:"location"`
	Notes         string    `json:"notes"`
}

type ApplicationListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	StudyID  string `form:"study_id"`
	MemberID string `form:"member_id"`
	Status   string `form:"status"`
}

type ApplicationListResponse struct {
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
	Items    []models.Application `json:"items"`
}

// Submit creates an application inside a single transaction that also
// reserves a participant slot on the study. The counter increment is a
// guarded conditional update, so concurrent submissions against the last
// open slots serialize on the row and only capacity-many can succeed. The
// composite unique index on (member_id, study_id) is the authoritative
// duplicate guard; the pre-check only produces a friendlier error earlier.
func (s *ApplicationService) Submit(req *SubmitApplicationRequest) (*models.Application, error) {
	var app *models.Application

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var study models.Study
		if err := tx.Where("id = ?", req.StudyID).First(&study).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.NewNotFound("study not found")
			}
			return err
		}

		if study.Status != models.StudyStatusActive {
			return response.NewInvalidState("study is not currently accepting applications")
		}

		if study.CurrentParticipants >= study.MaxParticipants {
			return response.NewCapacityExceeded("study has reached maximum participants")
		}

		var member models.Member
		if err := tx.Where("id = ?", req.MemberID).First(&member).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.NewNotFound("member not found")
			}
			return err
		}
		if member.Status != models.MemberStatusActive {
			return response.NewNotFound("member not found")
		}

		var count int64
		if err := tx.Model(&models.Application{}).
			Where("member_id = ? AND study_id = ?", req.MemberID, req.StudyID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return response.NewConflict("application already exists for this study")
		}

		// Reserve the slot. The WHERE clause re-checks status and capacity
		// at write time, so a racing submission that consumed the last slot
		// makes this a no-op instead of overshooting the cap.
		result := tx.Model(&models.Study{}).
			Where("id = ? AND status = ? AND current_participants < max_participants",
				req.StudyID, models.StudyStatusActive).
			UpdateColumn("current_participants", gorm.Expr("current_participants + 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return response.NewCapacityExceeded("study has reached maximum participants")
		}

		app = &models.Application{
			MemberID:    req.MemberID,
			StudyID:     req.StudyID,
			Answers:     req.Answers,
			Status:      models.AppStatusSubmitted,
			SubmittedAt: time.Now(),
		}
		if err := tx.Create(app).Error; err != nil {
			if isDuplicateKeyErr(err) {
				return response.NewConflict("application already exists for this study")
			}
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("[Application] Submitted: id=%s member=%s study=%s", app.ID, app.MemberID, app.StudyID)

	if queue := GetTaskQueue(); queue != nil {
		task := &NotificationTask{
			Type:          NotificationSubmissionReceived,
			ApplicationID: app.ID,
			MemberID:      app.MemberID,
			StudyID:       app.StudyID,
		}
		if err := queue.Enqueue(task); err != nil {
			logger.Warnf("[Application] Failed to enqueue submission notification: %v", err)
		}
	}

	return app, nil
}

// UpdateStatus moves an application to a new status. Terminal statuses never
// admit further writes. In strict mode the move must also be legal per the
// transition table. Concurrent updates are last-write-wins.
func (s *ApplicationService) UpdateStatus(id string, reviewerID uint, req *UpdateApplicationStatusRequest) (*models.Application, error) {
	if !models.ValidAppStatus(req.Status) {
		return nil, response.NewBadRequest("unknown application status: " + req.Status)
	}

	var app models.Application
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&app).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.NewNotFound("application not found")
			}
			return err
		}

		if models.TerminalAppStatus(app.Status) {
			return response.NewInvalidState("application is in a terminal state")
		}
		if s.strict && !models.CanTransition(app.Status, req.Status) {
			return response.NewInvalidState("cannot move application from " + app.Status + " to " + req.Status)
		}

		now := time.Now()
		app.Status = req.Status
		app.ReviewedBy = &reviewerID
		app.ReviewedAt = &now
		if req.Notes != "" {
			app.DecisionNotes = req.Notes
		}
		return tx.Save(&app).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifyDecision(&app)
	return &app, nil
}

// Review records a screening outcome: score, notes and the decision status
// land on the application in one write.
func (s *ApplicationService) Review(id string, reviewerID uint, req *ReviewApplicationRequest) (*models.Application, error) {
	if !models.ValidAppStatus(req.Status) {
		return nil, response.NewBadRequest("unknown application status: " + req.Status)
	}

	var app models.Application
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&app).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.NewNotFound("application not found")
			}
			return err
		}

		if models.TerminalAppStatus(app.Status) {
			return response.NewInvalidState("application is in a terminal state")
		}
		if s.strict && !models.CanTransition(app.Status, req.Status) {
			return response.NewInvalidState("cannot move application from " + app.Status + " to " + req.Status)
		}

		now := time.Now()
		app.Status = req.Status
		app.ScreeningScore = req.ScreeningScore
		app.ReviewedBy = &reviewerID
		app.ReviewedAt = &now
		if req.Notes != "" {
			app.DecisionNotes = req.Notes
		}
		return tx.Save(&app).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifyDecision(&app)
	return &app, nil
}

// ScheduleInterview sets the interview slot and advances the application to
// interview_scheduled. The interview date must be in the future.
func (s *ApplicationService) ScheduleInterview(id string, reviewerID uint, req *ScheduleInterviewRequest) (*models.Application, error) {
	if !req.InterviewDate.After(time.Now()) {
		return nil, response.NewBadRequest("interview date must be in the future")
	}

	var app models.Application
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&app).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.NewNotFound("application not found")
			}
			return err
		}

		if models.TerminalAppStatus(app.Status) {
			return response.NewInvalidState("application is in a terminal state")
		}
		if s.strict && !models.CanTransition(app.Status, models.AppStatusInterviewScheduled) {
			return response.NewInvalidState("cannot schedule interview from " + app.Status)
		}

		now := time.Now()
		app.Status = models.AppStatusInterviewScheduled
		app.InterviewDate = &req.InterviewDate
		app.InterviewLocation = req.Location
		if req.Notes != "" {
			app.InterviewNotes = req.Notes
		}
		app.ReviewedBy = &reviewerID
		app.ReviewedAt = &now
		return tx.Save(&app).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifyDecision(&app)
	return &app, nil
}

// GetByID returns an application with its member and study preloaded.
func (s *ApplicationService) GetByID(id string) (*models.Application, error) {
	var app models.Application
	if err := s.db.Preload("Member").Preload("Study").Where("id = ?", id).First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("application not found")
		}
		return nil, err
	}
	return &app, nil
}

// List returns a filtered page of applications, newest first.
func (s *ApplicationService) List(req *ApplicationListRequest) (*ApplicationListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 100 {
		req.PageSize = 20
	}

	query := s.db.Model(&models.Application{})
	if req.StudyID != "" {
		query = query.Where("study_id = ?", req.StudyID)
	}
	if req.MemberID != "" {
		query = query.Where("member_id = ?", req.MemberID)
	}
	if req.Status != "" {
		if !models.ValidAppStatus(req.Status) {
			return nil, response.NewBadRequest("unknown application status: " + req.Status)
		}
		query = query.Where("status = ?", req.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var apps []models.Application
	offset := (req.Page - 1) * req.PageSize
	if err := query.Preload("Member").Preload("Study").
		Offset(offset).Limit(req.PageSize).
		Order("submitted_at DESC").Find(&apps).Error; err != nil {
		return nil, err
	}

	return &ApplicationListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    apps,
	}, nil
}

// ListForMember returns all applications a member has ever submitted.
func (s *ApplicationService) ListForMember(memberID string) ([]models.Application, error) {
	var count int64
	if err := s.db.Model(&models.Member{}).Where("id = ?", memberID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, response.NewNotFound("member not found")
	}

	var apps []models.Application
	if err := s.db.Preload("Study").
		Where("member_id = ?", memberID).
		Order("submitted_at DESC").Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

// ListForStudy returns all applications against a study.
func (s *ApplicationService) ListForStudy(studyID string) ([]models.Application, error) {
	var count int64
	if err := s.db.Model(&models.Study{}).Where("id = ?", studyID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, response.NewNotFound("study not found")
	}

	var apps []models.Application
	if err := s.db.Preload("Member").
		Where("study_id = ?", studyID).
		Order("submitted_at DESC").Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

func (s *ApplicationService) notifyDecision(app *models.Application) {
	queue := GetTaskQueue()
	if queue == nil {
		return
	}
	task := &NotificationTask{
		Type:          NotificationStatusChanged,
		ApplicationID: app.ID,
		MemberID:      app.MemberID,
		StudyID:       app.StudyID,
		Status:        app.Status,
	}
	if err := queue.Enqueue(task); err != nil {
		logger.Warnf("[Application] Failed to enqueue status notification: %v", err)
	}
}

// isDuplicateKeyErr detects unique-index violations across the supported
// drivers; sqlite and mysql surface them as plain strings rather than
// gorm.ErrDuplicatedKey.
func isDuplicateKeyErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key")
}
