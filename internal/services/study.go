package services

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/clinreach/clinreach/internal/models"
	"github.com/clinreach/clinreach/pkg/response"
)

// StudyService manages studies and their recruitment lifecycle. The
// participant counter is owned by the submission transaction; this service
// never writes it.
type StudyService struct {
	db *gorm.DB
}

func NewStudyService(db *gorm.DB) *StudyService {
	return &StudyService{db: db}
}

type CreateStudyRequest struct {
	Title               string         `json:"title" binding:"required"`
	Description         string         `json:"description"`
	ProtocolNumber      string         `json:"protocol_number"`
	StartDate           time.Time      `json:"start_date" binding:"required"`
	EndDate             time.Time      `json:"end_date" binding:"required"`
	MaxParticipants     int            `json:"max_participants" binding:"required,min=1"`
	EligibilityCriteria datatypes.JSON `json:"eligibility_criteria"`
}

type UpdateStudyRequest struct {
	Title               *string         `json:"title"`
	Description         *string         `json:"description"`
	ProtocolNumber      *string         `json:"protocol_number"`
	StartDate           *time.Time      `json:"start_date"`
	EndDate             *time.Time      `json:"end_date"`
	MaxParticipants     *int            `json:"max_participants"`
	EligibilityCriteria *datatypes.JSON `json:"eligibility_criteria"`
}

type UpdateStudyStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type StudyListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Status   string `form:"status"`
	Search   string `form:"search"` // matches title or protocol number
}

type StudyListResponse struct {
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Items    []models.Study `json:"items"`
}

// Create creates a study in draft status.
func (s *StudyService) Create(createdBy uint, req *CreateStudyRequest) (*models.Study, error) {
	if !req.EndDate.After(req.StartDate) {
		return nil, response.NewBadRequest("end date must be after start date")
	}

	study := &models.Study{
		Title:               req.Title,
		Description:         req.Description,
		ProtocolNumber:      req.ProtocolNumber,
		StartDate:           req.StartDate,
		EndDate:             req.EndDate,
		MaxParticipants:     req.MaxParticipants,
		EligibilityCriteria: req.EligibilityCriteria,
		Status:              models.StudyStatusDraft,
		CreatedBy:           createdBy,
	}

	if err := s.db.Create(study).Error; err != nil {
		return nil, err
	}
	return study, nil
}

// GetByID returns a study by id.
func (s *StudyService) GetByID(id string) (*models.Study, error) {
	var study models.Study
	if err := s.db.Where("id = ?", id).First(&study).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("study not found")
		}
		return nil, err
	}
	return &study, nil
}

// List returns a filtered page of studies, newest first.
func (s *StudyService) List(req *StudyListRequest) (*StudyListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 100 {
		req.PageSize = 20
	}

	query := s.db.Model(&models.Study{})
	if req.Status != "" {
		if !models.ValidStudyStatus(req.Status) {
			return nil, response.NewBadRequest("unknown study status: " + req.Status)
		}
		query = query.Where("status = ?", req.Status)
	}
	if req.Search != "" {
		like := "%" + req.Search + "%"
		query = query.Where("title LIKE ? OR protocol_number LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var studies []models.Study
	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).
		Order("created_at DESC").Find(&studies).Error; err != nil {
		return nil, err
	}

	return &StudyListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    studies,
	}, nil
}

// Update applies the mutable study fields. Capacity may not shrink below the
// number of slots already reserved.
func (s *StudyService) Update(id string, req *UpdateStudyRequest) (*models.Study, error) {
	study, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		study.Title = *req.Title
	}
	if req.Description != nil {
		study.Description = *req.Description
	}
	if req.ProtocolNumber != nil {
		study.ProtocolNumber = *req.ProtocolNumber
	}
	if req.StartDate != nil {
		study.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		study.EndDate = *req.EndDate
	}
	if req.MaxParticipants != nil {
		if *req.MaxParticipants < study.CurrentParticipants {
			return nil, response.NewBadRequest("max participants cannot be below current participants")
		}
		study.MaxParticipants = *req.MaxParticipants
	}
	if req.EligibilityCriteria != nil {
		study.EligibilityCriteria = *req.EligibilityCriteria
	}

	if !study.EndDate.After(study.StartDate) {
		return nil, response.NewBadRequest("end date must be after start date")
	}

	if err := s.db.Save(study).Error; err != nil {
		return nil, err
	}
	return study, nil
}

// studyTransitions is the study status machine: draft activates, active
// pauses or finishes, paused resumes or finishes, completed and cancelled
// are terminal.
var studyTransitions = map[string][]string{
	models.StudyStatusDraft:     {models.StudyStatusActive, models.StudyStatusCancelled},
	models.StudyStatusActive:    {models.StudyStatusPaused, models.StudyStatusCompleted, models.StudyStatusCancelled},
	models.StudyStatusPaused:    {models.StudyStatusActive, models.StudyStatusCompleted, models.StudyStatusCancelled},
	models.StudyStatusCompleted: {},
	models.StudyStatusCancelled: {},
}

// UpdateStatus moves a study through its status machine.
func (s *StudyService) UpdateStatus(id string, req *UpdateStudyStatusRequest) (*models.Study, error) {
	if !models.ValidStudyStatus(req.Status) {
		return nil, response.NewBadRequest("unknown study status: " + req.Status)
	}

	study, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, next := range studyTransitions[study.Status] {
		if next == req.Status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, response.NewInvalidState("cannot move study from " + study.Status + " to " + req.Status)
	}

	study.Status = req.Status
	if err := s.db.Save(study).Error; err != nil {
		return nil, err
	}
	return study, nil
}

// Delete soft-deletes a study. Studies with applications cannot be deleted,
// only cancelled, so the funnel history survives.
func (s *StudyService) Delete(id string) error {
	study, err := s.GetByID(id)
	if err != nil {
		return err
	}

	var count int64
	if err := s.db.Model(&models.Application{}).Where("study_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return response.NewConflict("study has applications and cannot be deleted")
	}

	return s.db.Delete(study).Error
}

// CompleteExpired marks active or paused studies whose end date has passed
// as completed. Returns the number of studies closed. Called by the
// scheduler.
func (s *StudyService) CompleteExpired(now time.Time) (int64, error) {
	result := s.db.Model(&models.Study{}).
		Where("status IN ? AND end_date < ?", []string{models.StudyStatusActive, models.StudyStatusPaused}, now).
		Update("status", models.StudyStatusCompleted)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
