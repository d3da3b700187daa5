package services

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/clinreach/clinreach/internal/models"
	"github.com/clinreach/clinreach/pkg/response"
)

// MemberService manages the recruitment pool. Members are soft-deactivated,
// never deleted, so application history stays intact.
type MemberService struct {
	db *gorm.DB
}

func NewMemberService(db *gorm.DB) *MemberService {
	return &MemberService{db: db}
}

type RegisterMemberRequest struct {
	FirstName      string          `json:"first_name" binding:"required"`
	LastName       string          `json:"last_name" binding:"required"`
	Email          string          `json:"email" binding:"required,email"`
	Phone          string          `json:"phone"`
	DateOfBirth    time.Time       `json:"date_of_birth" binding:"required"`
	Gender         string          `json:"gender"`
	Street         string          `json:"street"`
	City           string          `json:"city"`
	State          string          `json:"state"`
	ZipCode        string          `json:"zip_code"`
	Country        string          `json:"country"`
	StudyInterests datatypes.JSON  `json:"study_interests"`
	ConsentGiven   bool            `json:"consent_given"`
	Notes          string          `json:"notes"`
}

// UpdateMemberRequest carries the mutable member fields. Pointer fields
// distinguish "leave unchanged" from "set to zero value". Email, consent and
// status are deliberately absent: email is immutable identity, consent has
// its own endpoint, status changes go through Deactivate.
type UpdateMemberRequest struct {
	FirstName      *string         `json:"first_name"`
	LastName       *string         `json:"last_name"`
	Phone          *string         `json:"phone"`
	Gender         *string         `json:"gender"`
	Street         *string         `json:"street"`
	City           *string         `json:"city"`
	State          *string         `json:"state"`
	ZipCode        *string         `json:"zip_code"`
	Country        *string         `json:"country"`
	StudyInterests *datatypes.JSON `json:"study_interests"`
	Notes          *string         `json:"notes"`
}

type MemberListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Status   string `form:"status"`
	Search   string `form:"search"` // matches name or email
	Gender   string `form:"gender"`
}

type MemberListResponse struct {
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	Items    []models.Member `json:"items"`
}

// Register adds a member to the pool. Email must be unique across all
// members, active or not.
func (s *MemberService) Register(req *RegisterMemberRequest) (*models.Member, error) {
	var count int64
	if err := s.db.Model(&models.Member{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, response.NewConflict("a member with this email already exists")
	}

	member := &models.Member{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Phone:          req.Phone,
		DateOfBirth:    req.DateOfBirth,
		Gender:         req.Gender,
		Street:         req.Street,
		City:           req.City,
		State:          req.State,
		ZipCode:        req.ZipCode,
		Country:        req.Country,
		StudyInterests: req.StudyInterests,
		ConsentGiven:   req.ConsentGiven,
		Notes:          req.Notes,
		Status:         models.MemberStatusActive,
	}
	if req.ConsentGiven {
		now := time.Now()
		member.ConsentDate = &now
	}

	if err := s.db.Create(member).Error; err != nil {
		if isDuplicateKeyErr(err) {
			return nil, response.NewConflict("a member with this email already exists")
		}
		return nil, err
	}

	return member, nil
}

// GetByID returns a member by id.
func (s *MemberService) GetByID(id string) (*models.Member, error) {
	var member models.Member
	if err := s.db.Where("id = ?", id).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("member not found")
		}
		return nil, err
	}
	return &member, nil
}

// List returns a filtered page of members, newest first.
func (s *MemberService) List(req *MemberListRequest) (*MemberListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 100 {
		req.PageSize = 20
	}

	query := s.db.Model(&models.Member{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Gender != "" {
		query = query.Where("gender = ?", req.Gender)
	}
	if req.Search != "" {
		like := "%" + req.Search + "%"
		query = query.Where("first_name LIKE ? OR last_name LIKE ? OR email LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var members []models.Member
	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).
		Order("created_at DESC").Find(&members).Error; err != nil {
		return nil, err
	}

	return &MemberListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    members,
	}, nil
}

// Update applies the allow-listed mutable fields.
func (s *MemberService) Update(id string, req *UpdateMemberRequest) (*models.Member, error) {
	member, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		member.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		member.LastName = *req.LastName
	}
	if req.Phone != nil {
		member.Phone = *req.Phone
	}
	if req.Gender != nil {
		member.Gender = *req.Gender
	}
	if req.Street != nil {
		member.Street = *req.Street
	}
	if req.City != nil {
		member.City = *req.City
	}
	if req.State != nil {
		member.State = *req.State
	}
	if req.ZipCode != nil {
		member.ZipCode = *req.ZipCode
	}
	if req.Country != nil {
		member.Country = *req.Country
	}
	if req.StudyInterests != nil {
		member.StudyInterests = *req.StudyInterests
	}
	if req.Notes != nil {
		member.Notes = *req.Notes
	}

	if err := s.db.Save(member).Error; err != nil {
		return nil, err
	}
	return member, nil
}

// UpdateConsent records or withdraws consent. Withdrawing clears the consent
// timestamp.
func (s *MemberService) UpdateConsent(id string, consentGiven bool) (*models.Member, error) {
	member, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	member.ConsentGiven = consentGiven
	if consentGiven {
		now := time.Now()
		member.ConsentDate = &now
	} else {
		member.ConsentDate = nil
	}

	if err := s.db.Save(member).Error; err != nil {
		return nil, err
	}
	return member, nil
}

// Deactivate removes a member from active recruitment without destroying
// history. Idempotent.
func (s *MemberService) Deactivate(id string) (*models.Member, error) {
	member, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	if member.Status != models.MemberStatusInactive {
		member.Status = models.MemberStatusInactive
		if err := s.db.Save(member).Error; err != nil {
			return nil, err
		}
	}
	return member, nil
}
