package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/clinreach/clinreach/internal/middleware"
	"github.com/clinreach/clinreach/internal/services"
	"github.com/clinreach/clinreach/pkg/response"
)

type StudyHandler struct {
	studyService *services.StudyService
}

func NewStudyHandler(db *gorm.DB) *StudyHandler {
	return &StudyHandler{
		studyService: services.NewStudyService(db),
	}
}

// Create creates a study in draft status
// POST /api/studies
func (h *StudyHandler) Create(c *gin.Context) {
	var req services.CreateStudyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	study, err := h.studyService.Create(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, study)
}

// List returns paginated studies with optional filters
// GET /api/studies
func (h *StudyHandler) List(c *gin.Context) {
	var req services.StudyListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.studyService.List(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// GetByID returns a study by id
// GET /api/studies/:id
func (h *StudyHandler) GetByID(c *gin.Context) {
	study, err := h.studyService.GetByID(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, study)
}

// Update applies the mutable study fields
// PUT /api/studies/:id
func (h *StudyHandler) Update(c *gin.Context) {
	var req services.UpdateStudyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	study, err := h.studyService.Update(c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, study)
}

// UpdateStatus moves a study through its status machine
// PATCH /api/studies/:id/status
func (h *StudyHandler) UpdateStatus(c *gin.Context) {
	var req services.UpdateStudyStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	study, err := h.studyService.UpdateStatus(c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, study)
}

// Delete soft-deletes a study without applications
// DELETE /api/studies/:id
func (h *StudyHandler) Delete(c *gin.Context) {
	if err := h.studyService.Delete(c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"deleted": true})
}
