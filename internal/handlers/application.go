package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/clinreach/clinreach/internal/middleware"
	"github.com/clinreach/clinreach/internal/services"
	"github.com/clinreach/clinreach/pkg/response"
)

type ApplicationHandler struct {
	applicationService *services.ApplicationService
}

func NewApplicationHandler(db *gorm.DB, strict bool) *ApplicationHandler {
	return &ApplicationHandler{
		applicationService: services.NewApplicationService(db, strict),
	}
}

// Submit creates an application and reserves a participant slot
// POST /api/applications
func (h *ApplicationHandler) Submit(c *gin.Context) {
	var req services.SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	app, err := h.applicationService.Submit(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, app)
}

// List returns paginated applications with optional filters
// GET /api/applications
func (h *ApplicationHandler) List(c *gin.Context) {
	var req services.ApplicationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.applicationService.List(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// GetByID returns an application with its member and study
// GET /api/applications/:id
func (h *ApplicationHandler) GetByID(c *gin.Context) {
	app, err := h.applicationService.GetByID(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, app)
}

// UpdateStatus moves an application through its lifecycle
// PATCH /api/applications/:id/status
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	var req services.UpdateApplicationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	app, err := h.applicationService.UpdateStatus(c.Param("id"), middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, app)
}

// Review records a screening decision
// POST /api/applications/:id/review
func (h *ApplicationHandler) Review(c *gin.Context) {
	var req services.ReviewApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	app, err := h.applicationService.Review(c.Param("id"), middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, app)
}

// ScheduleInterview books an interview slot
// POST /api/applications/:id/interview
func (h *ApplicationHandler) ScheduleInterview(c *gin.Context) {
	var req services.ScheduleInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	app, err := h.applicationService.ScheduleInterview(c.Param("id"), middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, app)
}

// ListForMember returns a member's application history
// GET /api/members/:id/applications
func (h *ApplicationHandler) ListForMember(c *gin.Context) {
	apps, err := h.applicationService.ListForMember(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, apps)
}

// ListForStudy returns all applications against a study
// GET /api/studies/:id/applications
func (h *ApplicationHandler) ListForStudy(c *gin.Context) {
	apps, err := h.applicationService.ListForStudy(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, apps)
}
