package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/clinreach/clinreach/internal/services"
	"github.com/clinreach/clinreach/pkg/response"
)

type SystemConfigHandler struct {
	configService *services.SystemConfigService
	logService    *services.SystemLogService
}

func NewSystemConfigHandler(db *gorm.DB) *SystemConfigHandler {
	return &SystemConfigHandler{
		configService: services.NewSystemConfigService(db),
		logService:    services.NewSystemLogService(db),
	}
}

// GetEmailConfig returns SMTP settings with the password masked
// GET /api/system/email
func (h *SystemConfigHandler) GetEmailConfig(c *gin.Context) {
	response.Success(c, h.configService.GetEmailConfig())
}

// UpdateEmailConfig updates SMTP settings
// PUT /api/system/email
func (h *SystemConfigHandler) UpdateEmailConfig(c *gin.Context) {
	var req services.UpdateEmailConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.configService.UpdateEmailConfig(&req); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, h.configService.GetEmailConfig())
}

// GetRetention returns the audit log retention window
// GET /api/system/log-retention
func (h *SystemConfigHandler) GetRetention(c *gin.Context) {
	response.Success(c, gin.H{"retention_days": h.logService.GetRetentionDays()})
}

type updateRetentionRequest struct {
	RetentionDays int `json:"retention_days" binding:"min=0,max=3650"`
}

// UpdateRetention sets the audit log retention window
// PUT /api/system/log-retention
func (h *SystemConfigHandler) UpdateRetention(c *gin.Context) {
	var req updateRetentionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.configService.SetInGroup("log_retention_days", strconv.Itoa(req.RetentionDays), "system"); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"retention_days": req.RetentionDays})
}
