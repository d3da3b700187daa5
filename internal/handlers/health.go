package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/clinreach/clinreach/internal/models"
	"github.com/clinreach/clinreach/internal/services"
)

// HealthHandler provides the health check endpoint.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// CheckHealth returns the health status of all subsystems.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"

	// Database check
	dbStatus := "ok"
	sqlDB, err := models.GetDB().DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	}

	// Queue mode
	taskQueue := services.GetTaskQueue()
	queueMode := "sync"
	if taskQueue != nil && taskQueue.IsAsync() {
		queueMode = "async (Redis)"
	}

	// Applications still waiting on staff action
	var pendingCount int64
	models.GetDB().Model(&models.Application{}).
		Where("status IN ?", []string{
			models.AppStatusSubmitted,
			models.AppStatusUnderReview,
			models.AppStatusScreening,
			models.AppStatusInterviewScheduled,
		}).
		Count(&pendingCount)

	c.JSON(200, gin.H{
		"status":  overall,
		"service": "clinreach",
		"components": gin.H{
			"database":             dbStatus,
			"queue_mode":           queueMode,
			"pending_applications": pendingCount,
		},
	})
}
