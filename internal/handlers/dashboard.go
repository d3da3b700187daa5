package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/clinreach/clinreach/internal/services"
	"github.com/clinreach/clinreach/pkg/response"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: services.NewDashboardService(db),
	}
}

// Metrics returns headline recruitment counts
// GET /api/dashboard/metrics
func (h *DashboardHandler) Metrics(c *gin.Context) {
	metrics, err := h.dashboardService.GetMetrics()
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, metrics)
}

// Funnel returns the global recruitment funnel with conversion rates
// GET /api/dashboard/funnel
func (h *DashboardHandler) Funnel(c *gin.Context) {
	funnel, err := h.dashboardService.GetFunnel()
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, funnel)
}

// Analytics returns demographics, the application histogram and the
// member-creation trend
// GET /api/dashboard/analytics
func (h *DashboardHandler) Analytics(c *gin.Context) {
	analytics, err := h.dashboardService.GetAnalytics()
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, analytics)
}

// StudyFunnel returns the funnel for a single study
// GET /api/studies/:id/funnel
func (h *DashboardHandler) StudyFunnel(c *gin.Context) {
	funnel, err := h.dashboardService.GetStudyFunnel(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, funnel)
}

// StudyFunnels returns per-study recruitment summaries
// GET /api/dashboard/studies
func (h *DashboardHandler) StudyFunnels(c *gin.Context) {
	summaries, err := h.dashboardService.ListStudyFunnels()
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, summaries)
}

// RecentActivity returns the most recently updated applications
// GET /api/dashboard/activity
func (h *DashboardHandler) RecentActivity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	items, err := h.dashboardService.GetRecentActivity(limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, items)
}
