package main

import (
	"github.com/gin-gonic/gin"

	"github.com/clinreach/clinreach/internal/config"
	"github.com/clinreach/clinreach/internal/handlers"
	"github.com/clinreach/clinreach/internal/middleware"
	"github.com/clinreach/clinreach/internal/models"
	"github.com/clinreach/clinreach/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices, cfg *config.Config) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Rate limiter for the public-facing write routes
	publicLimiter := middleware.NewRateLimiter(10, 20)

	// Health check
	healthHandler := handlers.NewHealthHandler()
	r.GET("/health", healthHandler.CheckHealth)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/login", svc.authHandler.Login)
			auth.GET("/ldap-status", svc.authHandler.LDAPStatus)
		}

		// Member self-registration (public, rate-limited)
		api.POST("/members", publicLimiter.Middleware(), svc.memberHandler.Register)

		// Protected routes (any authenticated role)
		protected := api.Group("")
		protected.Use(middleware.AuthRequired(), middleware.AuditLog())
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.POST("/auth/logout", svc.authHandler.Logout)
			protected.POST("/auth/change-password", svc.authHandler.ChangePassword)

			// Members
			protected.GET("/members", svc.memberHandler.List)
			protected.GET("/members/:id", svc.memberHandler.GetByID)
			protected.PUT("/members/:id", svc.memberHandler.Update)
			protected.PATCH("/members/:id/consent", svc.memberHandler.UpdateConsent)
			protected.GET("/members/:id/applications", svc.applicationHandler.ListForMember)

			// Studies (read)
			protected.GET("/studies", svc.studyHandler.List)
			protected.GET("/studies/:id", svc.studyHandler.GetByID)
			protected.GET("/studies/:id/applications", svc.applicationHandler.ListForStudy)
			protected.GET("/studies/:id/funnel", svc.dashboardHandler.StudyFunnel)

			// Applications
			protected.POST("/applications", publicLimiter.Middleware(), svc.applicationHandler.Submit)
			protected.GET("/applications", svc.applicationHandler.List)
			protected.GET("/applications/:id", svc.applicationHandler.GetByID)
			protected.PATCH("/applications/:id/status", svc.applicationHandler.UpdateStatus)
			protected.POST("/applications/:id/interview", svc.applicationHandler.ScheduleInterview)

			// Dashboard
			protected.GET("/dashboard/metrics", svc.dashboardHandler.Metrics)
			protected.GET("/dashboard/funnel", svc.dashboardHandler.Funnel)
			protected.GET("/dashboard/analytics", svc.dashboardHandler.Analytics)
			protected.GET("/dashboard/studies", svc.dashboardHandler.StudyFunnels)
			protected.GET("/dashboard/activity", svc.dashboardHandler.RecentActivity)
		}

		// Researcher routes (study design and screening decisions)
		research := api.Group("")
		research.Use(middleware.AuthRequired(), middleware.RoleRequired(models.RoleResearcher, models.RoleAdmin), middleware.AuditLog())
		{
			research.POST("/studies", svc.studyHandler.Create)
			research.PUT("/studies/:id", svc.studyHandler.Update)
			research.PATCH("/studies/:id/status", svc.studyHandler.UpdateStatus)
			research.POST("/applications/:id/review", svc.applicationHandler.Review)
		}

		// Admin only routes
		admin := api.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired(), middleware.AuditLog())
		{
			admin.DELETE("/members/:id", svc.memberHandler.Deactivate)
			admin.DELETE("/studies/:id", svc.studyHandler.Delete)

			// Staff accounts
			admin.POST("/users", svc.authHandler.CreateUser)
			admin.GET("/users", svc.authHandler.ListUsers)
			admin.PUT("/users/:id", svc.authHandler.UpdateUser)

			// System settings and audit trail
			systemConfigHandler := handlers.NewSystemConfigHandler(models.GetDB())
			admin.GET("/system/email", systemConfigHandler.GetEmailConfig)
			admin.PUT("/system/email", systemConfigHandler.UpdateEmailConfig)
			admin.GET("/system/log-retention", systemConfigHandler.GetRetention)
			admin.PUT("/system/log-retention", systemConfigHandler.UpdateRetention)

			systemLogHandler := handlers.NewSystemLogHandler(models.GetDB())
			admin.GET("/system/logs", systemLogHandler.List)
			admin.GET("/system/logs/modules", systemLogHandler.GetModules)
		}
	}
}
