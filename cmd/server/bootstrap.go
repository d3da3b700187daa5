package main

import (
	"github.com/clinreach/clinreach/internal/config"
	"github.com/clinreach/clinreach/internal/handlers"
	"github.com/clinreach/clinreach/internal/models"
	"github.com/clinreach/clinreach/internal/services"
	"github.com/clinreach/clinreach/internal/utils"
	"github.com/clinreach/clinreach/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	scheduler          *services.SchedulerService
	taskQueue          services.TaskQueue
	worker             *services.Worker
	authHandler        *handlers.AuthHandler
	memberHandler      *handlers.MemberHandler
	studyHandler       *handlers.StudyHandler
	applicationHandler *handlers.ApplicationHandler
	dashboardHandler   *handlers.DashboardHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Seed default data
	if err := models.SeedDefaultData(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	// Initialize system logger
	services.InitSystemLogger(models.GetDB())

	// Housekeeping: study expiry and log retention
	scheduler := services.NewSchedulerService(models.GetDB())
	scheduler.Start()

	// Initialize task queue (uses Redis if enabled, otherwise sync mode)
	taskQueue := services.InitTaskQueue(cfg)

	// Start async worker if Redis is enabled
	var worker *services.Worker
	if cfg.Redis.Enabled {
		worker = services.InitWorker(&cfg.Redis)
		if worker != nil {
			worker.Start()
		}
	}

	// Attach the notification processor to whichever queue mode is active
	services.WireNotificationProcessor(models.GetDB())

	// Create default admin user
	authService := services.NewAuthService(models.GetDB(), cfg)
	if err := authService.CreateAdminIfNotExists(); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	return &appServices{
		scheduler:          scheduler,
		taskQueue:          taskQueue,
		worker:             worker,
		authHandler:        handlers.NewAuthHandler(models.GetDB(), cfg),
		memberHandler:      handlers.NewMemberHandler(models.GetDB()),
		studyHandler:       handlers.NewStudyHandler(models.GetDB()),
		applicationHandler: handlers.NewApplicationHandler(models.GetDB(), cfg.Recruitment.StrictTransitions),
		dashboardHandler:   handlers.NewDashboardHandler(models.GetDB()),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.scheduler.Stop()
	logger.Info().Msg("Scheduler stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
}
