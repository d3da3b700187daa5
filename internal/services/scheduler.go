package services

import (
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/clinreach/clinreach/pkg/logger"
)

// SchedulerService runs the housekeeping jobs: closing studies whose end
// date has passed and pruning old system logs.
type SchedulerService struct {
	db            *gorm.DB
	studyService  *StudyService
	logService    *SystemLogService
	cronScheduler *cron.Cron
}

func NewSchedulerService(db *gorm.DB) *SchedulerService {
	return &SchedulerService{
		db:           db,
		studyService: NewStudyService(db),
		logService:   NewSystemLogService(db),
	}
}

// Start registers the jobs and starts the cron loop. Both jobs also run once
// immediately so a restart never leaves expired studies open for a day.
func (s *SchedulerService) Start() {
	s.cronScheduler = cron.New()

	if _, err := s.cronScheduler.AddFunc("0 1 * * *", s.runStudyExpiry); err != nil {
		logger.Errorf("[Scheduler] Failed to register study expiry job: %v", err)
	}
	if _, err := s.cronScheduler.AddFunc("30 1 * * *", s.runLogCleanup); err != nil {
		logger.Errorf("[Scheduler] Failed to register log cleanup job: %v", err)
	}

	s.cronScheduler.Start()
	logger.Infof("[Scheduler] Started")

	go func() {
		s.runStudyExpiry()
		s.runLogCleanup()
	}()
}

// Stop halts the cron loop.
func (s *SchedulerService) Stop() {
	if s.cronScheduler != nil {
		s.cronScheduler.Stop()
	}
}

func (s *SchedulerService) runStudyExpiry() {
	closed, err := s.studyService.CompleteExpired(time.Now())
	if err != nil {
		logger.Errorf("[Scheduler] Study expiry failed: %v", err)
		return
	}
	if closed > 0 {
		logger.Infof("[Scheduler] Marked %d expired studies as completed", closed)
		LogInfo("scheduler", "study_expiry", "closed expired studies", nil, "", "", map[string]int64{"closed": closed})
	}
}

func (s *SchedulerService) runLogCleanup() {
	retentionDays := s.logService.GetRetentionDays()
	if retentionDays <= 0 {
		logger.Infof("[Scheduler] Log cleanup disabled (retention_days <= 0)")
		return
	}

	deleted, err := s.logService.CleanupOldLogs(retentionDays)
	if err != nil {
		logger.Errorf("[Scheduler] Log cleanup failed: %v", err)
		return
	}
	if deleted > 0 {
		logger.Infof("[Scheduler] Cleaned up %d logs older than %d days", deleted, retentionDays)
	}
}
