package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/clinreach/clinreach/internal/models"
	"github.com/clinreach/clinreach/pkg/logger"
)

// NotificationService turns queued notification tasks into outbound email.
// Delivery is best-effort: a failed send is logged and retried by the queue
// but never surfaces to the API caller.
type NotificationService struct {
	db    *gorm.DB
	email *EmailService
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{
		db:    db,
		email: NewEmailService(db),
	}
}

// Process handles one notification task. It is wired as the processor for
// both the sync queue and the async worker.
func (s *NotificationService) Process(ctx context.Context, task *NotificationTask) error {
	var app models.Application
	if err := s.db.Preload("Member").Preload("Study").
		Where("id = ?", task.ApplicationID).First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warnf("[Notification] Application %s vanished before notification", task.ApplicationID)
			return nil
		}
		return err
	}

	if app.Member == nil || app.Study == nil {
		logger.Warnf("[Notification] Application %s missing member or study, skipping", app.ID)
		return nil
	}

	switch task.Type {
	case NotificationSubmissionReceived:
		return s.email.SendSubmissionReceipt(&app)
	case NotificationStatusChanged:
		return s.email.SendStatusUpdate(&app)
	default:
		logger.Warnf("[Notification] Unknown task type %q", task.Type)
		return nil
	}
}

// WireNotificationProcessor attaches the notification processor to whichever
// queue mode is active. Call once during bootstrap after InitTaskQueue.
func WireNotificationProcessor(db *gorm.DB) {
	svc := NewNotificationService(db)

	if sq, ok := GetTaskQueue().(*SyncQueue); ok {
		sq.SetProcessor(svc.Process)
	}
	if w := GetWorker(); w != nil {
		w.SetProcessor(svc.Process)
	}
}
