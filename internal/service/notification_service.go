package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smit-institute/registration-api/internal/models"
	"github.com/smit-institute/registration-api/pkg/config"
	"github.com/smit-institute/registration-api/pkg/jobs"
)

const jobTypeStatusChanged = "registration.status_changed"

// NotificationService is the NotificationSink implementation: it hands
// committed status-change events to a background queue. Actual delivery
// (email templating and transport) belongs to the notification system; this
// service records the intent and never blocks a lifecycle transition.
type NotificationService struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService constructs the dispatcher and its queue.
func NewNotificationService(cfg config.NotificationsConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{logger: logger}
	svc.queue = jobs.NewQueue("notifications", svc.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return svc
}

// Start begins background dispatch.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// OnStatusChanged enqueues the event. Failures are logged and dropped;
// notifications are best-effort by contract.
func (s *NotificationService) OnStatusChanged(event models.StatusChanged) {
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeStatusChanged,
		Payload: event,
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("dropping status notification",
			zap.String("student_id", event.StudentID),
			zap.Error(err))
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.StatusChanged)
	if !ok {
		return fmt.Errorf("unexpected payload for %s job", job.Type)
	}

	// Delivery stub: the mail relay consumes these log entries' fields in
	// the current deployment.
	s.logger.Info("status notification dispatched",
		zap.String("student_id", event.StudentID),
		zap.String("registration_number", event.RegistrationNumber),
		zap.String("old_status", string(event.OldStatus)),
		zap.String("new_status", string(event.NewStatus)),
		zap.Time("occurred_at", event.OccurredAt))
	return nil
}
