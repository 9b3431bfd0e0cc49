package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bitbender-8/cs-fy-project-sub000/internal/models"
	"github.com/bitbender-8/cs-fy-project-sub000/pkg/jobs"
)

// Notification is a message destined for one user.
type Notification struct {
	UserID    string    `json:"user_id"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type supervisorLister interface {
	ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
}

// NotificationSender delivers one notification to its destination channel.
type NotificationSender interface {
	Send(ctx context.Context, n Notification) error
}

// NotificationSenderFunc allows using plain functions.
type NotificationSenderFunc func(ctx context.Context, n Notification) error

// Send implements NotificationSender.
func (f NotificationSenderFunc) Send(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// NotificationService dispatches notifications through a background queue.
// Failures are logged, never surfaced to the triggering request.
type NotificationService struct {
	queue   *jobs.Queue
	users   supervisorLister
	logger  *zap.Logger
	enabled bool
}

// NewNotificationService constructs the service. A nil sender falls back to
// log-only delivery.
func NewNotificationService(users supervisorLister, sender NotificationSender, logger *zap.Logger, cfg jobs.QueueConfig, enabled bool) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{users: users, logger: logger, enabled: enabled}
	if sender == nil {
		sender = NotificationSenderFunc(func(_ context.Context, n Notification) error {
			logger.Sugar().Infow("notification delivered",
				"user_id", n.UserID, "subject", n.Subject)
			return nil
		})
	}
	cfg.Logger = logger
	svc.queue = jobs.NewQueue("notifications", func(ctx context.Context, job jobs.Job) error {
		n, ok := job.Payload.(Notification)
		if !ok {
			return fmt.Errorf("unexpected notification payload type %T", job.Payload)
		}
		return sender.Send(ctx, n)
	}, cfg)
	return svc
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	if !s.enabled {
		return
	}
	s.queue.Start(ctx)
}

// Stop drains the delivery workers.
func (s *NotificationService) Stop() {
	if !s.enabled {
		return
	}
	s.queue.Stop()
}

// Notify enqueues a notification for one user. Fire-and-forget.
func (s *NotificationService) Notify(userID, subject, body string) {
	if !s.enabled || userID == "" {
		return
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:   uuid.NewString(),
		Type: "notification",
		Payload: Notification{
			UserID:    userID,
			Subject:   subject,
			Body:      body,
			CreatedAt: time.Now().UTC(),
		},
	})
	if err != nil {
		s.logger.Warn("failed to enqueue notification", zap.Error(err), zap.String("user_id", userID))
	}
}

// NotifySupervisors fans a notification out to every active supervisor.
func (s *NotificationService) NotifySupervisors(ctx context.Context, subject, body string) {
	if !s.enabled {
		return
	}
	supervisors, err := s.users.ListByRole(ctx, models.RoleSupervisor)
	if err != nil {
		s.logger.Warn("failed to list supervisors for notification", zap.Error(err))
		return
	}
	for _, supervisor := range supervisors {
		s.Notify(supervisor.ID, subject, body)
	}
}
