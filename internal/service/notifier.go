package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-roster-api/internal/models"
	"github.com/noah-isme/sma-roster-api/pkg/config"
	"github.com/noah-isme/sma-roster-api/pkg/jobs"
)

// Notification is one outbound message to a staff member.
type Notification struct {
	SchoolID int64
	Handle   string
	FullName string
	Subject  string
	Body     string
}

// Sender delivers a notification over some channel (email, SMS, webhook).
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// LogSender writes notifications to the log instead of delivering them. Used
// in development and as the default until a real channel is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender constructs a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the notification envelope. The body is omitted because welcome
// messages carry initial passwords.
func (s *LogSender) Send(_ context.Context, n Notification) error {
	s.logger.Info("notification dispatched",
		zap.Int64("school_id", n.SchoolID),
		zap.String("handle", n.Handle),
		zap.String("subject", n.Subject))
	return nil
}

// QueueNotifier fans notifications out through a background worker pool.
// Producers never block: a saturated queue drops the job and the caller's
// request proceeds, since notification delivery is best effort.
type QueueNotifier struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewQueueNotifier constructs a QueueNotifier backed by sender.
func NewQueueNotifier(sender Sender, cfg config.NotificationConfig, logger *zap.Logger) *QueueNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}

	handler := func(ctx context.Context, job jobs.Job) error {
		n, ok := job.Payload.(Notification)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", job.Payload)
		}
		return sender.Send(ctx, n)
	}

	queue := jobs.NewQueue("notifications", handler, jobs.QueueConfig{
		Workers:      cfg.Workers,
		BufferSize:   cfg.BufferSize,
		MaxRetries:   cfg.MaxRetries,
		DropWhenFull: true,
		Logger:       logger,
	})

	return &QueueNotifier{queue: queue, logger: logger}
}

// Start launches the delivery workers.
func (n *QueueNotifier) Start(ctx context.Context) {
	n.queue.Start(ctx)
}

// Stop drains the workers.
func (n *QueueNotifier) Stop() {
	n.queue.Stop()
}

// NotifyRemoval queues a notice that a staff member's association with the
// school has ended.
func (n *QueueNotifier) NotifyRemoval(schoolID int64, record *models.StaffRecord, outcome models.RemovalOutcome) {
	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: "removal_notice",
		Payload: Notification{
			SchoolID: schoolID,
			Handle:   record.Handle,
			FullName: record.FullName(),
			Subject:  "Your school access has ended",
			Body:     fmt.Sprintf("Hello %s, your association with this school has been removed (%s).", record.FullName(), outcome),
		},
	}
	if err := n.queue.Enqueue(job); err != nil {
		n.logger.Warn("removal notification not queued",
			zap.String("handle", record.Handle),
			zap.Error(err))
	}
}

// NotifyCredential queues a welcome message for a freshly created record.
// Failures are logged and swallowed; credential delivery never fails an
// import batch.
func (n *QueueNotifier) NotifyCredential(schoolID int64, cred models.NewCredential) {
	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: "credential_welcome",
		Payload: Notification{
			SchoolID: schoolID,
			Handle:   cred.Handle,
			FullName: cred.FullName,
			Subject:  "Your account is ready",
			Body:     fmt.Sprintf("Hello %s, your initial password is: %s", cred.FullName, cred.Password),
		},
	}
	if err := n.queue.Enqueue(job); err != nil {
		n.logger.Warn("credential notification not queued",
			zap.String("handle", cred.Handle),
			zap.Error(err))
	}
}
