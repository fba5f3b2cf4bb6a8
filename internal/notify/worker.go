package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/ollysocial/backend/internal/models"
)

type NotificationJobArgs struct {
	NotificationID uuid.UUID `json:"notification_id"`
}

func (NotificationJobArgs) Kind() string { return "notification_dispatch" }

// NotificationStore loads the row a job points at.
type NotificationStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
}

// Sender pushes a stored notification to the user's delivery channels.
type Sender interface {
	Send(ctx context.Context, n *models.Notification) error
}

// LogSender is the development sender: it only logs. Real channels (web
// push, email) plug in behind the same interface.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) Send(_ context.Context, n *models.Notification) error {
	s.Logger.Info("notification dispatched",
		"notification_id", n.ID,
		"user_id", n.UserID,
		"type", n.Type,
		"title", n.Title,
	)
	return nil
}

// DispatchWorker delivers stored notifications asynchronously. Delivery
// failures are retried by the queue; a missing row is terminal.
type DispatchWorker struct {
	river.WorkerDefaults[NotificationJobArgs]
	store  NotificationStore
	sender Sender
}

func NewDispatchWorker(store NotificationStore, sender Sender) *DispatchWorker {
	return &DispatchWorker{store: store, sender: sender}
}

func (w *DispatchWorker) Work(ctx context.Context, job *river.Job[NotificationJobArgs]) error {
	n, err := w.store.GetByID(ctx, job.Args.NotificationID)
	if err != nil {
		return fmt.Errorf("load notification %s: %w", job.Args.NotificationID, err)
	}
	if n == nil {
		// Row was deleted; nothing to deliver and nothing to retry.
		return nil
	}
	if err := w.sender.Send(ctx, n); err != nil {
		return fmt.Errorf("send notification %s: %w", n.ID, err)
	}
	return nil
}
