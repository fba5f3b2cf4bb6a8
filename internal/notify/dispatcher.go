package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ollysocial/backend/internal/models"
)

// NotificationWriter persists notification rows.
type NotificationWriter interface {
	Create(ctx context.Context, n *models.Notification) error
}

// InsertNotificationJobFunc enqueues a dispatch job. Provided by main using
// river.Client.Insert.
type InsertNotificationJobFunc func(ctx context.Context, args NotificationJobArgs) error

// Dispatcher stores a notification row and hands delivery to the background
// queue. The row exists even if delivery never succeeds, so in-app listing
// keeps working.
type Dispatcher struct {
	writer    NotificationWriter
	insertJob InsertNotificationJobFunc
}

func NewDispatcher(writer NotificationWriter, insertJob InsertNotificationJobFunc) *Dispatcher {
	return &Dispatcher{writer: writer, insertJob: insertJob}
}

// Notify creates the notification and enqueues its delivery.
func (d *Dispatcher) Notify(ctx context.Context, userID uuid.UUID, kind, title, message string) error {
	n := &models.Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Type:    kind,
		Title:   title,
		Message: message,
	}
	if err := d.writer.Create(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	if d.insertJob != nil {
		if err := d.insertJob(ctx, NotificationJobArgs{NotificationID: n.ID}); err != nil {
			return fmt.Errorf("enqueue notification dispatch: %w", err)
		}
	}
	return nil
}
