package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/ollysocial/backend/internal/models"
)

type memStore struct {
	rows map[uuid.UUID]*models.Notification
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[uuid.UUID]*models.Notification)}
}

func (m *memStore) Create(_ context.Context, n *models.Notification) error {
	cp := *n
	m.rows[n.ID] = &cp
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Notification, error) {
	return m.rows[id], nil
}

func TestNotify_StoresRowAndEnqueues(t *testing.T) {
	store := newMemStore()
	var enqueued []NotificationJobArgs
	d := NewDispatcher(store, func(_ context.Context, args NotificationJobArgs) error {
		enqueued = append(enqueued, args)
		return nil
	})

	user := uuid.New()
	if err := d.Notify(context.Background(), user, models.NotificationCreditUpdate, "Credits Received", "You received 40 credits"); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if len(store.rows) != 1 {
		t.Fatalf("stored rows: got %d, want 1", len(store.rows))
	}
	if len(enqueued) != 1 {
		t.Fatalf("enqueued jobs: got %d, want 1", len(enqueued))
	}
	n := store.rows[enqueued[0].NotificationID]
	if n == nil {
		t.Fatal("job should reference the stored row")
	}
	if n.UserID != user || n.Type != models.NotificationCreditUpdate || n.Title != "Credits Received" {
		t.Errorf("stored notification: %+v", n)
	}
}

func TestNotify_EnqueueFailureSurfaces(t *testing.T) {
	store := newMemStore()
	d := NewDispatcher(store, func(_ context.Context, _ NotificationJobArgs) error {
		return errors.New("queue down")
	})

	err := d.Notify(context.Background(), uuid.New(), models.NotificationCreditUpdate, "t", "m")
	if err == nil {
		t.Fatal("expected error when enqueue fails")
	}
	// The row is still stored; only delivery is lost.
	if len(store.rows) != 1 {
		t.Errorf("stored rows: got %d, want 1", len(store.rows))
	}
}
