package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/ollysocial/backend/internal/middleware"
	"github.com/ollysocial/backend/internal/models"
)

// NotificationReader lists a user's notifications.
type NotificationReader interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Notification, error)
}

// NotificationHandler serves GET /v1/notifications.
type NotificationHandler struct {
	Notifications NotificationReader
	Logger        *slog.Logger
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	rows, err := h.Notifications.ListByUser(r.Context(), userID)
	if err != nil {
		h.Logger.Error("list notifications", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if rows == nil {
		rows = []*models.Notification{}
	}
	respondJSON(w, http.StatusOK, rows)
}
