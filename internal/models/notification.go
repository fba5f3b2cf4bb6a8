package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification type enums.
const (
	NotificationCreditUpdate  = "CREDIT_UPDATE"
	NotificationLicenseUpdate = "LICENSE_UPDATE"
)

type Notification struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Type      string     `json:"type"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
