package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Sub-license status enum. Sub-licenses are created INACTIVE and flip to
// ACTIVE when the parent license is redeemed.
const (
	SubLicenseStatusInactive = "INACTIVE"
	SubLicenseStatusActive   = "ACTIVE"
)

type SubLicense struct {
	ID               uuid.UUID       `json:"id"`
	Key              string          `json:"key"`
	Status           string          `json:"status"`
	MainLicenseKeyID uuid.UUID       `json:"main_license_key_id"`
	Vendor           string          `json:"vendor"`
	AssignedUserID   *uuid.UUID      `json:"assigned_user_id,omitempty"`
	AssignedEmail    *string         `json:"assigned_email,omitempty"`
	ActivationCount  int             `json:"activation_count"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// SubLicenseMetadata is stored in sub_licenses.metadata.
type SubLicenseMetadata struct {
	ParentTier string `json:"parentTier"`
}
