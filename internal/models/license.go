package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// VendorPromo marks licenses issued through promotional redeem-code batches.
const VendorPromo = "OLLY_PROMO"

// TierSubLicenseCount maps an entitlement tier to the number of sub-licenses
// issued alongside the main license.
var TierSubLicenseCount = map[int]int{
	1: 0,
	2: 4,
	3: 9,
	4: 14,
	5: 19,
}

type LicenseKey struct {
	ID              uuid.UUID       `json:"id"`
	Key             string          `json:"key"`
	IsActive        bool            `json:"is_active"`
	Tier            int             `json:"tier"`
	Vendor          string          `json:"vendor"`
	OrganizationID  *uuid.UUID      `json:"organization_id,omitempty"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	ActivationCount int             `json:"activation_count"`
	ActivatedAt     *time.Time      `json:"activated_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// LicenseMetadata is stored in license_keys.metadata.
type LicenseMetadata struct {
	Credits int `json:"credits"`
}

// KnowledgeSummary is a brand-voice summary owned by a main license key.
// Sub-licenses never carry their own; they always read the parent's newest row.
type KnowledgeSummary struct {
	ID           uuid.UUID `json:"id"`
	LicenseKeyID uuid.UUID `json:"license_key_id"`
	Summary      string    `json:"summary"`
	CreatedAt    time.Time `json:"created_at"`
}
