package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Redeem code status enum. The only legal transitions are
// ACTIVE -> REDEEMED and ACTIVE -> EXPIRED.
const (
	RedeemCodeStatusActive   = "ACTIVE"
	RedeemCodeStatusRedeemed = "REDEEMED"
	RedeemCodeStatusExpired  = "EXPIRED"
)

type RedeemBatch struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Campaign  string          `json:"campaign"`
	Quantity  int             `json:"quantity"`
	Validity  time.Time       `json:"validity"`
	CreatedBy uuid.UUID       `json:"created_by"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// BatchMetadata is stored in redeem_batches.metadata.
type BatchMetadata struct {
	Tier           string `json:"tier"`
	Credits        int    `json:"credits"`
	CreatedByEmail string `json:"createdByEmail,omitempty"`
}

type RedeemCode struct {
	ID           uuid.UUID       `json:"id"`
	Code         string          `json:"code"`
	Status       string          `json:"status"`
	BatchID      uuid.UUID       `json:"batch_id"`
	LicenseKeyID uuid.UUID       `json:"license_key_id"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	RedeemedAt   *time.Time      `json:"redeemed_at,omitempty"`
	RedeemedBy   *uuid.UUID      `json:"redeemed_by,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// CodeMetadata is stored in redeem_codes.metadata.
type CodeMetadata struct {
	Credits int `json:"credits"`
}
