package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ScopeKind tags which credential class a settings row belongs to. The two
// backing tables are structurally identical; the kind decides which one a
// write lands in, so a resolver can never write a sub-license's settings
// into the main-license table or vice versa.
type ScopeKind string

const (
	ScopeKindPrimary   ScopeKind = "primary"
	ScopeKindDelegated ScopeKind = "delegated"
)

// ScopeSettings is the per-credential settings row. OwnerID is the
// license_keys.id or sub_licenses.id depending on Kind.
type ScopeSettings struct {
	Kind                  ScopeKind       `json:"kind"`
	OwnerID               uuid.UUID       `json:"owner_id"`
	CustomButtons         json.RawMessage `json:"custom_buttons,omitempty"`
	CustomActions         json.RawMessage `json:"custom_actions,omitempty"`
	Model                 string          `json:"model"`
	LLMVendor             string          `json:"llm_vendor"`
	ReplyTone             string          `json:"reply_tone"`
	ReplyLength           string          `json:"reply_length"`
	ToneIntent            string          `json:"tone_intent"`
	Language              string          `json:"language"`
	UsePostNativeLanguage bool            `json:"use_post_native_language"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// DefaultScopeSettings returns the namespace defaults used when a credential
// has no settings row of its own.
func DefaultScopeSettings(kind ScopeKind, ownerID uuid.UUID) *ScopeSettings {
	return &ScopeSettings{
		Kind:        kind,
		OwnerID:     ownerID,
		Model:       "olly_v1",
		LLMVendor:   "olly",
		ReplyTone:   "friendly",
		ReplyLength: "short (150 Characters)",
		ToneIntent:  "Ask an Interesting Question",
		Language:    "english",
	}
}
