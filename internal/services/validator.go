package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrValidation can be used with errors.Is to detect payload validation
// failures.
var ErrValidation = errors.New("validation failed")

const scopeSettingsSchema = `{
	"type": "object",
	"properties": {
		"custom_buttons": {"type": "array"},
		"custom_actions": {"type": "array"},
		"model": {"type": "string", "minLength": 1},
		"llm_vendor": {"type": "string", "minLength": 1},
		"reply_tone": {"type": "string"},
		"reply_length": {"type": "string"},
		"tone_intent": {"type": "string"},
		"language": {"type": "string"},
		"use_post_native_language": {"type": "boolean"}
	},
	"additionalProperties": false
}`

const autoEngageSchema = `{
	"type": "object",
	"properties": {
		"platform": {"type": "string", "enum": ["LINKEDIN", "TWITTER", "INSTAGRAM"]},
		"is_enabled": {"type": "boolean"},
		"time_interval": {"type": "integer", "minimum": 1},
		"actions": {"type": "array", "items": {"type": "string", "enum": ["COMMENT", "LIKE", "REPOST"]}},
		"posts_per_day": {"type": "integer", "minimum": 0},
		"hashtags": {"type": "array", "items": {"type": "string"}},
		"use_brand_voice": {"type": "boolean"},
		"feed_likes": {"type": "integer", "minimum": 0},
		"feed_comments": {"type": "integer", "minimum": 0},
		"prompt_mode": {"type": "string", "enum": ["automatic", "custom"]},
		"keyword_targets": {"type": ["string", "null"]}
	},
	"required": ["platform"],
	"additionalProperties": false
}`

// PayloadValidator compiles the settings and automation-config schemas once
// and validates raw request payloads before they reach storage.
type PayloadValidator struct {
	settings   *jsonschema.Schema
	autoEngage *jsonschema.Schema
}

func NewPayloadValidator() (*PayloadValidator, error) {
	settings, err := jsonschema.CompileString("https://olly.social/schemas/scope-settings", scopeSettingsSchema)
	if err != nil {
		return nil, fmt.Errorf("compile scope settings schema: %w", err)
	}
	autoEngage, err := jsonschema.CompileString("https://olly.social/schemas/auto-engage-config", autoEngageSchema)
	if err != nil {
		return nil, fmt.Errorf("compile auto-engage schema: %w", err)
	}
	return &PayloadValidator{settings: settings, autoEngage: autoEngage}, nil
}

// ValidateSettings rejects settings payloads that do not match the schema.
func (v *PayloadValidator) ValidateSettings(raw json.RawMessage) error {
	return v.validate(v.settings, raw)
}

// ValidateAutoEngage rejects automation-config payloads that do not match
// the schema.
func (v *PayloadValidator) ValidateAutoEngage(raw json.RawMessage) error {
	return v.validate(v.autoEngage, raw)
}

func (v *PayloadValidator) validate(schema *jsonschema.Schema, raw json.RawMessage) error {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrValidation, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
