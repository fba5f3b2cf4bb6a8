package services

import (
	"encoding/json"
	"errors"
	"testing"
)

func newTestValidator(t *testing.T) *PayloadValidator {
	t.Helper()
	v, err := NewPayloadValidator()
	if err != nil {
		t.Fatalf("NewPayloadValidator: %v", err)
	}
	return v
}

// ---------------------------------------------------------------------------
// Scope settings
// ---------------------------------------------------------------------------

func TestValidateSettings_Valid(t *testing.T) {
	v := newTestValidator(t)

	payloads := []string{
		`{"model":"olly_v1","llm_vendor":"olly","reply_tone":"formal"}`,
		`{"language":"spanish","use_post_native_language":true}`,
		`{}`,
		`{"custom_buttons":[],"custom_actions":[{"name":"Summarize"}]}`,
	}
	for _, p := range payloads {
		if err := v.ValidateSettings(json.RawMessage(p)); err != nil {
			t.Errorf("expected %s to validate, got: %v", p, err)
		}
	}
}

func TestValidateSettings_Invalid(t *testing.T) {
	v := newTestValidator(t)

	cases := map[string]string{
		"empty model":          `{"model":""}`,
		"unknown field":        `{"favourite_color":"green"}`,
		"wrong type":           `{"use_post_native_language":"yes"}`,
		"not json":             `not json`,
		"array instead of obj": `["model"]`,
	}
	for name, p := range cases {
		err := v.ValidateSettings(json.RawMessage(p))
		if err == nil {
			t.Errorf("%s: expected validation error for %s", name, p)
			continue
		}
		if !errors.Is(err, ErrValidation) {
			t.Errorf("%s: error is not ErrValidation: %v", name, err)
		}
	}
}

// ---------------------------------------------------------------------------
// Auto-engage config
// ---------------------------------------------------------------------------

func TestValidateAutoEngage_Valid(t *testing.T) {
	v := newTestValidator(t)

	payloads := []string{
		`{"platform":"LINKEDIN"}`,
		`{"platform":"TWITTER","is_enabled":true,"actions":["COMMENT","LIKE"],"posts_per_day":3}`,
		`{"platform":"INSTAGRAM","hashtags":["#golang"],"prompt_mode":"custom","keyword_targets":null}`,
	}
	for _, p := range payloads {
		if err := v.ValidateAutoEngage(json.RawMessage(p)); err != nil {
			t.Errorf("expected %s to validate, got: %v", p, err)
		}
	}
}

func TestValidateAutoEngage_Invalid(t *testing.T) {
	v := newTestValidator(t)

	cases := map[string]string{
		"missing platform": `{"is_enabled":true}`,
		"bad platform":     `{"platform":"MYSPACE"}`,
		"bad action":       `{"platform":"LINKEDIN","actions":["FOLLOW"]}`,
		"zero interval":    `{"platform":"LINKEDIN","time_interval":0}`,
		"bad prompt mode":  `{"platform":"LINKEDIN","prompt_mode":"manual"}`,
		"unknown field":    `{"platform":"LINKEDIN","spam_level":11}`,
	}
	for name, p := range cases {
		err := v.ValidateAutoEngage(json.RawMessage(p))
		if err == nil {
			t.Errorf("%s: expected validation error for %s", name, p)
			continue
		}
		if !errors.Is(err, ErrValidation) {
			t.Errorf("%s: error is not ErrValidation: %v", name, err)
		}
	}
}
