package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ollysocial/backend/internal/models"
)

// SettingsRepo is the single accessor for both settings tables. Callers
// address rows by (ScopeKind, owner id); the repo picks the backing table,
// so there is no code path that can write a delegated credential's settings
// into the primary table.
type SettingsRepo struct {
	pool *pgxpool.Pool
}

func NewSettingsRepo(pool *pgxpool.Pool) *SettingsRepo {
	return &SettingsRepo{pool: pool}
}

func settingsTable(kind models.ScopeKind) (table, ownerCol string, err error) {
	switch kind {
	case models.ScopeKindPrimary:
		return "license_key_settings", "license_key_id", nil
	case models.ScopeKindDelegated:
		return "sub_license_settings", "sub_license_id", nil
	default:
		return "", "", fmt.Errorf("unknown scope kind %q", kind)
	}
}

// Get returns the settings row for the credential, or nil if it has none.
func (r *SettingsRepo) Get(ctx context.Context, kind models.ScopeKind, ownerID uuid.UUID) (*models.ScopeSettings, error) {
	table, ownerCol, err := settingsTable(kind)
	if err != nil {
		return nil, err
	}
	s := models.ScopeSettings{Kind: kind, OwnerID: ownerID}
	err = r.pool.QueryRow(ctx, `
		SELECT custom_buttons, custom_actions, model, llm_vendor, reply_tone, reply_length,
		       tone_intent, language, use_post_native_language, updated_at
		FROM `+table+` WHERE `+ownerCol+` = $1
	`, ownerID).Scan(
		&s.CustomButtons, &s.CustomActions, &s.Model, &s.LLMVendor, &s.ReplyTone, &s.ReplyLength,
		&s.ToneIntent, &s.Language, &s.UsePostNativeLanguage, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert writes the settings row for the credential, creating it on first
// write.
func (r *SettingsRepo) Upsert(ctx context.Context, s *models.ScopeSettings) error {
	table, ownerCol, err := settingsTable(s.Kind)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO `+table+` (`+ownerCol+`, custom_buttons, custom_actions, model, llm_vendor,
			reply_tone, reply_length, tone_intent, language, use_post_native_language)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (`+ownerCol+`) DO UPDATE SET
			custom_buttons = EXCLUDED.custom_buttons,
			custom_actions = EXCLUDED.custom_actions,
			model = EXCLUDED.model,
			llm_vendor = EXCLUDED.llm_vendor,
			reply_tone = EXCLUDED.reply_tone,
			reply_length = EXCLUDED.reply_length,
			tone_intent = EXCLUDED.tone_intent,
			language = EXCLUDED.language,
			use_post_native_language = EXCLUDED.use_post_native_language,
			updated_at = now()
	`, s.OwnerID, s.CustomButtons, s.CustomActions, s.Model, s.LLMVendor,
		s.ReplyTone, s.ReplyLength, s.ToneIntent, s.Language, s.UsePostNativeLanguage)
	return err
}
