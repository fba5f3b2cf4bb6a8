package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ollysocial/backend/internal/models"
)

// ResolverLicenseRepo is the license store view the resolver needs.
type ResolverLicenseRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.LicenseKey, error)
	GetByKey(ctx context.Context, key string) (*models.LicenseKey, error)
	FirstUserID(ctx context.Context, licenseKeyID uuid.UUID) (*uuid.UUID, error)
	LatestBrandVoice(ctx context.Context, licenseKeyID uuid.UUID) (*models.KnowledgeSummary, error)
}

// ResolverSubLicenseRepo probes the delegated namespace.
type ResolverSubLicenseRepo interface {
	GetByKey(ctx context.Context, key string) (*models.SubLicense, error)
}

// SettingsStore reads and writes the kind-tagged settings rows.
type SettingsStore interface {
	Get(ctx context.Context, kind models.ScopeKind, ownerID uuid.UUID) (*models.ScopeSettings, error)
	Upsert(ctx context.Context, s *models.ScopeSettings) error
}

// AutoConfigStore reads and upserts per-platform automation configs.
type AutoConfigStore interface {
	GetByUserAndPlatform(ctx context.Context, userID uuid.UUID, platform string) (*models.AutoEngageConfig, error)
	Upsert(ctx context.Context, c *models.AutoEngageConfig) error
}

// BalanceStore reads credit balances.
type BalanceStore interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserCredit, error)
}

// ResolvedScope is the effective view of a presented credential: its
// classification, hierarchy, cascaded settings, and the resolved
// principal's automation config and balance.
type ResolvedScope struct {
	Kind          models.ScopeKind         `json:"kind"`
	License       *models.LicenseKey       `json:"license"`
	SubLicense    *models.SubLicense       `json:"sub_license,omitempty"`
	Settings      *models.ScopeSettings    `json:"settings"`
	BrandVoice    string                   `json:"brand_voice,omitempty"`
	UserID        *uuid.UUID               `json:"user_id,omitempty"`
	AutoEngage    *models.AutoEngageConfig `json:"auto_engage_config,omitempty"`
	CreditBalance int                      `json:"credit_balance"`
}

// Resolver classifies opaque credential strings and assembles their
// effective configuration. Delegated credentials inherit brand voice from
// their parent but keep their own interaction settings.
type Resolver struct {
	Licenses    ResolverLicenseRepo
	SubLicenses ResolverSubLicenseRepo
	Settings    SettingsStore
	AutoConfigs AutoConfigStore
	Credits     BalanceStore
	Validator   *PayloadValidator
	Logger      *slog.Logger
}

func NewResolver(licenses ResolverLicenseRepo, subLicenses ResolverSubLicenseRepo, settings SettingsStore, autoConfigs AutoConfigStore, credits BalanceStore, validator *PayloadValidator, logger *slog.Logger) *Resolver {
	return &Resolver{
		Licenses:    licenses,
		SubLicenses: subLicenses,
		Settings:    settings,
		AutoConfigs: autoConfigs,
		Credits:     credits,
		Validator:   validator,
		Logger:      logger,
	}
}

// classify probes the delegated namespace first, then the primary one.
// Probing order matters: some callers present sub-license keys on endpoints
// that never parse the prefix.
func (r *Resolver) classify(ctx context.Context, key string) (models.ScopeKind, *models.LicenseKey, *models.SubLicense, error) {
	sub, err := r.SubLicenses.GetByKey(ctx, key)
	if err != nil {
		return "", nil, nil, fmt.Errorf("probe sub-license: %w", err)
	}
	if sub != nil {
		license, err := r.Licenses.GetByID(ctx, sub.MainLicenseKeyID)
		if err != nil {
			return "", nil, nil, fmt.Errorf("load parent license: %w", err)
		}
		return models.ScopeKindDelegated, license, sub, nil
	}
	license, err := r.Licenses.GetByKey(ctx, key)
	if err != nil {
		return "", nil, nil, fmt.Errorf("probe license: %w", err)
	}
	if license == nil {
		return "", nil, nil, ErrCredentialNotFound
	}
	return models.ScopeKindPrimary, license, nil, nil
}

// Resolve classifies the credential and builds its effective scope.
func (r *Resolver) Resolve(ctx context.Context, key string) (*ResolvedScope, error) {
	kind, license, sub, err := r.classify(ctx, key)
	if err != nil {
		return nil, err
	}

	ownerID := license.ID
	if kind == models.ScopeKindDelegated {
		ownerID = sub.ID
	}

	settings, err := r.Settings.Get(ctx, kind, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if settings == nil {
		settings = models.DefaultScopeSettings(kind, ownerID)
	}

	// Brand voice always comes from the parent license; delegated
	// credentials never own this field.
	voice, err := r.Licenses.LatestBrandVoice(ctx, license.ID)
	if err != nil {
		return nil, fmt.Errorf("load brand voice: %w", err)
	}

	scope := &ResolvedScope{
		Kind:       kind,
		License:    license,
		SubLicense: sub,
		Settings:   settings,
	}
	if voice != nil {
		scope.BrandVoice = voice.Summary
	}

	userID, err := r.resolvePrincipal(ctx, kind, license, sub)
	if err != nil {
		return nil, err
	}
	scope.UserID = userID
	if userID == nil {
		return scope, nil
	}

	cfg, err := r.ensureAutoEngage(ctx, *userID, license.ID)
	if err != nil {
		return nil, err
	}
	scope.AutoEngage = cfg

	credit, err := r.Credits.GetByUserID(ctx, *userID)
	if err != nil {
		return nil, fmt.Errorf("load credit balance: %w", err)
	}
	if credit != nil {
		scope.CreditBalance = credit.Balance
	}
	return scope, nil
}

func (r *Resolver) resolvePrincipal(ctx context.Context, kind models.ScopeKind, license *models.LicenseKey, sub *models.SubLicense) (*uuid.UUID, error) {
	if kind == models.ScopeKindDelegated {
		return sub.AssignedUserID, nil
	}
	userID, err := r.Licenses.FirstUserID(ctx, license.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve license user: %w", err)
	}
	return userID, nil
}

// ensureAutoEngage returns the principal's config for the default platform,
// creating it with defaults on first read. Racing creations converge on one
// row because the write is an upsert.
func (r *Resolver) ensureAutoEngage(ctx context.Context, userID, licenseKeyID uuid.UUID) (*models.AutoEngageConfig, error) {
	cfg, err := r.AutoConfigs.GetByUserAndPlatform(ctx, userID, models.PlatformLinkedIn)
	if err != nil {
		return nil, fmt.Errorf("load auto-engage config: %w", err)
	}
	if cfg != nil {
		return cfg, nil
	}
	cfg = models.DefaultAutoEngageConfig(userID, models.PlatformLinkedIn)
	cfg.LicenseKeyID = &licenseKeyID
	if err := r.AutoConfigs.Upsert(ctx, cfg); err != nil {
		return nil, fmt.Errorf("create default auto-engage config: %w", err)
	}
	return cfg, nil
}

// ScopeSettingsPayload is the client-writable subset of ScopeSettings.
type ScopeSettingsPayload struct {
	CustomButtons         json.RawMessage `json:"custom_buttons"`
	CustomActions         json.RawMessage `json:"custom_actions"`
	Model                 string          `json:"model"`
	LLMVendor             string          `json:"llm_vendor"`
	ReplyTone             string          `json:"reply_tone"`
	ReplyLength           string          `json:"reply_length"`
	ToneIntent            string          `json:"tone_intent"`
	Language              string          `json:"language"`
	UsePostNativeLanguage bool            `json:"use_post_native_language"`
}

// UpsertSettings classifies the credential and writes the payload into the
// settings table matching its kind. The write path mirrors the read path:
// classification happens exactly once, before any write.
func (r *Resolver) UpsertSettings(ctx context.Context, key string, raw json.RawMessage) (*models.ScopeSettings, error) {
	if err := r.Validator.ValidateSettings(raw); err != nil {
		return nil, err
	}
	kind, license, sub, err := r.classify(ctx, key)
	if err != nil {
		return nil, err
	}
	ownerID := license.ID
	if kind == models.ScopeKindDelegated {
		ownerID = sub.ID
	}

	var payload ScopeSettingsPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	settings := models.DefaultScopeSettings(kind, ownerID)
	settings.CustomButtons = payload.CustomButtons
	settings.CustomActions = payload.CustomActions
	if payload.Model != "" {
		settings.Model = payload.Model
	}
	if payload.LLMVendor != "" {
		settings.LLMVendor = payload.LLMVendor
	}
	if payload.ReplyTone != "" {
		settings.ReplyTone = payload.ReplyTone
	}
	if payload.ReplyLength != "" {
		settings.ReplyLength = payload.ReplyLength
	}
	if payload.ToneIntent != "" {
		settings.ToneIntent = payload.ToneIntent
	}
	if payload.Language != "" {
		settings.Language = payload.Language
	}
	settings.UsePostNativeLanguage = payload.UsePostNativeLanguage

	if err := r.Settings.Upsert(ctx, settings); err != nil {
		return nil, fmt.Errorf("upsert %s settings: %w", kind, err)
	}
	return settings, nil
}

// AutoEngagePayload is the client-writable automation config.
type AutoEngagePayload struct {
	Platform       string   `json:"platform"`
	IsEnabled      bool     `json:"is_enabled"`
	TimeInterval   int      `json:"time_interval"`
	Actions        []string `json:"actions"`
	PostsPerDay    int      `json:"posts_per_day"`
	Hashtags       []string `json:"hashtags"`
	UseBrandVoice  bool     `json:"use_brand_voice"`
	FeedLikes      int      `json:"feed_likes"`
	FeedComments   int      `json:"feed_comments"`
	PromptMode     string   `json:"prompt_mode"`
	KeywordTargets *string  `json:"keyword_targets"`
}

// UpsertAutoEngageConfig updates the (user, platform) config or creates it.
func (r *Resolver) UpsertAutoEngageConfig(ctx context.Context, userID uuid.UUID, raw json.RawMessage) (*models.AutoEngageConfig, error) {
	if err := r.Validator.ValidateAutoEngage(raw); err != nil {
		return nil, err
	}
	var payload AutoEngagePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	cfg := models.DefaultAutoEngageConfig(userID, payload.Platform)
	cfg.IsEnabled = payload.IsEnabled
	if payload.TimeInterval > 0 {
		cfg.TimeInterval = payload.TimeInterval
	}
	if len(payload.Actions) > 0 {
		cfg.Actions = payload.Actions
	}
	if payload.PostsPerDay > 0 {
		cfg.PostsPerDay = payload.PostsPerDay
	}
	if payload.Hashtags != nil {
		cfg.Hashtags = payload.Hashtags
	}
	cfg.UseBrandVoice = payload.UseBrandVoice
	if payload.FeedLikes > 0 {
		cfg.FeedLikes = payload.FeedLikes
	}
	if payload.FeedComments > 0 {
		cfg.FeedComments = payload.FeedComments
	}
	if payload.PromptMode != "" {
		cfg.PromptMode = payload.PromptMode
	}
	cfg.KeywordTargets = payload.KeywordTargets

	if err := r.AutoConfigs.Upsert(ctx, cfg); err != nil {
		return nil, fmt.Errorf("upsert auto-engage config: %w", err)
	}
	return cfg, nil
}
