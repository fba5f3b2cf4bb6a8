package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/ollysocial/backend/internal/models"
)

// ---------------------------------------------------------------------------
// Resolver-specific mocks.
// ---------------------------------------------------------------------------

type mockResolverLicenses struct {
	byID      map[uuid.UUID]*models.LicenseKey
	byKey     map[string]*models.LicenseKey
	firstUser map[uuid.UUID]*uuid.UUID
	voices    map[uuid.UUID]*models.KnowledgeSummary
}

func newMockResolverLicenses(licenses ...*models.LicenseKey) *mockResolverLicenses {
	m := &mockResolverLicenses{
		byID:      make(map[uuid.UUID]*models.LicenseKey),
		byKey:     make(map[string]*models.LicenseKey),
		firstUser: make(map[uuid.UUID]*uuid.UUID),
		voices:    make(map[uuid.UUID]*models.KnowledgeSummary),
	}
	for _, l := range licenses {
		m.byID[l.ID] = l
		m.byKey[l.Key] = l
	}
	return m
}

func (m *mockResolverLicenses) GetByID(_ context.Context, id uuid.UUID) (*models.LicenseKey, error) {
	return m.byID[id], nil
}

func (m *mockResolverLicenses) GetByKey(_ context.Context, key string) (*models.LicenseKey, error) {
	return m.byKey[key], nil
}

func (m *mockResolverLicenses) FirstUserID(_ context.Context, id uuid.UUID) (*uuid.UUID, error) {
	return m.firstUser[id], nil
}

func (m *mockResolverLicenses) LatestBrandVoice(_ context.Context, id uuid.UUID) (*models.KnowledgeSummary, error) {
	return m.voices[id], nil
}

type mockResolverSubs struct {
	byKey map[string]*models.SubLicense
}

func (m *mockResolverSubs) GetByKey(_ context.Context, key string) (*models.SubLicense, error) {
	return m.byKey[key], nil
}

type mockSettingsStore struct {
	rows    map[string]*models.ScopeSettings
	upserts int
}

func settingsKey(kind models.ScopeKind, ownerID uuid.UUID) string {
	return fmt.Sprintf("%s/%s", kind, ownerID)
}

func newMockSettingsStore() *mockSettingsStore {
	return &mockSettingsStore{rows: make(map[string]*models.ScopeSettings)}
}

func (m *mockSettingsStore) Get(_ context.Context, kind models.ScopeKind, ownerID uuid.UUID) (*models.ScopeSettings, error) {
	return m.rows[settingsKey(kind, ownerID)], nil
}

func (m *mockSettingsStore) Upsert(_ context.Context, s *models.ScopeSettings) error {
	m.upserts++
	cp := *s
	m.rows[settingsKey(s.Kind, s.OwnerID)] = &cp
	return nil
}

type mockAutoCfgStore struct {
	rows    map[string]*models.AutoEngageConfig
	upserts int
}

func newMockAutoCfgStore() *mockAutoCfgStore {
	return &mockAutoCfgStore{rows: make(map[string]*models.AutoEngageConfig)}
}

func (m *mockAutoCfgStore) GetByUserAndPlatform(_ context.Context, userID uuid.UUID, platform string) (*models.AutoEngageConfig, error) {
	return m.rows[userID.String()+"/"+platform], nil
}

func (m *mockAutoCfgStore) Upsert(_ context.Context, c *models.AutoEngageConfig) error {
	m.upserts++
	cp := *c
	m.rows[c.UserID.String()+"/"+c.Platform] = &cp
	return nil
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

type resolverFixture struct {
	resolver *Resolver
	licenses *mockResolverLicenses
	subs     *mockResolverSubs
	settings *mockSettingsStore
	autoCfg  *mockAutoCfgStore
	ledger   *mockLedger

	license *models.LicenseKey
	sub     *models.SubLicense
	holder  uuid.UUID
	invitee uuid.UUID
}

func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()

	holder := uuid.New()
	invitee := uuid.New()
	license := &models.LicenseKey{
		ID:       uuid.New(),
		Key:      "OLLYR-1111-2222-3333-4444",
		IsActive: true,
		Tier:     2,
		Vendor:   models.VendorPromo,
	}
	sub := &models.SubLicense{
		ID:               uuid.New(),
		Key:              "OLLYS-5555-6666-7777-8888",
		Status:           models.SubLicenseStatusActive,
		MainLicenseKeyID: license.ID,
		Vendor:           models.VendorPromo,
		AssignedUserID:   &invitee,
	}

	licenses := newMockResolverLicenses(license)
	licenses.firstUser[license.ID] = &holder
	licenses.voices[license.ID] = &models.KnowledgeSummary{LicenseKeyID: license.ID, Summary: "confident and playful"}

	subs := &mockResolverSubs{byKey: map[string]*models.SubLicense{sub.Key: sub}}
	settings := newMockSettingsStore()
	autoCfg := newMockAutoCfgStore()
	ledger := newMockLedger()

	validator, err := NewPayloadValidator()
	if err != nil {
		t.Fatalf("NewPayloadValidator: %v", err)
	}
	r := NewResolver(licenses, subs, settings, autoCfg, ledger, validator, testLogger())
	return &resolverFixture{
		resolver: r,
		licenses: licenses,
		subs:     subs,
		settings: settings,
		autoCfg:  autoCfg,
		ledger:   ledger,
		license:  license,
		sub:      sub,
		holder:   holder,
		invitee:  invitee,
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestResolve_PrimaryDefaults(t *testing.T) {
	f := newResolverFixture(t)
	f.ledger.seed(f.holder, 250)

	scope, err := f.resolver.Resolve(context.Background(), f.license.Key)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if scope.Kind != models.ScopeKindPrimary {
		t.Errorf("kind: got %q, want primary", scope.Kind)
	}
	if scope.SubLicense != nil {
		t.Error("primary resolution should carry no sub-license")
	}
	if scope.Settings.Model != "olly_v1" || scope.Settings.Language != "english" {
		t.Errorf("default settings not applied: %+v", scope.Settings)
	}
	if scope.BrandVoice != "confident and playful" {
		t.Errorf("brand voice: got %q", scope.BrandVoice)
	}
	if scope.UserID == nil || *scope.UserID != f.holder {
		t.Error("principal should be the first linked user")
	}
	if scope.CreditBalance != 250 {
		t.Errorf("balance: got %d, want 250", scope.CreditBalance)
	}
	// First resolution creates the default automation config.
	if f.autoCfg.upserts != 1 {
		t.Errorf("auto-config upserts: got %d, want 1", f.autoCfg.upserts)
	}
	if scope.AutoEngage == nil || scope.AutoEngage.Platform != models.PlatformLinkedIn {
		t.Errorf("auto-engage config: %+v", scope.AutoEngage)
	}

	// Second resolution reuses the config.
	if _, err := f.resolver.Resolve(context.Background(), f.license.Key); err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if f.autoCfg.upserts != 1 {
		t.Errorf("auto-config upserts after reuse: got %d, want 1", f.autoCfg.upserts)
	}
}

func TestResolve_DelegatedCascade(t *testing.T) {
	f := newResolverFixture(t)
	f.ledger.seed(f.invitee, 70)

	// The sub-license owns its interaction settings.
	own := models.DefaultScopeSettings(models.ScopeKindDelegated, f.sub.ID)
	own.ReplyTone = "formal"
	f.settings.rows[settingsKey(models.ScopeKindDelegated, f.sub.ID)] = own

	scope, err := f.resolver.Resolve(context.Background(), f.sub.Key)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if scope.Kind != models.ScopeKindDelegated {
		t.Errorf("kind: got %q, want delegated", scope.Kind)
	}
	if scope.License == nil || scope.License.ID != f.license.ID {
		t.Error("parent license should be attached")
	}
	if scope.Settings.ReplyTone != "formal" {
		t.Errorf("own settings should win: got %q", scope.Settings.ReplyTone)
	}
	// Brand voice always cascades from the parent.
	if scope.BrandVoice != "confident and playful" {
		t.Errorf("brand voice: got %q", scope.BrandVoice)
	}
	if scope.UserID == nil || *scope.UserID != f.invitee {
		t.Error("principal should be the assigned user")
	}
	if scope.CreditBalance != 70 {
		t.Errorf("balance: got %d, want 70", scope.CreditBalance)
	}
}

func TestResolve_UnassignedDelegated(t *testing.T) {
	f := newResolverFixture(t)
	f.sub.AssignedUserID = nil

	scope, err := f.resolver.Resolve(context.Background(), f.sub.Key)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if scope.UserID != nil {
		t.Error("unassigned sub-license has no principal")
	}
	if scope.AutoEngage != nil || scope.CreditBalance != 0 {
		t.Error("no principal means no config and no balance")
	}
	if f.autoCfg.upserts != 0 {
		t.Error("no default config should be created without a principal")
	}
}

func TestResolve_NotFound(t *testing.T) {
	f := newResolverFixture(t)
	if _, err := f.resolver.Resolve(context.Background(), "OLLYR-DEAD-DEAD-DEAD-DEAD"); !errors.Is(err, ErrCredentialNotFound) {
		t.Fatalf("expected ErrCredentialNotFound, got %v", err)
	}
}

func TestUpsertSettings_KindRouting(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()
	payload := json.RawMessage(`{"reply_tone":"sarcastic","model":"olly_v2"}`)

	// Write through the sub-license key lands in the delegated table.
	got, err := f.resolver.UpsertSettings(ctx, f.sub.Key, payload)
	if err != nil {
		t.Fatalf("UpsertSettings(sub): %v", err)
	}
	if got.Kind != models.ScopeKindDelegated || got.OwnerID != f.sub.ID {
		t.Errorf("sub write routed to %s/%s", got.Kind, got.OwnerID)
	}
	if got.ReplyTone != "sarcastic" || got.Model != "olly_v2" {
		t.Errorf("payload not applied: %+v", got)
	}
	// Omitted fields keep their defaults.
	if got.Language != "english" {
		t.Errorf("default language lost: %q", got.Language)
	}

	// Write through the main key lands in the primary table.
	got, err = f.resolver.UpsertSettings(ctx, f.license.Key, payload)
	if err != nil {
		t.Fatalf("UpsertSettings(license): %v", err)
	}
	if got.Kind != models.ScopeKindPrimary || got.OwnerID != f.license.ID {
		t.Errorf("license write routed to %s/%s", got.Kind, got.OwnerID)
	}

	if _, err := f.resolver.UpsertSettings(ctx, "OLLYR-DEAD-DEAD-DEAD-DEAD", payload); !errors.Is(err, ErrCredentialNotFound) {
		t.Errorf("unknown key: expected ErrCredentialNotFound, got %v", err)
	}
}

func TestUpsertSettings_Validation(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()

	cases := []json.RawMessage{
		json.RawMessage(`{"model":""}`),           // empty model
		json.RawMessage(`{"unknown_field":true}`), // additionalProperties
		json.RawMessage(`not json`),
	}
	for _, payload := range cases {
		if _, err := f.resolver.UpsertSettings(ctx, f.license.Key, payload); !errors.Is(err, ErrValidation) {
			t.Errorf("payload %s: expected ErrValidation, got %v", payload, err)
		}
	}
}

func TestUpsertAutoEngageConfig(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()

	cfg, err := f.resolver.UpsertAutoEngageConfig(ctx, f.invitee, json.RawMessage(
		`{"platform":"TWITTER","is_enabled":true,"posts_per_day":3,"actions":["LIKE"]}`))
	if err != nil {
		t.Fatalf("UpsertAutoEngageConfig: %v", err)
	}
	if cfg.Platform != models.PlatformTwitter || !cfg.IsEnabled || cfg.PostsPerDay != 3 {
		t.Errorf("config not applied: %+v", cfg)
	}
	if len(cfg.Actions) != 1 || cfg.Actions[0] != "LIKE" {
		t.Errorf("actions: %v", cfg.Actions)
	}
	// Unspecified numeric fields keep defaults.
	if cfg.FeedLikes != 10 || cfg.TimeInterval != 5 {
		t.Errorf("defaults lost: %+v", cfg)
	}

	// Platform is required.
	if _, err := f.resolver.UpsertAutoEngageConfig(ctx, f.invitee, json.RawMessage(`{"is_enabled":true}`)); !errors.Is(err, ErrValidation) {
		t.Errorf("missing platform: expected ErrValidation, got %v", err)
	}
	// Enum violation.
	if _, err := f.resolver.UpsertAutoEngageConfig(ctx, f.invitee, json.RawMessage(`{"platform":"MYSPACE"}`)); !errors.Is(err, ErrValidation) {
		t.Errorf("bad platform: expected ErrValidation, got %v", err)
	}
}
