package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/ollysocial/backend/internal/models"
)

// SubLicenseStore is the sub-license store view the manager needs.
type SubLicenseStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.SubLicense, error)
	ListByLicense(ctx context.Context, licenseKeyID uuid.UUID) ([]*models.SubLicense, error)
	Assign(ctx context.Context, id uuid.UUID, email string, userID *uuid.UUID) error
	ClearAssignment(ctx context.Context, id uuid.UUID) error
	EmailAssigned(ctx context.Context, mainLicenseKeyID uuid.UUID, email string) (bool, error)
	ReplaceKey(ctx context.Context, id uuid.UUID, newKey string) error
}

// HolderChecker answers whether a user holds a license.
type HolderChecker interface {
	IsHolder(ctx context.Context, licenseKeyID, userID uuid.UUID) (bool, error)
}

// OrgOwnership resolves the caller's owned organization.
type OrgOwnership interface {
	FirstOwnedOrg(ctx context.Context, userID uuid.UUID) (*models.Organization, error)
}

// EmailLookup resolves an email to a registered user, if any.
type EmailLookup interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// SubKeyGenerator mints replacement keys in the delegated namespace.
type SubKeyGenerator interface {
	SubLicenseKey(ctx context.Context) (string, error)
}

// SubLicenseManager assigns, revokes, and regenerates delegated keys under a
// main license.
type SubLicenseManager struct {
	SubLicenses SubLicenseStore
	Licenses    HolderChecker
	Orgs        OrgOwnership
	Users       EmailLookup
	Keys        SubKeyGenerator
	Notifier    Notifier
	Logger      *slog.Logger
}

func NewSubLicenseManager(subLicenses SubLicenseStore, licenses HolderChecker, orgs OrgOwnership, users EmailLookup, keys SubKeyGenerator, notifier Notifier, logger *slog.Logger) *SubLicenseManager {
	return &SubLicenseManager{
		SubLicenses: subLicenses,
		Licenses:    licenses,
		Orgs:        orgs,
		Users:       users,
		Keys:        keys,
		Notifier:    notifier,
		Logger:      logger,
	}
}

// List returns every delegated key under the license.
func (m *SubLicenseManager) List(ctx context.Context, licenseKeyID uuid.UUID) ([]*models.SubLicense, error) {
	return m.SubLicenses.ListByLicense(ctx, licenseKeyID)
}

// Assign binds a sub-license to an email. The caller must own an
// organization, and the same email cannot hold two sub-licenses under one
// parent. The email need not belong to a registered user yet; the user link
// stays empty until the invitee signs up.
func (m *SubLicenseManager) Assign(ctx context.Context, callerID, subLicenseID uuid.UUID, email string) (*models.SubLicense, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}

	org, err := m.Orgs.FirstOwnedOrg(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("check org ownership: %w", err)
	}
	if org == nil {
		return nil, ErrNotAuthorized
	}

	sub, err := m.SubLicenses.GetByID(ctx, subLicenseID)
	if err != nil {
		return nil, fmt.Errorf("load sub-license: %w", err)
	}
	if sub == nil {
		return nil, ErrCredentialNotFound
	}

	taken, err := m.SubLicenses.EmailAssigned(ctx, sub.MainLicenseKeyID, email)
	if err != nil {
		return nil, fmt.Errorf("check email assignment: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	var userID *uuid.UUID
	user, err := m.Users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("look up invitee: %w", err)
	}
	if user != nil {
		userID = &user.ID
	}

	if err := m.SubLicenses.Assign(ctx, subLicenseID, email, userID); err != nil {
		return nil, fmt.Errorf("assign sub-license: %w", err)
	}
	sub.AssignedEmail = &email
	sub.AssignedUserID = userID

	if user != nil && m.Notifier != nil {
		if err := m.Notifier.Notify(context.WithoutCancel(ctx), user.ID,
			models.NotificationLicenseUpdate,
			"License Assigned",
			fmt.Sprintf("A license key %s has been assigned to you", sub.Key)); err != nil {
			m.Logger.Error("assignment notification failed", "user_id", user.ID, "error", err)
		}
	}
	return sub, nil
}

// Unassign detaches the sub-license from its current holder.
func (m *SubLicenseManager) Unassign(ctx context.Context, callerID, subLicenseID uuid.UUID) error {
	org, err := m.Orgs.FirstOwnedOrg(ctx, callerID)
	if err != nil {
		return fmt.Errorf("check org ownership: %w", err)
	}
	if org == nil {
		return ErrNotAuthorized
	}
	sub, err := m.SubLicenses.GetByID(ctx, subLicenseID)
	if err != nil {
		return fmt.Errorf("load sub-license: %w", err)
	}
	if sub == nil {
		return ErrCredentialNotFound
	}
	return m.SubLicenses.ClearAssignment(ctx, subLicenseID)
}

// Regenerate replaces the sub-license key with a fresh one and resets its
// activation count. Only a holder of the parent license may regenerate.
func (m *SubLicenseManager) Regenerate(ctx context.Context, callerID, subLicenseID uuid.UUID) (*models.SubLicense, error) {
	sub, err := m.SubLicenses.GetByID(ctx, subLicenseID)
	if err != nil {
		return nil, fmt.Errorf("load sub-license: %w", err)
	}
	if sub == nil {
		return nil, ErrCredentialNotFound
	}

	holder, err := m.Licenses.IsHolder(ctx, sub.MainLicenseKeyID, callerID)
	if err != nil {
		return nil, fmt.Errorf("check license holder: %w", err)
	}
	if !holder {
		return nil, ErrNotLicenseHolder
	}

	newKey, err := m.Keys.SubLicenseKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("mint replacement key: %w", err)
	}
	if err := m.SubLicenses.ReplaceKey(ctx, subLicenseID, newKey); err != nil {
		return nil, fmt.Errorf("replace key: %w", err)
	}
	sub.Key = newKey
	sub.ActivationCount = 0
	return sub, nil
}
