package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ollysocial/backend/internal/models"
)

// RedeemerCodeRepo is the redeem-code store view the redeemer needs.
type RedeemerCodeRepo interface {
	GetByCode(ctx context.Context, code string) (*models.RedeemCode, *models.RedeemBatch, error)
	MarkRedeemedTx(ctx context.Context, tx pgx.Tx, codeID, userID uuid.UUID) error
	MarkExpired(ctx context.Context, codeID uuid.UUID) error
}

// RedeemerLicenseRepo activates and links the license a code points at.
type RedeemerLicenseRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.LicenseKey, error)
	ActivateTx(ctx context.Context, tx pgx.Tx, licenseKeyID uuid.UUID) error
	LinkUserTx(ctx context.Context, tx pgx.Tx, licenseKeyID, userID uuid.UUID) error
}

// RedeemerSubLicenseRepo activates the delegated keys under a license.
type RedeemerSubLicenseRepo interface {
	ActivateAllForLicenseTx(ctx context.Context, tx pgx.Tx, licenseKeyID uuid.UUID) error
}

// RedeemerCreditRepo grants the code's credits to the redeeming user.
type RedeemerCreditRepo interface {
	EnsureAccountTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*models.UserCredit, error)
	AddTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int) (int, error)
	CreateTransactionTx(ctx context.Context, tx pgx.Tx, t *models.CreditTransaction) error
}

// RedeemResult is what a successful redemption unlocked.
type RedeemResult struct {
	LicenseKey     string `json:"license_key"`
	Tier           int    `json:"tier"`
	CreditsGranted int    `json:"credits_granted"`
	Balance        int    `json:"balance"`
}

// Redeemer performs one-shot redemption of promotional codes. A code moves
// ACTIVE -> REDEEMED exactly once; everything it unlocks (license activation,
// sub-license activation, user link, credit grant) commits atomically with
// that transition.
type Redeemer struct {
	DB          TxBeginner
	Codes       RedeemerCodeRepo
	Licenses    RedeemerLicenseRepo
	SubLicenses RedeemerSubLicenseRepo
	Credits     RedeemerCreditRepo
	Notifier    Notifier
	Logger      *slog.Logger
}

func NewRedeemer(db TxBeginner, codes RedeemerCodeRepo, licenses RedeemerLicenseRepo, subLicenses RedeemerSubLicenseRepo, credits RedeemerCreditRepo, notifier Notifier, logger *slog.Logger) *Redeemer {
	return &Redeemer{
		DB:          db,
		Codes:       codes,
		Licenses:    licenses,
		SubLicenses: subLicenses,
		Credits:     credits,
		Notifier:    notifier,
		Logger:      logger,
	}
}

// Redeem validates the code, activates its license hierarchy, links the user
// and grants credits, all in one transaction keyed on the code's ACTIVE ->
// REDEEMED transition. Concurrent redemptions of the same code race on that
// guarded update; exactly one wins.
func (r *Redeemer) Redeem(ctx context.Context, code string, userID uuid.UUID) (*RedeemResult, error) {
	rc, batch, err := r.Codes.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("look up code: %w", err)
	}
	if rc == nil {
		return nil, ErrCodeNotFound
	}
	switch rc.Status {
	case models.RedeemCodeStatusRedeemed:
		return nil, ErrCodeRedeemed
	case models.RedeemCodeStatusExpired:
		return nil, ErrCodeExpired
	}
	if batch != nil && time.Now().After(batch.Validity) {
		if err := r.Codes.MarkExpired(ctx, rc.ID); err != nil {
			r.Logger.Error("mark code expired failed", "code_id", rc.ID, "error", err)
		}
		return nil, ErrCodeExpired
	}

	license, err := r.Licenses.GetByID(ctx, rc.LicenseKeyID)
	if err != nil {
		return nil, fmt.Errorf("load license: %w", err)
	}
	if license == nil {
		return nil, ErrCodeNotFound
	}

	credits := r.creditsFor(rc, batch, license)

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin redeem tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.Licenses.ActivateTx(ctx, tx, license.ID); err != nil {
		return nil, fmt.Errorf("activate license: %w", err)
	}
	if err := r.SubLicenses.ActivateAllForLicenseTx(ctx, tx, license.ID); err != nil {
		return nil, fmt.Errorf("activate sub-licenses: %w", err)
	}
	if err := r.Licenses.LinkUserTx(ctx, tx, license.ID, userID); err != nil {
		return nil, fmt.Errorf("link user: %w", err)
	}

	balance := 0
	if credits > 0 {
		account, err := r.Credits.EnsureAccountTx(ctx, tx, userID)
		if err != nil {
			return nil, fmt.Errorf("ensure credit account: %w", err)
		}
		balance, err = r.Credits.AddTx(ctx, tx, userID, credits)
		if err != nil {
			return nil, fmt.Errorf("grant credits: %w", err)
		}
		if err := r.Credits.CreateTransactionTx(ctx, tx, &models.CreditTransaction{
			ID:           uuid.New(),
			UserCreditID: account.ID,
			Amount:       credits,
			Type:         models.TransactionPlanCredits,
			Description:  fmt.Sprintf("Credits from license key: %s", license.Key),
		}); err != nil {
			return nil, fmt.Errorf("record credit grant: %w", err)
		}
	}

	if err := r.Codes.MarkRedeemedTx(ctx, tx, rc.ID, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCodeRedeemed
		}
		return nil, fmt.Errorf("mark code redeemed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit redemption: %w", err)
	}

	if r.Notifier != nil {
		if err := r.Notifier.Notify(context.WithoutCancel(ctx), userID,
			models.NotificationLicenseUpdate,
			"License Activated",
			fmt.Sprintf("Your license %s is now active", license.Key)); err != nil {
			r.Logger.Error("redeem notification failed", "user_id", userID, "error", err)
		}
	}

	return &RedeemResult{
		LicenseKey:     license.Key,
		Tier:           license.Tier,
		CreditsGranted: credits,
		Balance:        balance,
	}, nil
}

// creditsFor resolves the grant amount: the code's own metadata wins, then
// the batch's, then the license's.
func (r *Redeemer) creditsFor(rc *models.RedeemCode, batch *models.RedeemBatch, license *models.LicenseKey) int {
	if c := creditsFromMetadata(rc.Metadata); c > 0 {
		return c
	}
	if batch != nil {
		if c := creditsFromMetadata(batch.Metadata); c > 0 {
			return c
		}
	}
	if c := creditsFromMetadata(license.Metadata); c > 0 {
		return c
	}
	return 0
}

func creditsFromMetadata(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var m struct {
		Credits int `json:"credits"`
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return 0
	}
	return m.Credits
}
