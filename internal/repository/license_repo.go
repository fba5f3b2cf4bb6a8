package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ollysocial/backend/internal/models"
)

type LicenseRepo struct {
	pool *pgxpool.Pool
}

func NewLicenseRepo(pool *pgxpool.Pool) *LicenseRepo {
	return &LicenseRepo{pool: pool}
}

const licenseColumns = `id, key, is_active, tier, vendor, organization_id, metadata, activation_count, activated_at, created_at`

func scanLicense(row pgx.Row) (*models.LicenseKey, error) {
	var l models.LicenseKey
	err := row.Scan(&l.ID, &l.Key, &l.IsActive, &l.Tier, &l.Vendor, &l.OrganizationID, &l.Metadata, &l.ActivationCount, &l.ActivatedAt, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateTx inserts a license key inside the given transaction.
func (r *LicenseRepo) CreateTx(ctx context.Context, tx pgx.Tx, l *models.LicenseKey) error {
	return tx.QueryRow(ctx, `
		INSERT INTO license_keys (id, key, is_active, tier, vendor, organization_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, l.ID, l.Key, l.IsActive, l.Tier, l.Vendor, l.OrganizationID, l.Metadata).Scan(&l.CreatedAt)
}

func (r *LicenseRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.LicenseKey, error) {
	return scanLicense(r.pool.QueryRow(ctx, `
		SELECT `+licenseColumns+` FROM license_keys WHERE id = $1
	`, id))
}

// GetByKey returns the license with the given key, or nil if absent.
func (r *LicenseRepo) GetByKey(ctx context.Context, key string) (*models.LicenseKey, error) {
	l, err := scanLicense(r.pool.QueryRow(ctx, `
		SELECT `+licenseColumns+` FROM license_keys WHERE key = $1
	`, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

// LicenseKeyExists is the keygen collision probe.
func (r *LicenseRepo) LicenseKeyExists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM license_keys WHERE key = $1)
	`, key).Scan(&exists)
	return exists, err
}

// ActivateTx flips the license active and bumps the activation counter.
func (r *LicenseRepo) ActivateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE license_keys
		SET is_active = TRUE, activated_at = now(), activation_count = activation_count + 1
		WHERE id = $1
	`, id)
	return err
}

// LinkUserTx associates a user with a license. Idempotent: redeeming twice
// for the same user leaves a single association row.
func (r *LicenseRepo) LinkUserTx(ctx context.Context, tx pgx.Tx, licenseKeyID, userID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO user_license_keys (user_id, license_key_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, license_key_id) DO NOTHING
	`, userID, licenseKeyID)
	return err
}

// FirstUserID returns the first user associated with the license, or nil.
func (r *LicenseRepo) FirstUserID(ctx context.Context, licenseKeyID uuid.UUID) (*uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT user_id FROM user_license_keys
		WHERE license_key_id = $1
		ORDER BY created_at
		LIMIT 1
	`, licenseKeyID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// IsHolder reports whether the user is associated with the license.
func (r *LicenseRepo) IsHolder(ctx context.Context, licenseKeyID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM user_license_keys WHERE license_key_id = $1 AND user_id = $2)
	`, licenseKeyID, userID).Scan(&exists)
	return exists, err
}

// LatestBrandVoice returns the newest knowledge summary for the license, or
// nil when the license has no trained brand voice yet.
func (r *LicenseRepo) LatestBrandVoice(ctx context.Context, licenseKeyID uuid.UUID) (*models.KnowledgeSummary, error) {
	var s models.KnowledgeSummary
	err := r.pool.QueryRow(ctx, `
		SELECT id, license_key_id, summary, created_at
		FROM knowledge_summaries
		WHERE license_key_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, licenseKeyID).Scan(&s.ID, &s.LicenseKeyID, &s.Summary, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
