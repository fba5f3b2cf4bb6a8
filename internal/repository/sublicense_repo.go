package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ollysocial/backend/internal/models"
)

type SubLicenseRepo struct {
	pool *pgxpool.Pool
}

func NewSubLicenseRepo(pool *pgxpool.Pool) *SubLicenseRepo {
	return &SubLicenseRepo{pool: pool}
}

const subLicenseColumns = `id, key, status, main_license_key_id, vendor, assigned_user_id, assigned_email, activation_count, metadata, created_at`

func scanSubLicense(row pgx.Row) (*models.SubLicense, error) {
	var s models.SubLicense
	err := row.Scan(&s.ID, &s.Key, &s.Status, &s.MainLicenseKeyID, &s.Vendor, &s.AssignedUserID, &s.AssignedEmail, &s.ActivationCount, &s.Metadata, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateTx inserts a sub-license inside the given transaction. The parent
// reference is set here and never updated afterwards.
func (r *SubLicenseRepo) CreateTx(ctx context.Context, tx pgx.Tx, s *models.SubLicense) error {
	return tx.QueryRow(ctx, `
		INSERT INTO sub_licenses (id, key, status, main_license_key_id, vendor, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, s.ID, s.Key, s.Status, s.MainLicenseKeyID, s.Vendor, s.Metadata).Scan(&s.CreatedAt)
}

func (r *SubLicenseRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.SubLicense, error) {
	return scanSubLicense(r.pool.QueryRow(ctx, `
		SELECT `+subLicenseColumns+` FROM sub_licenses WHERE id = $1
	`, id))
}

// GetByKey returns the sub-license with the given key, or nil if absent.
func (r *SubLicenseRepo) GetByKey(ctx context.Context, key string) (*models.SubLicense, error) {
	s, err := scanSubLicense(r.pool.QueryRow(ctx, `
		SELECT `+subLicenseColumns+` FROM sub_licenses WHERE key = $1
	`, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *SubLicenseRepo) ListByLicense(ctx context.Context, licenseKeyID uuid.UUID) ([]*models.SubLicense, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+subLicenseColumns+` FROM sub_licenses
		WHERE main_license_key_id = $1 ORDER BY created_at
	`, licenseKeyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.SubLicense
	for rows.Next() {
		s, err := scanSubLicense(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// SubLicenseKeyExists is the keygen collision probe.
func (r *SubLicenseRepo) SubLicenseKeyExists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM sub_licenses WHERE key = $1)
	`, key).Scan(&exists)
	return exists, err
}

// ActivateAllForLicenseTx flips every child of the license to ACTIVE.
func (r *SubLicenseRepo) ActivateAllForLicenseTx(ctx context.Context, tx pgx.Tx, licenseKeyID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE sub_licenses SET status = $1 WHERE main_license_key_id = $2
	`, models.SubLicenseStatusActive, licenseKeyID)
	return err
}

// Assign records the assignee email and, when the user already exists, the
// user id. Passing a nil userID reserves the sub-license for a pending email.
func (r *SubLicenseRepo) Assign(ctx context.Context, id uuid.UUID, email string, userID *uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE sub_licenses SET assigned_email = $2, assigned_user_id = $3 WHERE id = $1
	`, id, email, userID)
	return err
}

// ClearAssignment removes the assignee from a sub-license.
func (r *SubLicenseRepo) ClearAssignment(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE sub_licenses SET assigned_email = NULL, assigned_user_id = NULL WHERE id = $1
	`, id)
	return err
}

// EmailAssigned reports whether the email already holds a child of the
// given main license.
func (r *SubLicenseRepo) EmailAssigned(ctx context.Context, mainLicenseKeyID uuid.UUID, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM sub_licenses
			WHERE main_license_key_id = $1 AND assigned_email = $2
		)
	`, mainLicenseKeyID, email).Scan(&exists)
	return exists, err
}

// ReplaceKey swaps the credential string and resets the activation counter.
// Used when a holder regenerates a sub-license. The parent reference is
// deliberately untouched.
func (r *SubLicenseRepo) ReplaceKey(ctx context.Context, id uuid.UUID, newKey string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE sub_licenses SET key = $2, activation_count = 0 WHERE id = $1
	`, id, newKey)
	return err
}
