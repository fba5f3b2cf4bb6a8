package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ollysocial/backend/internal/models"
)

type RedeemRepo struct {
	pool *pgxpool.Pool
}

func NewRedeemRepo(pool *pgxpool.Pool) *RedeemRepo {
	return &RedeemRepo{pool: pool}
}

func (r *RedeemRepo) CreateBatch(ctx context.Context, b *models.RedeemBatch) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO redeem_batches (id, name, campaign, quantity, validity, created_by, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, b.ID, b.Name, b.Campaign, b.Quantity, b.Validity, b.CreatedBy, b.Metadata).Scan(&b.CreatedAt)
}

func (r *RedeemRepo) GetBatch(ctx context.Context, id uuid.UUID) (*models.RedeemBatch, error) {
	var b models.RedeemBatch
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, campaign, quantity, validity, created_by, metadata, created_at
		FROM redeem_batches WHERE id = $1
	`, id).Scan(&b.ID, &b.Name, &b.Campaign, &b.Quantity, &b.Validity, &b.CreatedBy, &b.Metadata, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *RedeemRepo) ListBatches(ctx context.Context, limit, offset int) ([]*models.RedeemBatch, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, campaign, quantity, validity, created_by, metadata, created_at
		FROM redeem_batches ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.RedeemBatch
	for rows.Next() {
		var b models.RedeemBatch
		if err := rows.Scan(&b.ID, &b.Name, &b.Campaign, &b.Quantity, &b.Validity, &b.CreatedBy, &b.Metadata, &b.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &b)
	}
	return list, rows.Err()
}

func (r *RedeemRepo) CountBatches(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM redeem_batches`).Scan(&n)
	return n, err
}

const redeemCodeColumns = `id, code, status, batch_id, license_key_id, metadata, redeemed_at, redeemed_by, created_at`

func scanRedeemCode(row pgx.Row) (*models.RedeemCode, error) {
	var c models.RedeemCode
	err := row.Scan(&c.ID, &c.Code, &c.Status, &c.BatchID, &c.LicenseKeyID, &c.Metadata, &c.RedeemedAt, &c.RedeemedBy, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCodeTx inserts a redeem code inside the given transaction.
func (r *RedeemRepo) CreateCodeTx(ctx context.Context, tx pgx.Tx, c *models.RedeemCode) error {
	return tx.QueryRow(ctx, `
		INSERT INTO redeem_codes (id, code, status, batch_id, license_key_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, c.ID, c.Code, c.Status, c.BatchID, c.LicenseKeyID, c.Metadata).Scan(&c.CreatedAt)
}

// GetByCode returns the code and its owning batch, or (nil, nil, nil) if the
// code does not exist.
func (r *RedeemRepo) GetByCode(ctx context.Context, code string) (*models.RedeemCode, *models.RedeemBatch, error) {
	c, err := scanRedeemCode(r.pool.QueryRow(ctx, `
		SELECT `+redeemCodeColumns+` FROM redeem_codes WHERE code = $1
	`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	b, err := r.GetBatch(ctx, c.BatchID)
	if err != nil {
		return nil, nil, err
	}
	return c, b, nil
}

func (r *RedeemRepo) ListCodesByBatch(ctx context.Context, batchID uuid.UUID, limit, offset int) ([]*models.RedeemCode, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+redeemCodeColumns+` FROM redeem_codes
		WHERE batch_id = $1 ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, batchID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.RedeemCode
	for rows.Next() {
		c, err := scanRedeemCode(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *RedeemRepo) CountCodesByBatch(ctx context.Context, batchID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM redeem_codes WHERE batch_id = $1`, batchID).Scan(&n)
	return n, err
}

// RedeemCodeExists is the keygen collision probe for the code namespace.
func (r *RedeemRepo) RedeemCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM redeem_codes WHERE code = $1)
	`, code).Scan(&exists)
	return exists, err
}

// MarkRedeemedTx transitions ACTIVE -> REDEEMED. The status guard makes the
// transition single-shot even under concurrent redemption attempts.
func (r *RedeemRepo) MarkRedeemedTx(ctx context.Context, tx pgx.Tx, id, userID uuid.UUID) error {
	result, err := tx.Exec(ctx, `
		UPDATE redeem_codes
		SET status = $2, redeemed_at = now(), redeemed_by = $3
		WHERE id = $1 AND status = $4
	`, id, models.RedeemCodeStatusRedeemed, userID, models.RedeemCodeStatusActive)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// MarkExpired transitions ACTIVE -> EXPIRED.
func (r *RedeemRepo) MarkExpired(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE redeem_codes SET status = $2 WHERE id = $1 AND status = $3
	`, id, models.RedeemCodeStatusExpired, models.RedeemCodeStatusActive)
	return err
}
