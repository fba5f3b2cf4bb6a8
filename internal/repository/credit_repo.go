package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ollysocial/backend/internal/models"
)

// CreditRepo persists credit accounts and their append-only transaction log.
// Balance mutations are conditional updates so a debit can never race a
// concurrent debit into a negative balance; the schema CHECK is the backstop.
type CreditRepo struct {
	pool *pgxpool.Pool
}

func NewCreditRepo(pool *pgxpool.Pool) *CreditRepo {
	return &CreditRepo{pool: pool}
}

const userCreditColumns = `id, user_id, balance, created_at, updated_at`

func scanUserCredit(row pgx.Row) (*models.UserCredit, error) {
	var c models.UserCredit
	err := row.Scan(&c.ID, &c.UserID, &c.Balance, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByUserID returns the account, or nil if the user has none yet.
func (r *CreditRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserCredit, error) {
	c, err := scanUserCredit(r.pool.QueryRow(ctx, `
		SELECT `+userCreditColumns+` FROM user_credits WHERE user_id = $1
	`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// GetByUserIDForUpdateTx locks the account row. Call within a transaction.
// Returns nil if the user has no account.
func (r *CreditRepo) GetByUserIDForUpdateTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*models.UserCredit, error) {
	c, err := scanUserCredit(tx.QueryRow(ctx, `
		SELECT `+userCreditColumns+` FROM user_credits WHERE user_id = $1 FOR UPDATE
	`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// EnsureAccountTx creates a zero-balance account for the user if none exists
// and returns the (locked) row. The insert-or-ignore plus locked re-read is
// safe against a concurrent EnsureAccountTx for the same user.
func (r *CreditRepo) EnsureAccountTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*models.UserCredit, error) {
	_, err := tx.Exec(ctx, `
		INSERT INTO user_credits (id, user_id, balance)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, uuid.New(), userID)
	if err != nil {
		return nil, err
	}
	return scanUserCredit(tx.QueryRow(ctx, `
		SELECT `+userCreditColumns+` FROM user_credits WHERE user_id = $1 FOR UPDATE
	`, userID))
}

// DeductTx atomically deducts amount if balance >= amount. Returns
// pgx.ErrNoRows when the balance is insufficient.
func (r *CreditRepo) DeductTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int) (newBalance int, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE user_credits SET balance = balance - $1, updated_at = now()
		WHERE user_id = $2 AND balance >= $1
		RETURNING balance
	`, amount, userID).Scan(&newBalance)
	return newBalance, err
}

// AddTx adds amount to the account and returns the new balance.
func (r *CreditRepo) AddTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int) (newBalance int, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE user_credits SET balance = balance + $1, updated_at = now()
		WHERE user_id = $2
		RETURNING balance
	`, amount, userID).Scan(&newBalance)
	return newBalance, err
}

// CreateTransactionTx appends a ledger entry inside the given transaction.
func (r *CreditRepo) CreateTransactionTx(ctx context.Context, tx pgx.Tx, t *models.CreditTransaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO credit_transactions (id, user_credit_id, amount, type, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, t.ID, t.UserCreditID, t.Amount, t.Type, t.Description).Scan(&t.CreatedAt)
}

// ListTransactions returns the account's ledger entries, newest first.
func (r *CreditRepo) ListTransactions(ctx context.Context, userCreditID uuid.UUID) ([]*models.CreditTransaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_credit_id, amount, type, description, created_at
		FROM credit_transactions WHERE user_credit_id = $1 ORDER BY created_at DESC
	`, userCreditID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.CreditTransaction
	for rows.Next() {
		var t models.CreditTransaction
		if err := rows.Scan(&t.ID, &t.UserCreditID, &t.Amount, &t.Type, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}
