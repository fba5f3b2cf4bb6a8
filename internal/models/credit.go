package models

import (
	"time"

	"github.com/google/uuid"
)

// Credit transaction type enums. Rows in credit_transactions are append-only:
// nothing in the codebase updates or deletes them.
const (
	TransactionEarned      = "EARNED"
	TransactionSpent       = "SPENT"
	TransactionGifted      = "GIFTED"
	TransactionPurchased   = "PURCHASED"
	TransactionRefunded    = "REFUNDED"
	TransactionPlanCredits = "PLAN_CREDITS"
)

// UserCredit is a principal's credit account. The balance never goes
// negative; the schema enforces it with a CHECK constraint and every debit
// path uses a conditional update.
type UserCredit struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Balance   int       `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreditTransaction struct {
	ID           uuid.UUID `json:"id"`
	UserCreditID uuid.UUID `json:"user_credit_id"`
	Amount       int       `json:"amount"`
	Type         string    `json:"type"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
}
