package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ollysocial/backend/internal/models"
)

// transferTimeout bounds the whole transfer transaction. A transfer that
// cannot lock both accounts and commit inside this window is aborted.
const transferTimeout = 15 * time.Second

// TransferCreditRepo is the ledger view the transfer service needs. All
// mutations run inside the caller's transaction.
type TransferCreditRepo interface {
	GetByUserIDForUpdateTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*models.UserCredit, error)
	EnsureAccountTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*models.UserCredit, error)
	DeductTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int) (int, error)
	AddTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int) (int, error)
	CreateTransactionTx(ctx context.Context, tx pgx.Tx, t *models.CreditTransaction) error
}

// TransferOrgRepo checks membership and role inside an organization.
type TransferOrgRepo interface {
	MemberRole(ctx context.Context, orgID, userID uuid.UUID) (string, error)
}

// TransferUserRepo loads the parties for descriptions and notifications.
type TransferUserRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Notifier delivers post-commit notifications. Failures here never affect
// the committed transfer.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind, title, message string) error
}

// TransferRequest moves credits between two members of an organization.
type TransferRequest struct {
	OrganizationID uuid.UUID
	FromUserID     uuid.UUID
	ToUserID       uuid.UUID
	Amount         int
	AuthorizedBy   uuid.UUID
}

// TransferResult reports both post-transfer balances.
type TransferResult struct {
	FromBalance int `json:"from_balance"`
	ToBalance   int `json:"to_balance"`
}

// TransferService moves credits atomically between organization members.
// Both ledger mutations and both audit rows commit together or not at all,
// and the sender's balance can never go below zero.
type TransferService struct {
	DB       TxBeginner
	Credits  TransferCreditRepo
	Orgs     TransferOrgRepo
	Users    TransferUserRepo
	Notifier Notifier
	Logger   *slog.Logger
}

func NewTransferService(db TxBeginner, credits TransferCreditRepo, orgs TransferOrgRepo, users TransferUserRepo, notifier Notifier, logger *slog.Logger) *TransferService {
	return &TransferService{
		DB:       db,
		Credits:  credits,
		Orgs:     orgs,
		Users:    users,
		Notifier: notifier,
		Logger:   logger,
	}
}

// Transfer validates the request, then debits the sender and credits the
// recipient in one transaction with two GIFTED audit rows. Notifications go
// out only after commit.
func (s *TransferService) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.FromUserID == req.ToUserID {
		return nil, ErrSelfTransfer
	}

	role, err := s.Orgs.MemberRole(ctx, req.OrganizationID, req.AuthorizedBy)
	if err != nil {
		return nil, fmt.Errorf("check authorizer role: %w", err)
	}
	if role != models.OrgRoleOwner && role != models.OrgRoleAdmin {
		return nil, ErrNotAuthorized
	}
	for _, party := range []uuid.UUID{req.FromUserID, req.ToUserID} {
		memberRole, err := s.Orgs.MemberRole(ctx, req.OrganizationID, party)
		if err != nil {
			return nil, fmt.Errorf("check membership: %w", err)
		}
		if memberRole == "" {
			return nil, ErrNotOrgMember
		}
	}

	sender, err := s.Users.GetByID(ctx, req.FromUserID)
	if err != nil {
		return nil, fmt.Errorf("load sender: %w", err)
	}
	recipient, err := s.Users.GetByID(ctx, req.ToUserID)
	if err != nil {
		return nil, fmt.Errorf("load recipient: %w", err)
	}
	if sender == nil || recipient == nil {
		return nil, ErrPrincipalNotFound
	}

	txCtx, cancel := context.WithTimeout(ctx, transferTimeout)
	defer cancel()

	result, err := s.transferTx(txCtx, req, sender, recipient)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, ErrTransferTimeout
		}
		return nil, err
	}

	// Post-commit: the transfer is durable, so notification delivery runs on
	// a detached context and its failures are only logged.
	s.notifyParties(context.WithoutCancel(ctx), req, sender, recipient)
	return result, nil
}

func (s *TransferService) transferTx(ctx context.Context, req TransferRequest, sender, recipient *models.User) (*TransferResult, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transfer tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the sender's row before checking funds so concurrent transfers
	// serialize instead of double-spending.
	senderCredit, err := s.Credits.GetByUserIDForUpdateTx(ctx, tx, req.FromUserID)
	if err != nil {
		return nil, fmt.Errorf("lock sender account: %w", err)
	}
	if senderCredit == nil || senderCredit.Balance < req.Amount {
		return nil, ErrInsufficientCredits
	}

	fromBalance, err := s.Credits.DeductTx(ctx, tx, req.FromUserID, req.Amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInsufficientCredits
		}
		return nil, fmt.Errorf("deduct sender: %w", err)
	}

	recipientAccount, err := s.Credits.EnsureAccountTx(ctx, tx, req.ToUserID)
	if err != nil {
		return nil, fmt.Errorf("ensure recipient account: %w", err)
	}
	toBalance, err := s.Credits.AddTx(ctx, tx, req.ToUserID, req.Amount)
	if err != nil {
		return nil, fmt.Errorf("credit recipient: %w", err)
	}

	if err := s.Credits.CreateTransactionTx(ctx, tx, &models.CreditTransaction{
		ID:           uuid.New(),
		UserCreditID: senderCredit.ID,
		Amount:       -req.Amount,
		Type:         models.TransactionGifted,
		Description:  fmt.Sprintf("Transferred to %s", recipient.Email),
	}); err != nil {
		return nil, fmt.Errorf("record sender transaction: %w", err)
	}
	if err := s.Credits.CreateTransactionTx(ctx, tx, &models.CreditTransaction{
		ID:           uuid.New(),
		UserCreditID: recipientAccount.ID,
		Amount:       req.Amount,
		Type:         models.TransactionGifted,
		Description:  fmt.Sprintf("Received from %s", sender.Email),
	}); err != nil {
		return nil, fmt.Errorf("record recipient transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transfer: %w", err)
	}
	return &TransferResult{FromBalance: fromBalance, ToBalance: toBalance}, nil
}

func (s *TransferService) notifyParties(ctx context.Context, req TransferRequest, sender, recipient *models.User) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Notify(ctx, req.FromUserID, models.NotificationCreditUpdate,
		"Credits Transferred",
		fmt.Sprintf("You transferred %d credits to %s", req.Amount, recipient.Email)); err != nil {
		s.Logger.Error("transfer sender notification failed", "user_id", req.FromUserID, "error", err)
	}
	if err := s.Notifier.Notify(ctx, req.ToUserID, models.NotificationCreditUpdate,
		"Credits Received",
		fmt.Sprintf("You received %d credits from %s", req.Amount, sender.Email)); err != nil {
		s.Logger.Error("transfer recipient notification failed", "user_id", req.ToUserID, "error", err)
	}
}
