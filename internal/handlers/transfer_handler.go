package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/ollysocial/backend/internal/middleware"
	"github.com/ollysocial/backend/internal/models"
	"github.com/ollysocial/backend/internal/services"
)

// Transferer is the credit-transfer operation the handler needs.
type Transferer interface {
	Transfer(ctx context.Context, req services.TransferRequest) (*services.TransferResult, error)
}

// CreditReader serves the balance and history endpoints.
type CreditReader interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserCredit, error)
	ListTransactions(ctx context.Context, userCreditID uuid.UUID) ([]*models.CreditTransaction, error)
}

// TransferHandler serves the credit endpoints.
type TransferHandler struct {
	Transfers Transferer
	Credits   CreditReader
	Logger    *slog.Logger
}

// --- POST /v1/orgs/{id}/credit-transfers ---

type transferRequest struct {
	FromUserID string `json:"from_user_id"`
	ToUserID   string `json:"to_user_id"`
	Amount     int    `json:"amount"`
}

func (h *TransferHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid organization id")
		return
	}
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	fromID, err := uuid.Parse(req.FromUserID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid from_user_id")
		return
	}
	toID, err := uuid.Parse(req.ToUserID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid to_user_id")
		return
	}

	result, err := h.Transfers.Transfer(r.Context(), services.TransferRequest{
		OrganizationID: orgID,
		FromUserID:     fromID,
		ToUserID:       toID,
		Amount:         req.Amount,
		AuthorizedBy:   middleware.UserIDFromCtx(r.Context()),
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidAmount):
			respondError(w, http.StatusBadRequest, "amount must be > 0")
		case errors.Is(err, services.ErrSelfTransfer):
			respondError(w, http.StatusBadRequest, "cannot transfer to yourself")
		case errors.Is(err, services.ErrNotAuthorized):
			respondError(w, http.StatusForbidden, "owner or admin role required")
		case errors.Is(err, services.ErrNotOrgMember):
			respondError(w, http.StatusForbidden, "both parties must be organization members")
		case errors.Is(err, services.ErrPrincipalNotFound):
			respondError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, services.ErrInsufficientCredits):
			respondError(w, http.StatusPaymentRequired, "insufficient credits")
		case errors.Is(err, services.ErrTransferTimeout):
			respondError(w, http.StatusGatewayTimeout, "transfer timed out")
		default:
			h.Logger.Error("credit transfer", "error", err)
			respondError(w, http.StatusInternalServerError, "transfer failed")
		}
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// --- GET /v1/credits ---

type creditsResponse struct {
	Balance      int                         `json:"balance"`
	Transactions []*models.CreditTransaction `json:"transactions"`
}

func (h *TransferHandler) GetCredits(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	account, err := h.Credits.GetByUserID(r.Context(), userID)
	if err != nil {
		h.Logger.Error("get credits", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if account == nil {
		respondJSON(w, http.StatusOK, creditsResponse{Transactions: []*models.CreditTransaction{}})
		return
	}
	transactions, err := h.Credits.ListTransactions(r.Context(), account.ID)
	if err != nil {
		h.Logger.Error("list transactions", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if transactions == nil {
		transactions = []*models.CreditTransaction{}
	}
	respondJSON(w, http.StatusOK, creditsResponse{Balance: account.Balance, Transactions: transactions})
}
