package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/ollysocial/backend/internal/middleware"
	"github.com/ollysocial/backend/internal/models"
	"github.com/ollysocial/backend/internal/services"
)

// Issuer is the batch issuance operation the handler needs.
type Issuer interface {
	IssueBatch(ctx context.Context, req services.IssueBatchRequest, issuedBy uuid.UUID, issuerEmail string) (*services.BatchResult, error)
}

// BatchReader lists batches and their codes.
type BatchReader interface {
	GetBatch(ctx context.Context, id uuid.UUID) (*models.RedeemBatch, error)
	ListBatches(ctx context.Context, limit, offset int) ([]*models.RedeemBatch, error)
	CountBatches(ctx context.Context) (int, error)
	ListCodesByBatch(ctx context.Context, batchID uuid.UUID, limit, offset int) ([]*models.RedeemCode, error)
	CountCodesByBatch(ctx context.Context, batchID uuid.UUID) (int, error)
}

// UserReader resolves the issuer's email for batch metadata.
type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// BatchHandler serves the admin /v1/redeem-batches endpoints.
type BatchHandler struct {
	Issuer  Issuer
	Batches BatchReader
	Users   UserReader
	Logger  *slog.Logger
}

// --- POST /v1/redeem-batches ---

type createBatchResponse struct {
	BatchID string                `json:"batch_id"`
	Issued  []services.IssuedUnit `json:"issued"`
}

type partialBatchResponse struct {
	Error   string                `json:"error"`
	BatchID string                `json:"batch_id,omitempty"`
	Issued  []services.IssuedUnit `json:"issued"`
}

// CreateBatch handles POST /v1/redeem-batches. On a mid-batch failure the
// units that committed are reported alongside the error so the operator can
// resume instead of re-issuing everything.
func (h *BatchHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req services.IssueBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	callerID := middleware.UserIDFromCtx(r.Context())
	email := ""
	if caller, err := h.Users.GetByID(r.Context(), callerID); err == nil && caller != nil {
		email = caller.Email
	}

	result, err := h.Issuer.IssueBatch(r.Context(), req, callerID, email)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidQuantity),
			errors.Is(err, services.ErrInvalidTier),
			errors.Is(err, services.ErrInvalidCredits):
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.Logger.Error("issue batch", "error", err)
		resp := partialBatchResponse{Error: "batch issuance incomplete"}
		if result != nil {
			if result.Batch != nil {
				resp.BatchID = result.Batch.ID.String()
			}
			resp.Issued = result.Codes
		}
		respondJSON(w, http.StatusInternalServerError, resp)
		return
	}

	respondJSON(w, http.StatusCreated, createBatchResponse{
		BatchID: result.Batch.ID.String(),
		Issued:  result.Codes,
	})
}

// --- GET /v1/redeem-batches ---

type batchListResponse struct {
	Batches []*models.RedeemBatch `json:"batches"`
	Total   int                   `json:"total"`
}

func (h *BatchHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginate(r)
	batches, err := h.Batches.ListBatches(r.Context(), limit, offset)
	if err != nil {
		h.Logger.Error("list batches", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	total, err := h.Batches.CountBatches(r.Context())
	if err != nil {
		h.Logger.Error("count batches", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, batchListResponse{Batches: batches, Total: total})
}

// --- GET /v1/redeem-batches/{id} ---

type batchDetailResponse struct {
	Batch     *models.RedeemBatch  `json:"batch"`
	Codes     []*models.RedeemCode `json:"codes"`
	CodeCount int                  `json:"code_count"`
}

func (h *BatchHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid batch id")
		return
	}
	batch, err := h.Batches.GetBatch(r.Context(), id)
	if err != nil {
		h.Logger.Error("get batch", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if batch == nil {
		respondError(w, http.StatusNotFound, "batch not found")
		return
	}
	limit, offset := paginate(r)
	codes, err := h.Batches.ListCodesByBatch(r.Context(), id, limit, offset)
	if err != nil {
		h.Logger.Error("list batch codes", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	count, err := h.Batches.CountCodesByBatch(r.Context(), id)
	if err != nil {
		h.Logger.Error("count batch codes", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, batchDetailResponse{Batch: batch, Codes: codes, CodeCount: count})
}

// paginate reads limit/offset query params with sane bounds.
func paginate(r *http.Request) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
