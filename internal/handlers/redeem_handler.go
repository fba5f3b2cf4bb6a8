package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/ollysocial/backend/internal/middleware"
	"github.com/ollysocial/backend/internal/services"
)

// CodeRedeemer is the redemption operation the handler needs.
type CodeRedeemer interface {
	Redeem(ctx context.Context, code string, userID uuid.UUID) (*services.RedeemResult, error)
}

// RedeemHandler serves POST /v1/redeem.
type RedeemHandler struct {
	Redeemer CodeRedeemer
	Logger   *slog.Logger
}

type redeemRequest struct {
	Code string `json:"code"`
}

func (h *RedeemHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Code == "" {
		respondError(w, http.StatusBadRequest, "code is required")
		return
	}

	userID := middleware.UserIDFromCtx(r.Context())
	result, err := h.Redeemer.Redeem(r.Context(), req.Code, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCodeNotFound):
			respondError(w, http.StatusNotFound, "code not found")
		case errors.Is(err, services.ErrCodeRedeemed):
			respondError(w, http.StatusConflict, "code already redeemed")
		case errors.Is(err, services.ErrCodeExpired):
			respondError(w, http.StatusGone, "code expired")
		default:
			h.Logger.Error("redeem code", "error", err)
			respondError(w, http.StatusInternalServerError, "redemption failed")
		}
		return
	}
	respondJSON(w, http.StatusOK, result)
}
