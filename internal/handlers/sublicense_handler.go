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

// SubLicenseOps is the delegated-key management surface.
type SubLicenseOps interface {
	List(ctx context.Context, licenseKeyID uuid.UUID) ([]*models.SubLicense, error)
	Assign(ctx context.Context, callerID, subLicenseID uuid.UUID, email string) (*models.SubLicense, error)
	Unassign(ctx context.Context, callerID, subLicenseID uuid.UUID) error
	Regenerate(ctx context.Context, callerID, subLicenseID uuid.UUID) (*models.SubLicense, error)
}

// SubLicenseHandler serves the sub-license management endpoints.
type SubLicenseHandler struct {
	Manager SubLicenseOps
	Logger  *slog.Logger
}

// List handles GET /v1/licenses/{id}/sub-licenses.
func (h *SubLicenseHandler) List(w http.ResponseWriter, r *http.Request) {
	licenseID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid license id")
		return
	}
	subs, err := h.Manager.List(r.Context(), licenseID)
	if err != nil {
		h.Logger.Error("list sub-licenses", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if subs == nil {
		subs = []*models.SubLicense{}
	}
	respondJSON(w, http.StatusOK, subs)
}

type assignRequest struct {
	Email string `json:"email"`
}

// Assign handles POST /v1/sub-licenses/{id}/assign.
func (h *SubLicenseHandler) Assign(w http.ResponseWriter, r *http.Request) {
	subID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sub-license id")
		return
	}
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	sub, err := h.Manager.Assign(r.Context(), middleware.UserIDFromCtx(r.Context()), subID, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrNotAuthorized):
			respondError(w, http.StatusForbidden, "organization ownership required")
		case errors.Is(err, services.ErrCredentialNotFound):
			respondError(w, http.StatusNotFound, "sub-license not found")
		case errors.Is(err, services.ErrEmailTaken):
			respondError(w, http.StatusConflict, "email already holds a key under this license")
		default:
			h.Logger.Error("assign sub-license", "error", err)
			respondError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

// Unassign handles POST /v1/sub-licenses/{id}/unassign.
func (h *SubLicenseHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	subID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sub-license id")
		return
	}
	err = h.Manager.Unassign(r.Context(), middleware.UserIDFromCtx(r.Context()), subID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotAuthorized):
			respondError(w, http.StatusForbidden, "organization ownership required")
		case errors.Is(err, services.ErrCredentialNotFound):
			respondError(w, http.StatusNotFound, "sub-license not found")
		default:
			h.Logger.Error("unassign sub-license", "error", err)
			respondError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Regenerate handles POST /v1/sub-licenses/{id}/regenerate.
func (h *SubLicenseHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	subID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sub-license id")
		return
	}
	sub, err := h.Manager.Regenerate(r.Context(), middleware.UserIDFromCtx(r.Context()), subID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotLicenseHolder):
			respondError(w, http.StatusForbidden, "only the license holder may regenerate keys")
		case errors.Is(err, services.ErrCredentialNotFound):
			respondError(w, http.StatusNotFound, "sub-license not found")
		default:
			h.Logger.Error("regenerate sub-license", "error", err)
			respondError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	respondJSON(w, http.StatusOK, sub)
}
