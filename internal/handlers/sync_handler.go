package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/ollysocial/backend/internal/middleware"
	"github.com/ollysocial/backend/internal/models"
	"github.com/ollysocial/backend/internal/services"
)

// ScopeResolver is the credential resolution surface the extension hits.
type ScopeResolver interface {
	Resolve(ctx context.Context, key string) (*services.ResolvedScope, error)
	UpsertSettings(ctx context.Context, key string, raw json.RawMessage) (*models.ScopeSettings, error)
	UpsertAutoEngageConfig(ctx context.Context, userID uuid.UUID, raw json.RawMessage) (*models.AutoEngageConfig, error)
}

// SyncHandler serves the browser-extension sync surface: credential
// resolution plus settings and automation-config writes.
type SyncHandler struct {
	Resolver ScopeResolver
	Logger   *slog.Logger
}

// Sync handles POST /v1/sync?licenseKey=..., the extension's boot call.
// Resolution is upsert-on-read: a principal with no automation config gets
// the default row created here.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("licenseKey")
	if key == "" {
		respondError(w, http.StatusBadRequest, "licenseKey is required")
		return
	}
	scope, err := h.Resolver.Resolve(r.Context(), key)
	if err != nil {
		if errors.Is(err, services.ErrCredentialNotFound) {
			respondError(w, http.StatusNotFound, "license key not found")
			return
		}
		h.Logger.Error("resolve credential", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, scope)
}

// UpdateSettings handles PUT /v1/settings?licenseKey=... The key decides
// which settings table the write lands in.
func (h *SyncHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("licenseKey")
	if key == "" {
		respondError(w, http.StatusBadRequest, "licenseKey is required")
		return
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	settings, err := h.Resolver.UpsertSettings(r.Context(), key, raw)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			respondError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, services.ErrCredentialNotFound):
			respondError(w, http.StatusNotFound, "license key not found")
		default:
			h.Logger.Error("upsert settings", "error", err)
			respondError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

// UpdateAutoEngageConfig handles PUT /v1/auto-engage-config for the
// authenticated user.
func (h *SyncHandler) UpdateAutoEngageConfig(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	cfg, err := h.Resolver.UpsertAutoEngageConfig(r.Context(), userID, raw)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.Logger.Error("upsert auto-engage config", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}
