package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/ollysocial/backend/internal/middleware"
	"github.com/ollysocial/backend/internal/services"
)

type stubTransferer struct {
	result *services.TransferResult
	err    error
	got    *services.TransferRequest
}

func (s *stubTransferer) Transfer(_ context.Context, req services.TransferRequest) (*services.TransferResult, error) {
	s.got = &req
	return s.result, s.err
}

func newTransferRequest(t *testing.T, orgID uuid.UUID, body string, userID uuid.UUID) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v1/orgs/%s/credit-transfers", orgID), strings.NewReader(body))
	req.SetPathValue("id", orgID.String())
	return req.WithContext(middleware.WithUser(req.Context(), userID, false))
}

func TestTransferHandler_Success(t *testing.T) {
	stub := &stubTransferer{result: &services.TransferResult{FromBalance: 60, ToBalance: 40}}
	h := &TransferHandler{Transfers: stub, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	orgID := uuid.New()
	caller := uuid.New()
	from := uuid.New()
	to := uuid.New()
	body := fmt.Sprintf(`{"from_user_id":%q,"to_user_id":%q,"amount":40}`, from, to)

	rec := httptest.NewRecorder()
	h.Transfer(rec, newTransferRequest(t, orgID, body, caller))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result services.TransferResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.FromBalance != 60 || result.ToBalance != 40 {
		t.Errorf("balances: %+v", result)
	}
	if stub.got.OrganizationID != orgID || stub.got.AuthorizedBy != caller {
		t.Errorf("request passthrough: %+v", stub.got)
	}
}

func TestTransferHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.ErrInvalidAmount, http.StatusBadRequest},
		{services.ErrSelfTransfer, http.StatusBadRequest},
		{services.ErrNotAuthorized, http.StatusForbidden},
		{services.ErrNotOrgMember, http.StatusForbidden},
		{services.ErrPrincipalNotFound, http.StatusNotFound},
		{services.ErrInsufficientCredits, http.StatusPaymentRequired},
		{services.ErrTransferTimeout, http.StatusGatewayTimeout},
	}
	body := fmt.Sprintf(`{"from_user_id":%q,"to_user_id":%q,"amount":40}`, uuid.New(), uuid.New())
	for _, tc := range cases {
		h := &TransferHandler{Transfers: &stubTransferer{err: tc.err}, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
		rec := httptest.NewRecorder()
		h.Transfer(rec, newTransferRequest(t, uuid.New(), body, uuid.New()))
		if rec.Code != tc.want {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.want, rec.Code)
		}
	}
}

func TestTransferHandler_BadRequests(t *testing.T) {
	h := &TransferHandler{Transfers: &stubTransferer{}, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	// Malformed org id.
	req := httptest.NewRequest(http.MethodPost, "/v1/orgs/nope/credit-transfers", strings.NewReader(`{}`))
	req.SetPathValue("id", "nope")
	rec := httptest.NewRecorder()
	h.Transfer(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad org id: expected 400, got %d", rec.Code)
	}

	// Malformed party ids.
	rec = httptest.NewRecorder()
	h.Transfer(rec, newTransferRequest(t, uuid.New(), `{"from_user_id":"x","to_user_id":"y","amount":1}`, uuid.New()))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad party ids: expected 400, got %d", rec.Code)
	}

	// Invalid JSON.
	rec = httptest.NewRecorder()
	h.Transfer(rec, newTransferRequest(t, uuid.New(), `not json`, uuid.New()))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON: expected 400, got %d", rec.Code)
	}
}
