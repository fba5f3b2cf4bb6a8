package router

import (
	"net/http"

	"github.com/ollysocial/backend/internal/auth"
	"github.com/ollysocial/backend/internal/handlers"
	"github.com/ollysocial/backend/internal/middleware"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth          *auth.Handler
	Batches       *handlers.BatchHandler
	Redeem        *handlers.RedeemHandler
	Sync          *handlers.SyncHandler
	Transfers     *handlers.TransferHandler
	SubLicenses   *handlers.SubLicenseHandler
	Notifications *handlers.NotificationHandler
}

// New returns the API handler. The sync surface is keyed by license key and
// stays public; everything else sits behind session auth, and batch
// issuance additionally requires an admin session.
func New(h Handlers, sessionAuth func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()

	// Public.
	mux.HandleFunc("POST /v1/auth/register", h.Auth.Register)
	mux.HandleFunc("POST /v1/auth/login", h.Auth.Login)
	mux.HandleFunc("POST /v1/sync", h.Sync.Sync)
	mux.HandleFunc("PUT /v1/settings", h.Sync.UpdateSettings)

	// Session-authenticated.
	authed := func(fn http.HandlerFunc) http.Handler { return sessionAuth(fn) }
	mux.Handle("POST /v1/redeem", authed(h.Redeem.Redeem))
	mux.Handle("PUT /v1/auto-engage-config", authed(h.Sync.UpdateAutoEngageConfig))
	mux.Handle("GET /v1/credits", authed(h.Transfers.GetCredits))
	mux.Handle("POST /v1/orgs/{id}/credit-transfers", authed(h.Transfers.Transfer))
	mux.Handle("GET /v1/licenses/{id}/sub-licenses", authed(h.SubLicenses.List))
	mux.Handle("POST /v1/sub-licenses/{id}/assign", authed(h.SubLicenses.Assign))
	mux.Handle("POST /v1/sub-licenses/{id}/unassign", authed(h.SubLicenses.Unassign))
	mux.Handle("POST /v1/sub-licenses/{id}/regenerate", authed(h.SubLicenses.Regenerate))
	mux.Handle("GET /v1/notifications", authed(h.Notifications.List))

	// Admin.
	admin := func(fn http.HandlerFunc) http.Handler { return sessionAuth(middleware.RequireAdmin(fn)) }
	mux.Handle("POST /v1/redeem-batches", admin(h.Batches.CreateBatch))
	mux.Handle("GET /v1/redeem-batches", admin(h.Batches.ListBatches))
	mux.Handle("GET /v1/redeem-batches/{id}", admin(h.Batches.GetBatch))

	return mux
}
