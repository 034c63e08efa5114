package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/memcrypt/console/pkg/accounts"
	"github.com/memcrypt/console/pkg/httputil"
	"github.com/memcrypt/console/pkg/observability"
)

// AuthHandlers serves the public signup and verification endpoints
type AuthHandlers struct {
	service AccountService
}

// NewAuthHandlers creates a new AuthHandlers
func NewAuthHandlers(service AccountService) *AuthHandlers {
	return &AuthHandlers{service: service}
}

// RegisterRoutes registers the auth routes on router
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/auth/signup", h.Signup).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/verify-email", h.VerifyEmail).Methods(http.MethodPost)
}

// Signup creates an organization and its pending admin user
func (h *AuthHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	var input accounts.CreateOrgWithAdminInput
	if !httputil.ParseJSONOrError(w, r, &input, msgInvalidJSON) {
		return
	}

	result, err := h.service.CreateOrganizationAndUser(r.Context(), input)
	if err != nil {
		if domainErr, ok := accounts.AsError(err); ok {
			httputil.WriteBadRequest(w, domainErr.Message)
			return
		}
		observability.FromContext(r.Context()).WithError(err).Error("Unexpected signup error")
		httputil.WriteInternalError(w, msgUnexpected)
		return
	}

	httputil.WriteCreated(w, result)
}

// VerifyEmail consumes a verification token
func (h *AuthHandlers) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if !httputil.ParseJSONOrError(w, r, &req, msgInvalidJSON) {
		return
	}

	if err := h.service.VerifyEmail(r.Context(), req.Token); err != nil {
		observability.FromContext(r.Context()).WithError(err).Warn("Email verification failed")
		httputil.WriteInternalError(w, msgVerifyFailed)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "User activated successfully")
}
