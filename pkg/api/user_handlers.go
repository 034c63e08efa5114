package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/memcrypt/console/pkg/accounts"
	"github.com/memcrypt/console/pkg/httputil"
	"github.com/memcrypt/console/pkg/observability"
)

// UserHandlers serves the admin user endpoints
type UserHandlers struct {
	service AccountService
}

// NewUserHandlers creates a new UserHandlers
func NewUserHandlers(service AccountService) *UserHandlers {
	return &UserHandlers{service: service}
}

// RegisterRoutes registers the user routes on router. Callers gate the
// router with token authentication.
func (h *UserHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/users", h.ListUsers).Methods(http.MethodGet)
	router.HandleFunc("/api/users", h.notImplemented).Methods(http.MethodPut, http.MethodDelete)
	router.HandleFunc("/api/users/pending", h.ListPendingUsers).Methods(http.MethodGet)
	router.HandleFunc("/api/users/{userId}/approve", h.ApproveUser).Methods(http.MethodPost)
	router.HandleFunc("/api/users/{userId}/reject", h.RejectUser).Methods(http.MethodPost)
}

// ListUsers returns one page of users with their organizations
func (h *UserHandlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := httputil.ParseQueryInt(r, "page", accounts.DefaultPage)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid page parameter")
		return
	}
	pageSize, err := httputil.ParseQueryInt(r, "pageSize", accounts.DefaultPageSize)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid pageSize parameter")
		return
	}

	result, err := h.service.GetUsersWithOrgInfo(r.Context(), accounts.PageQuery{Page: page, PageSize: pageSize})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, result)
}

// ListPendingUsers returns users awaiting approval
func (h *UserHandlers) ListPendingUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.GetPendingUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, users)
}

// ApproveUser enables a pending or rejected user
func (h *UserHandlers) ApproveUser(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.service.ApproveUser, "User approved successfully", "Failed to approve user")
}

// RejectUser disables a user
func (h *UserHandlers) RejectUser(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.service.RejectUser, "User rejected successfully", "Failed to reject user")
}

func (h *UserHandlers) changeStatus(w http.ResponseWriter, r *http.Request, apply func(context.Context, string) error, success, failure string) {
	userID, ok := httputil.ParsePathStringOrError(w, r, "userId")
	if !ok {
		return
	}

	if err := apply(r.Context(), userID); err != nil {
		logger := observability.FromContext(r.Context()).WithError(err).WithField("target_user_id", userID)

		domainErr, isDomain := accounts.AsError(err)
		switch {
		case isDomain && domainErr.Kind == accounts.KindNotFound:
			httputil.WriteNotFoundError(w, domainErr.Message)
		case isDomain && domainErr.Kind == accounts.KindValidation:
			httputil.WriteBadRequest(w, domainErr.Message)
		default:
			logger.Error(failure)
			httputil.WriteInternalError(w, failure)
		}
		return
	}

	httputil.WriteMessage(w, http.StatusOK, success)
}

func (h *UserHandlers) notImplemented(w http.ResponseWriter, r *http.Request) {
	httputil.WriteMessage(w, http.StatusNotImplemented, fmt.Sprintf("%s method not implemented", r.Method))
}

// writeServiceError maps domain errors to 400 and everything else to 500
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if domainErr, ok := accounts.AsError(err); ok {
		observability.FromContext(r.Context()).WithError(err).Warn("Request failed")
		httputil.WriteBadRequest(w, domainErr.Message)
		return
	}
	observability.FromContext(r.Context()).WithError(err).Error("Unexpected error")
	httputil.WriteInternalError(w, msgUnexpected)
}
