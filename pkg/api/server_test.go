package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memcrypt/console/pkg/accounts"
	"github.com/memcrypt/console/pkg/observability"
)

// mockAccountService is a mock implementation of AccountService for testing
type mockAccountService struct {
	createFunc  func(input accounts.CreateOrgWithAdminInput) (*accounts.CreateOrgWithAdminResult, error)
	verifyFunc  func(token string) error
	approveFunc func(userID string) error
	rejectFunc  func(userID string) error
	pendingFunc func() ([]accounts.UserWithOrg, error)
	listFunc    func(q accounts.PageQuery) (*accounts.PaginatedResult[accounts.UserWithOrg], error)
}

func (m *mockAccountService) CreateOrganizationAndUser(ctx context.Context, input accounts.CreateOrgWithAdminInput) (*accounts.CreateOrgWithAdminResult, error) {
	if m.createFunc != nil {
		return m.createFunc(input)
	}
	return &accounts.CreateOrgWithAdminResult{}, nil
}

func (m *mockAccountService) VerifyEmail(ctx context.Context, token string) error {
	if m.verifyFunc != nil {
		return m.verifyFunc(token)
	}
	return nil
}

func (m *mockAccountService) ApproveUser(ctx context.Context, userID string) error {
	if m.approveFunc != nil {
		return m.approveFunc(userID)
	}
	return nil
}

func (m *mockAccountService) RejectUser(ctx context.Context, userID string) error {
	if m.rejectFunc != nil {
		return m.rejectFunc(userID)
	}
	return nil
}

func (m *mockAccountService) GetPendingUsers(ctx context.Context) ([]accounts.UserWithOrg, error) {
	if m.pendingFunc != nil {
		return m.pendingFunc()
	}
	return []accounts.UserWithOrg{}, nil
}

func (m *mockAccountService) GetUsersWithOrgInfo(ctx context.Context, q accounts.PageQuery) (*accounts.PaginatedResult[accounts.UserWithOrg], error) {
	if m.listFunc != nil {
		return m.listFunc(q)
	}
	return &accounts.PaginatedResult[accounts.UserWithOrg]{Data: []accounts.UserWithOrg{}, Page: q.Page, PageSize: q.PageSize}, nil
}

// allowAll stands in for token authentication
func allowAll(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Header.Set("X-User-ID", "admin-1")
		next.ServeHTTP(w, r)
	})
}

func newTestServer(svc AccountService) *Server {
	return NewServer(Config{Service: svc, Auth: allowAll})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func domainErr(kind accounts.Kind, msg string) error {
	return &accounts.Error{Kind: kind, Message: msg}
}

func TestServer_GatesUserRoutes(t *testing.T) {
	srv := NewServer(Config{Service: &mockAccountService{}})

	for _, path := range []string{"/api/users", "/api/users/pending"} {
		w := do(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.JSONEq(t, `{"error":"No token provided"}`, w.Body.String())
	}

	w := do(t, srv, http.MethodPost, "/api/users/u1/approve", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Public routes are not gated
	w = do(t, srv, http.MethodPost, "/api/auth/verify-email", `{"token":"abc"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_RateLimitOnlyOnPublicRoutes(t *testing.T) {
	blocked := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	srv := NewServer(Config{Service: &mockAccountService{}, Auth: allowAll, RateLimit: blocked})

	assert.Equal(t, http.StatusTooManyRequests, do(t, srv, http.MethodPost, "/api/auth/signup", `{}`).Code)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/users", "").Code)
}

func TestServer_NotFoundAndMethod(t *testing.T) {
	srv := newTestServer(&mockAccountService{})

	w := do(t, srv, http.MethodGet, "/api/nothing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, w.Body.String())

	w = do(t, srv, http.MethodGet, "/api/auth/signup", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_RequestIDAndMetrics(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	srv := NewServer(Config{Service: &mockAccountService{}, Auth: allowAll, Metrics: metrics})

	w := do(t, srv, http.MethodPost, "/api/users/u-42/approve", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	count := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/api/users/{userId}/approve", "200"))
	assert.Equal(t, 1.0, count)
}

func TestServer_RecoversPanics(t *testing.T) {
	srv := newTestServer(&mockAccountService{
		pendingFunc: func() ([]accounts.UserWithOrg, error) { panic("boom") },
	})

	w := do(t, srv, http.MethodGet, "/api/users/pending", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"An unexpected error occurred"}`, w.Body.String())
}

var errBoom = errors.New("boom")
