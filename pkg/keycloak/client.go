package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/memcrypt/console/pkg/observability"
)

const maxErrorBody = 2048

// AdminClient calls the Keycloak admin REST API of the managed realm using
// the shared Session for authentication. Calls are never retried.
type AdminClient struct {
	session *Session
	metrics *observability.Metrics
	tracer  trace.Tracer
}

// NewAdminClient creates an admin API client on top of a session
func NewAdminClient(session *Session, metrics *observability.Metrics) *AdminClient {
	return &AdminClient{
		session: session,
		metrics: metrics,
		tracer:  otel.Tracer("github.com/memcrypt/console/pkg/keycloak"),
	}
}

// Ping verifies the admin session can authenticate
func (c *AdminClient) Ping(ctx context.Context) error {
	return c.session.Ping(ctx)
}

// CreateOrganization creates an organization and returns its id
func (c *AdminClient) CreateOrganization(ctx context.Context, org OrganizationRepresentation) (string, error) {
	resp, err := c.do(ctx, "create_organization", http.MethodPost, "/organizations", nil, org, nil)
	if err != nil {
		return "", err
	}
	return idFromLocation(resp)
}

// GetOrganization fetches an organization by id
func (c *AdminClient) GetOrganization(ctx context.Context, id string) (*OrganizationRepresentation, error) {
	var org OrganizationRepresentation
	if _, err := c.do(ctx, "get_organization", http.MethodGet, "/organizations/"+url.PathEscape(id), nil, nil, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

// AddOrganizationMember links an existing user to an organization
func (c *AdminClient) AddOrganizationMember(ctx context.Context, orgID, userID string) error {
	// The endpoint takes the bare user id as a JSON string body.
	_, err := c.do(ctx, "add_organization_member", http.MethodPost,
		"/organizations/"+url.PathEscape(orgID)+"/members", nil, userID, nil)
	return err
}

// CreateUser creates a user and returns its id
func (c *AdminClient) CreateUser(ctx context.Context, user UserRepresentation) (string, error) {
	resp, err := c.do(ctx, "create_user", http.MethodPost, "/users", nil, user, nil)
	if err != nil {
		return "", err
	}
	return idFromLocation(resp)
}

// GetUser fetches a user by id
func (c *AdminClient) GetUser(ctx context.Context, id string) (*UserRepresentation, error) {
	var user UserRepresentation
	if _, err := c.do(ctx, "get_user", http.MethodGet, "/users/"+url.PathEscape(id), nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser replaces the representation of a user
func (c *AdminClient) UpdateUser(ctx context.Context, id string, user UserRepresentation) error {
	_, err := c.do(ctx, "update_user", http.MethodPut, "/users/"+url.PathEscape(id), nil, user, nil)
	return err
}

// FindUsers searches users of the managed realm
func (c *AdminClient) FindUsers(ctx context.Context, q UserQuery) ([]UserRepresentation, error) {
	var users []UserRepresentation
	if _, err := c.do(ctx, "find_users", http.MethodGet, "/users", q.values(), nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CountUsers returns the number of users in the managed realm
func (c *AdminClient) CountUsers(ctx context.Context) (int, error) {
	var count int
	if _, err := c.do(ctx, "count_users", http.MethodGet, "/users/count", nil, nil, &count); err != nil {
		return 0, err
	}
	return count, nil
}

func (c *AdminClient) do(ctx context.Context, op, method, p string, query url.Values, body, out interface{}) (*http.Response, error) {
	ctx, span := c.tracer.Start(ctx, "keycloak."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("keycloak.operation", op)),
	)
	defer span.End()

	start := time.Now()
	resp, err := c.roundTrip(ctx, op, method, p, query, body, out)

	status := "error"
	if resp != nil {
		status = strconv.Itoa(resp.StatusCode)
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if c.metrics != nil {
		c.metrics.KeycloakRequestsTotal.WithLabelValues(op, status).Inc()
		c.metrics.KeycloakRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
	return resp, err
}

func (c *AdminClient) roundTrip(ctx context.Context, op, method, p string, query url.Values, body, out interface{}) (*http.Response, error) {
	token, err := c.session.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	target := c.session.AdminBaseURL() + p
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("keycloak %s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("keycloak %s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.session.HTTPClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("keycloak %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// The admin token was revoked or expired early; log in again next time.
		c.session.Invalidate()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp, &APIError{
			Operation:  op,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("keycloak %s: decode response: %w", op, err)
		}
	}
	return resp, nil
}

// idFromLocation extracts the created resource id from the Location header
func idFromLocation(resp *http.Response) (string, error) {
	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", ErrNoLocation
	}
	u, err := url.Parse(loc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoLocation, err)
	}
	id := path.Base(u.Path)
	if id == "" || id == "/" || id == "." {
		return "", ErrNoLocation
	}
	return id, nil
}
