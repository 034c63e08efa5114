package keycloak

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/memcrypt/console/pkg/observability"
)

// DefaultAuthTimeout is how long an admin login is reused before logging in again
const DefaultAuthTimeout = 58 * time.Second

// SessionConfig describes how the admin account logs in and which realm it manages
type SessionConfig struct {
	BaseURL  string
	Realm    string
	Username string
	Password string
	ClientID string
	// AppRealm is the realm addressed by admin API calls after login
	AppRealm    string
	AuthTimeout time.Duration
	HTTPTimeout time.Duration
	// Transport overrides the HTTP transport, mainly for tests
	Transport http.RoundTripper
}

func (c SessionConfig) validate() error {
	var missing []string
	for name, value := range map[string]string{
		"KEYCLOAK_URL":             c.BaseURL,
		"KEYCLOAK_REALM":           c.Realm,
		"KEYCLOAK_ADMIN_USERNAME":  c.Username,
		"KEYCLOAK_ADMIN_PASSWORD":  c.Password,
		"KEYCLOAK_ADMIN_CLIENT_ID": c.ClientID,
		"APP_REALM":                c.AppRealm,
	} {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}

// Session is the shared admin login. It logs in with the resource owner
// password grant and reuses the token until AuthTimeout has elapsed since the
// last login. Concurrent refreshes collapse into a single login.
type Session struct {
	cfg        SessionConfig
	httpClient *http.Client
	logger     *observability.Logger
	metrics    *observability.Metrics
	now        func() time.Time

	mu       sync.Mutex
	token    *oauth2.Token
	lastAuth time.Time
	group    singleflight.Group
}

// NewSession creates a session. No network call is made until the first
// AccessToken call.
func NewSession(cfg SessionConfig, logger *observability.Logger, metrics *observability.Metrics) *Session {
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = DefaultAuthTimeout
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		logger = observability.NewLogger(observability.ErrorLevel, io.Discard)
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Session{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.HTTPTimeout,
			Transport: otelhttp.NewTransport(transport),
		},
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// HTTPClient returns the instrumented client used for admin API calls
func (s *Session) HTTPClient() *http.Client {
	return s.httpClient
}

// AdminBaseURL is the admin API root for the managed realm
func (s *Session) AdminBaseURL() string {
	return fmt.Sprintf("%s/admin/realms/%s", s.cfg.BaseURL, s.cfg.AppRealm)
}

func (s *Session) tokenURL() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", s.cfg.BaseURL, s.cfg.Realm)
}

// AccessToken returns a token for the admin API, logging in when no login
// exists or the last one is older than the auth timeout.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	if err := s.cfg.validate(); err != nil {
		return "", err
	}

	if tok := s.cached(); tok != "" {
		return tok, nil
	}

	// The login outlives any single caller's cancellation because other
	// waiters share its result.
	loginCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do("login", func() (interface{}, error) {
		if tok := s.cached(); tok != "" {
			return tok, nil
		}
		return s.login(loginCtx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *Session) cached() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil || s.now().Sub(s.lastAuth) > s.cfg.AuthTimeout {
		return ""
	}
	return s.token.AccessToken
}

func (s *Session) login(ctx context.Context) (string, error) {
	conf := &oauth2.Config{
		ClientID: s.cfg.ClientID,
		Endpoint: oauth2.Endpoint{
			TokenURL:  s.tokenURL(),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	tok, err := conf.PasswordCredentialsToken(ctx, s.cfg.Username, s.cfg.Password)
	if err != nil {
		s.recordLogin("error")
		s.logger.WithError(err).WithField("realm", s.cfg.Realm).Error("Keycloak admin login failed")
		return "", fmt.Errorf("keycloak admin login: %w", err)
	}

	s.mu.Lock()
	s.token = tok
	s.lastAuth = s.now()
	s.mu.Unlock()

	s.recordLogin("success")
	s.logger.WithFields(map[string]interface{}{
		"realm":        s.cfg.AppRealm,
		"auth_timeout": s.cfg.AuthTimeout.String(),
	}).Info("Keycloak admin session initialized")

	return tok.AccessToken, nil
}

// Invalidate drops the cached login so the next call logs in again
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
}

// Ping verifies the admin account can log in; used by readiness probes
func (s *Session) Ping(ctx context.Context) error {
	_, err := s.AccessToken(ctx)
	return err
}

func (s *Session) recordLogin(status string) {
	if s.metrics != nil {
		s.metrics.KeycloakLoginsTotal.WithLabelValues(status).Inc()
	}
}
