package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/memcrypt/console/pkg/contextkeys"
	"github.com/memcrypt/console/pkg/httputil"
	"github.com/memcrypt/console/pkg/observability"
)

// UserIDHeader carries the verified token subject to downstream handlers
const UserIDHeader = httputil.SubjectHeader

// ErrWrongClient is returned for a token issued to another client
var ErrWrongClient = errors.New("token was not issued to the console client")

// TokenAuthConfig configures bearer token verification
type TokenAuthConfig struct {
	// IssuerURL is {keycloak}/realms/{realm}
	IssuerURL string
	// JWKSURL defaults to the realm certs endpoint under IssuerURL
	JWKSURL string
	// ClientID must match the token's azp claim
	ClientID string
}

// JWKSURLFor returns the realm certs endpoint for an issuer
func JWKSURLFor(issuer string) string {
	return strings.TrimRight(issuer, "/") + "/protocol/openid-connect/certs"
}

// TokenAuthMiddleware verifies Keycloak access tokens
type TokenAuthMiddleware struct {
	verifier *oidc.IDTokenVerifier
	clientID string
}

// NewTokenAuthMiddleware verifies tokens against the remote JWKS. Keys are
// fetched lazily and cached by go-oidc.
func NewTokenAuthMiddleware(ctx context.Context, cfg TokenAuthConfig) *TokenAuthMiddleware {
	jwksURL := cfg.JWKSURL
	if jwksURL == "" {
		jwksURL = JWKSURLFor(cfg.IssuerURL)
	}
	return NewTokenAuthMiddlewareWithKeySet(cfg, oidc.NewRemoteKeySet(ctx, jwksURL))
}

// NewTokenAuthMiddlewareWithKeySet verifies tokens against keySet
func NewTokenAuthMiddlewareWithKeySet(cfg TokenAuthConfig, keySet oidc.KeySet) *TokenAuthMiddleware {
	// Access tokens carry the console client in azp, not aud
	verifier := oidc.NewVerifier(cfg.IssuerURL, keySet, &oidc.Config{
		SkipClientIDCheck: true,
	})

	return &TokenAuthMiddleware{
		verifier: verifier,
		clientID: cfg.ClientID,
	}
}

// Verify checks signature, issuer, expiry and azp, returning the subject
func (m *TokenAuthMiddleware) Verify(ctx context.Context, raw string) (string, error) {
	token, err := m.verifier.Verify(ctx, raw)
	if err != nil {
		return "", err
	}

	var claims struct {
		AuthorizedParty string `json:"azp"`
	}
	if err := token.Claims(&claims); err != nil {
		return "", fmt.Errorf("decode claims: %w", err)
	}
	if claims.AuthorizedParty != m.clientID {
		return "", fmt.Errorf("%w: azp %q", ErrWrongClient, claims.AuthorizedParty)
	}

	return token.Subject, nil
}

// Handler wraps an HTTP handler with bearer token authentication
func (m *TokenAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			httputil.WriteUnauthorized(w, "No token provided")
			return
		}

		subject, err := m.Verify(r.Context(), raw)
		if err != nil {
			observability.FromContext(r.Context()).WithError(err).Debug("Token verification failed")
			httputil.WriteUnauthorized(w, "Invalid token")
			return
		}

		r.Header.Set(UserIDHeader, subject)
		ctx := contextkeys.WithSubject(r.Context(), subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken returns the credential after the scheme, as in "Bearer <token>"
func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
