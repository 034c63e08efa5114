// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the console must be defined here.
// This prevents typos and makes key usage discoverable.
//
// USAGE PATTERN:
//
//	import "github.com/memcrypt/console/pkg/contextkeys"
//	ctx = contextkeys.WithSubject(ctx, claims.Subject)
//	subject := contextkeys.GetSubject(ctx)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// RequestIDKey contains request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: Logger, error responses
	// Type: string
	RequestIDKey Key = "request_id"

	// SubjectKey contains the verified token subject (Keycloak user id)
	// Set by: middleware.TokenAuthMiddleware after bearer verification
	// Used by: Logger, admin handlers recording who acted
	// Type: string
	SubjectKey Key = "subject"

	// LoggerKey contains *observability.Logger
	// Set by: httputil.LoggingMiddleware
	// Used by: Handlers and services that need request-scoped logging
	// Type: *observability.Logger
	LoggerKey Key = "logger"
)

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithSubject adds the verified subject to the context
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, SubjectKey, subject)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetSubject retrieves the verified subject from context
func GetSubject(ctx context.Context) string {
	if subject, ok := ctx.Value(SubjectKey).(string); ok {
		return subject
	}
	return ""
}
