// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Helpers
//
// Every error body is {"error": "<message>"}; message-only bodies are
// {"message": "<message>"}:
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteCreated(w, resource)
//	httputil.WriteMessage(w, http.StatusOK, "User approved successfully")
//	httputil.WriteBadRequest(w, "Invalid JSON")
//	httputil.WriteUnauthorized(w, "Invalid token")
//
// # Request Parsing
//
//	var req SignupRequest
//	if !httputil.ParseJSONOrError(w, r, &req, "Invalid JSON") {
//		return // Error response already written
//	}
//
//	userID, ok := httputil.ParsePathStringOrError(w, r, "userId")
//	page, err := httputil.ParseQueryInt(r, "page", 1)
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware,
//		httputil.MaxBytesMiddleware(1<<20),
//	)
//
// # Related Packages
//
//   - pkg/middleware: Token verification and rate limiting
package httputil
