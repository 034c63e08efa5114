// Package api serves the console HTTP API.
//
// Public endpoints, optionally rate limited:
//
//	POST /api/auth/signup         create an organization and its admin user
//	POST /api/auth/verify-email   consume an email verification token
//
// Endpoints gated by bearer token authentication:
//
//	GET  /api/users                       paginated users with organizations
//	GET  /api/users/pending               users awaiting approval
//	POST /api/users/{userId}/approve      approve a user
//	POST /api/users/{userId}/reject       reject a user
//
// Errors are returned as {"error": "..."}; domain errors from the accounts
// package carry messages safe to show to clients.
package api
