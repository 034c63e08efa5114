package api

import (
	"context"

	"github.com/memcrypt/console/pkg/accounts"
)

// AccountService is the account workflow the handlers drive
type AccountService interface {
	CreateOrganizationAndUser(ctx context.Context, input accounts.CreateOrgWithAdminInput) (*accounts.CreateOrgWithAdminResult, error)
	VerifyEmail(ctx context.Context, token string) error
	ApproveUser(ctx context.Context, userID string) error
	RejectUser(ctx context.Context, userID string) error
	GetPendingUsers(ctx context.Context) ([]accounts.UserWithOrg, error)
	GetUsersWithOrgInfo(ctx context.Context, q accounts.PageQuery) (*accounts.PaginatedResult[accounts.UserWithOrg], error)
}

// VerifyEmailRequest is the body of POST /api/auth/verify-email
type VerifyEmailRequest struct {
	Token string `json:"token"`
}

const (
	msgInvalidJSON  = "Invalid JSON"
	msgUnexpected   = "An unexpected error occurred"
	msgVerifyFailed = "Failed to verify email"
)
