package accounts

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/memcrypt/console/pkg/contextkeys"
	"github.com/memcrypt/console/pkg/email"
	"github.com/memcrypt/console/pkg/keycloak"
	"github.com/memcrypt/console/pkg/observability"
)

const (
	minPasswordLength = 8
	pendingQueryMax   = 1000
	defaultOrgLookups = 8
	// the admin API reads first as a 32-bit int
	maxUserOffset = math.MaxInt32
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AdminAPI is the subset of the Keycloak admin API the service uses
type AdminAPI interface {
	CreateOrganization(ctx context.Context, org keycloak.OrganizationRepresentation) (string, error)
	GetOrganization(ctx context.Context, id string) (*keycloak.OrganizationRepresentation, error)
	AddOrganizationMember(ctx context.Context, orgID, userID string) error
	CreateUser(ctx context.Context, user keycloak.UserRepresentation) (string, error)
	GetUser(ctx context.Context, id string) (*keycloak.UserRepresentation, error)
	UpdateUser(ctx context.Context, id string, user keycloak.UserRepresentation) error
	FindUsers(ctx context.Context, q keycloak.UserQuery) ([]keycloak.UserRepresentation, error)
	CountUsers(ctx context.Context) (int, error)
}

// Notifier accepts outbound mail for background delivery
type Notifier interface {
	Enqueue(ctx context.Context, msg email.Message) error
}

// Config holds the service settings that are not collaborators
type Config struct {
	// AppURL is the public console URL used in verification links
	AppURL string
	// AdminEmail receives new-signup notifications
	AdminEmail string
	// OrgLookupConcurrency bounds parallel organization fetches in listings
	OrgLookupConcurrency int
}

// Service runs the account lifecycle against the identity provider:
// signup, email verification, approval and listing.
type Service struct {
	api      AdminAPI
	notifier Notifier
	cfg      Config
	log      *observability.Logger
	metrics  *observability.Metrics
}

// NewService creates an account service
func NewService(api AdminAPI, notifier Notifier, cfg Config, logger *observability.Logger, metrics *observability.Metrics) *Service {
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")
	if cfg.OrgLookupConcurrency <= 0 {
		cfg.OrgLookupConcurrency = defaultOrgLookups
	}
	if logger == nil {
		logger = observability.NewLogger(observability.ErrorLevel, io.Discard)
	}
	return &Service{
		api:      api,
		notifier: notifier,
		cfg:      cfg,
		log:      logger,
		metrics:  metrics,
	}
}

// CreateOrganizationAndUser provisions a new organization with a disabled,
// pending admin user and queues the admin notice and verification emails.
// The steps are not transactional: a failure after the organization is
// created leaves it behind.
func (s *Service) CreateOrganizationAndUser(ctx context.Context, input CreateOrgWithAdminInput) (*CreateOrgWithAdminResult, error) {
	logger := s.logger(ctx).WithField("org_name", input.OrgName)

	if err := validateSignup(input); err != nil {
		s.countSignup("invalid")
		return nil, err
	}

	token, err := generateToken()
	if err != nil {
		s.countSignup("error")
		return nil, fmt.Errorf("generate verification token: %w", err)
	}

	orgID, err := s.api.CreateOrganization(ctx, keycloak.OrganizationRepresentation{
		Name:    input.OrgName,
		Enabled: true,
		Domains: []keycloak.OrganizationDomain{{
			Name:     orgDomain(input.OrgName),
			Verified: true,
		}},
	})
	if err != nil {
		s.countSignup("error")
		logger.WithError(err).Error("Error creating organization")
		return nil, newError(KindUpstream, "Failed to create organization", err)
	}
	logger = logger.WithField("org_id", orgID)

	admin := input.AdminUser
	userID, err := s.api.CreateUser(ctx, keycloak.UserRepresentation{
		Username:  admin.Username,
		Email:     admin.Email,
		FirstName: admin.FirstName,
		LastName:  admin.LastName,
		Enabled:   false,
		Attributes: map[string][]string{
			AttrStatus:            {string(StatusPending)},
			AttrVerificationToken: {token},
		},
		Credentials: []keycloak.CredentialRepresentation{{
			Type:      "password",
			Value:     admin.Password,
			Temporary: false,
		}},
	})
	if err != nil {
		s.countSignup("error")
		logger.WithError(err).Error("Error creating user; organization left without members")
		return nil, newError(KindUpstream, "Failed to create user", err)
	}
	logger = logger.WithField("new_user_id", userID)

	if err := s.api.AddOrganizationMember(ctx, orgID, userID); err != nil {
		s.countSignup("error")
		logger.WithError(err).Error("Error assigning user to organization")
		return nil, newError(KindUpstream, "Failed to assign user to organization", err)
	}

	result := &CreateOrgWithAdminResult{
		Tenant: Tenant{ID: orgID, Name: input.OrgName},
		AdminUser: User{
			ID:        userID,
			Username:  admin.Username,
			Email:     admin.Email,
			FirstName: admin.FirstName,
			LastName:  admin.LastName,
			Enabled:   false,
			Attributes: map[string][]string{
				AttrStatus: {string(StatusPending)},
			},
		},
	}

	s.countSignup("success")
	logger.Info("Organization and admin user created")

	s.notify(ctx, email.Message{
		To:       s.cfg.AdminEmail,
		Subject:  fmt.Sprintf("New User Registration for %s", input.OrgName),
		Template: email.TemplateAdminNotification,
		Data: map[string]string{
			"orgName":   input.OrgName,
			"username":  admin.Username,
			"email":     admin.Email,
			"firstName": admin.FirstName,
			"lastName":  admin.LastName,
		},
	})
	s.notify(ctx, email.Message{
		To:       admin.Email,
		Subject:  fmt.Sprintf("Verify Your Email for %s", input.OrgName),
		Template: email.TemplateUserVerification,
		Data: map[string]string{
			"orgName":          input.OrgName,
			"firstName":        admin.FirstName,
			"verificationLink": s.verificationLink(token),
		},
	})

	return result, nil
}

// ApproveUser enables a user and marks them approved
func (s *Service) ApproveUser(ctx context.Context, userID string) error {
	return s.updateUserStatus(ctx, userID, StatusApproved)
}

// RejectUser disables a user and marks them rejected
func (s *Service) RejectUser(ctx context.Context, userID string) error {
	return s.updateUserStatus(ctx, userID, StatusRejected)
}

func (s *Service) updateUserStatus(ctx context.Context, userID string, next Status) error {
	logger := s.logger(ctx).WithFields(map[string]interface{}{
		"target_user_id": userID,
		"status":         next.String(),
	})
	failure := fmt.Sprintf("Failed to update user status to %s", next)

	if strings.TrimSpace(userID) == "" {
		return validationError("User ID is required")
	}

	user, err := s.api.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, keycloak.ErrNotFound) {
			return newError(KindNotFound, "User not found", err)
		}
		logger.WithError(err).Error("Error fetching user for status update")
		return newError(KindUpstream, failure, err)
	}

	current := StatusPending
	if raw := user.Attribute(AttrStatus); raw != "" {
		if current, err = ParseStatus(raw); err != nil {
			logger.WithError(err).Warn("User has an unrecognized status")
			return newError(KindValidation, failure, err)
		}
	}
	if !current.CanTransition(next) {
		return newError(KindValidation, fmt.Sprintf("Cannot change user status from %s to %s", current, next), nil)
	}

	updated := *user
	updated.Enabled = next.Enabled()
	updated.Attributes = cloneAttributes(user.Attributes)
	updated.Attributes[AttrStatus] = []string{string(next)}

	if err := s.api.UpdateUser(ctx, userID, updated); err != nil {
		logger.WithError(err).Error("Error updating user status")
		return newError(KindUpstream, failure, err)
	}

	if s.metrics != nil {
		s.metrics.StatusTransitionsTotal.WithLabelValues(string(current), string(next)).Inc()
	}
	logger.WithField("previous_status", current.String()).Info("User status updated")

	if user.Email != "" {
		s.notify(ctx, statusEmail(user, next))
	}
	return nil
}

// VerifyEmail marks the user holding token as verified and consumes the token
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	logger := s.logger(ctx)

	token = strings.TrimSpace(token)
	if token == "" {
		s.countVerification("invalid")
		return validationError("Verification token is required")
	}

	users, err := s.api.FindUsers(ctx, keycloak.UserQuery{
		Max:   1,
		Exact: true,
		Q:     AttrVerificationToken + ":" + token,
	})
	if err != nil {
		s.countVerification("error")
		logger.WithError(err).Error("Error looking up verification token")
		return newError(KindUpstream, "Failed to verify email", err)
	}
	if len(users) == 0 {
		s.countVerification("invalid")
		return newError(KindNotFound, "Invalid or expired verification token", nil)
	}

	user := users[0]
	updated := user
	updated.EmailVerified = true
	updated.Attributes = cloneAttributes(user.Attributes)
	delete(updated.Attributes, AttrVerificationToken)

	if err := s.api.UpdateUser(ctx, user.ID, updated); err != nil {
		s.countVerification("error")
		logger.WithError(err).WithField("target_user_id", user.ID).Error("Error verifying email")
		return newError(KindUpstream, "Failed to verify email", err)
	}

	s.countVerification("success")
	logger.WithField("target_user_id", user.ID).Info("User email verified")
	return nil
}

// GetPendingUsers lists disabled users awaiting approval
func (s *Service) GetPendingUsers(ctx context.Context) ([]UserWithOrg, error) {
	logger := s.logger(ctx)

	users, err := s.api.FindUsers(ctx, keycloak.UserQuery{
		Max:     pendingQueryMax,
		Enabled: keycloak.Bool(false),
		Exact:   true,
		Q:       AttrStatus + ":" + string(StatusPending),
	})
	if err != nil {
		logger.WithError(err).Error("Error fetching pending users")
		return nil, newError(KindUpstream, "Failed to fetch pending users", err)
	}

	pending := users[:0]
	for _, u := range users {
		if u.Attribute(AttrStatus) == string(StatusPending) && !u.Enabled {
			pending = append(pending, u)
		}
	}

	result, err := s.withOrganizations(ctx, pending)
	if err != nil {
		logger.WithError(err).Error("Error fetching organizations for pending users")
		return nil, newError(KindUpstream, "Failed to fetch pending users", err)
	}
	return result, nil
}

// GetUsersWithOrgInfo returns one page of all users with their organizations
func (s *Service) GetUsersWithOrgInfo(ctx context.Context, q PageQuery) (*PaginatedResult[UserWithOrg], error) {
	logger := s.logger(ctx)

	if q.Page < 1 {
		return nil, validationError("Page must be at least 1")
	}
	if q.PageSize < 1 {
		return nil, validationError("Page size must be at least 1")
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	if q.Page-1 > maxUserOffset/q.PageSize {
		return nil, validationError("Page is out of range")
	}

	failure := "Failed to fetch users with organization info"

	users, err := s.api.FindUsers(ctx, keycloak.UserQuery{
		First: (q.Page - 1) * q.PageSize,
		Max:   q.PageSize,
	})
	if err != nil {
		logger.WithError(err).Error("Error fetching users")
		return nil, newError(KindUpstream, failure, err)
	}

	data, err := s.withOrganizations(ctx, users)
	if err != nil {
		logger.WithError(err).Error("Error fetching organizations for users")
		return nil, newError(KindUpstream, failure, err)
	}

	total, err := s.api.CountUsers(ctx)
	if err != nil {
		logger.WithError(err).Error("Error counting users")
		return nil, newError(KindUpstream, failure, err)
	}

	return &PaginatedResult[UserWithOrg]{
		Data:       data,
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: totalPages(total, q.PageSize),
	}, nil
}

func totalPages(total, pageSize int) int {
	pages := total / pageSize
	if total%pageSize != 0 {
		pages++
	}
	return pages
}

func (s *Service) withOrganizations(ctx context.Context, users []keycloak.UserRepresentation) ([]UserWithOrg, error) {
	ids := make([]string, 0, len(users))
	seen := make(map[string]struct{}, len(users))
	for _, u := range users {
		id := u.Attribute(keycloak.AttrOrganization)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	orgs, err := s.getOrganizationsInfo(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]UserWithOrg, 0, len(users))
	for _, u := range users {
		entry := UserWithOrg{User: toUser(u)}
		if org, ok := orgs[u.Attribute(keycloak.AttrOrganization)]; ok {
			tenant := org
			entry.Organization = &tenant
		}
		result = append(result, entry)
	}
	return result, nil
}

// getOrganizationsInfo fetches each organization once; ids must be unique
func (s *Service) getOrganizationsInfo(ctx context.Context, ids []string) (map[string]Tenant, error) {
	orgs := make(map[string]Tenant, len(ids))
	if len(ids) == 0 {
		return orgs, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.OrgLookupConcurrency)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			org, err := s.api.GetOrganization(gctx, id)
			if err != nil {
				return fmt.Errorf("fetch organization %s: %w", id, err)
			}
			mu.Lock()
			orgs[id] = Tenant{ID: org.ID, Name: org.Name}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return orgs, nil
}

func (s *Service) notify(ctx context.Context, msg email.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Enqueue(ctx, msg); err != nil {
		s.logger(ctx).WithError(err).WithField("template", msg.Template).Warn("Failed to queue notification email")
	}
}

func (s *Service) verificationLink(token string) string {
	return fmt.Sprintf("%s/verify-email?token=%s", s.cfg.AppURL, url.QueryEscape(token))
}

// logger returns the request logger when one is attached, else the service logger
func (s *Service) logger(ctx context.Context) *observability.Logger {
	if _, ok := ctx.Value(contextkeys.LoggerKey).(*observability.Logger); !ok {
		ctx = observability.WithLogger(ctx, s.log)
	}
	return observability.FromContext(ctx).WithField("component", "accounts")
}

func (s *Service) countSignup(status string) {
	if s.metrics != nil {
		s.metrics.SignupsTotal.WithLabelValues(status).Inc()
	}
}

func (s *Service) countVerification(status string) {
	if s.metrics != nil {
		s.metrics.EmailVerificationTotal.WithLabelValues(status).Inc()
	}
}

func validateSignup(input CreateOrgWithAdminInput) error {
	if strings.TrimSpace(input.OrgName) == "" {
		return validationError("Organization name is required")
	}
	if strings.TrimSpace(input.AdminUser.Username) == "" {
		return validationError("Username is required")
	}
	if !emailPattern.MatchString(input.AdminUser.Email) {
		return validationError("Valid email is required")
	}
	if len(input.AdminUser.Password) < minPasswordLength {
		return validationError("Password must be at least 8 characters long")
	}
	return nil
}

// orgDomain derives the pre-verified domain of a new organization:
// the lowercased name with all whitespace removed, plus ".com"
func orgDomain(orgName string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(orgName) {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String() + ".com"
}

// generateToken returns 32 random bytes, hex encoded
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func statusEmail(user *keycloak.UserRepresentation, status Status) email.Message {
	msg := email.Message{
		To: user.Email,
		Data: map[string]string{
			"username":  user.Username,
			"email":     user.Email,
			"firstName": user.FirstName,
			"lastName":  user.LastName,
		},
	}
	if status == StatusApproved {
		msg.Template = email.TemplateUserApproved
		msg.Subject = "Your account has been approved"
	} else {
		msg.Template = email.TemplateUserRejected
		msg.Subject = "Your account application status"
	}
	return msg
}

func toUser(u keycloak.UserRepresentation) User {
	attrs := cloneAttributes(u.Attributes)
	delete(attrs, AttrVerificationToken)
	return User{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Enabled:       u.Enabled,
		EmailVerified: u.EmailVerified,
		Attributes:    attrs,
	}
}

func cloneAttributes(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in)+1)
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}
