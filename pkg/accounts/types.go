package accounts

// Tenant is an organization in the identity provider
type Tenant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// User is the console projection of an identity provider user
type User struct {
	ID            string              `json:"id"`
	Username      string              `json:"username"`
	Email         string              `json:"email"`
	FirstName     string              `json:"firstName,omitempty"`
	LastName      string              `json:"lastName,omitempty"`
	Enabled       bool                `json:"enabled"`
	EmailVerified bool                `json:"emailVerified"`
	Attributes    map[string][]string `json:"attributes"`
}

// Status returns the lifecycle status stored on the user, pending when unset
func (u User) Status() Status {
	if values := u.Attributes[AttrStatus]; len(values) > 0 {
		return Status(values[0])
	}
	return StatusPending
}

// UserWithOrg is a user plus the organization it belongs to, if any
type UserWithOrg struct {
	User
	Organization *Tenant `json:"organization"`
}

// AdminUserInput is the first user of a new organization
type AdminUserInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password"`
}

// CreateOrgWithAdminInput is the signup request
type CreateOrgWithAdminInput struct {
	OrgName   string         `json:"orgName"`
	AdminUser AdminUserInput `json:"adminUser"`
}

// CreateOrgWithAdminResult is the signup response
type CreateOrgWithAdminResult struct {
	Tenant    Tenant `json:"tenant"`
	AdminUser User   `json:"adminUser"`
}

// PaginatedResult is one page of a listing
type PaginatedResult[T any] struct {
	Data       []T `json:"data"`
	TotalCount int `json:"totalCount"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

// PageQuery selects a page of users; Page is 1-based
type PageQuery struct {
	Page     int
	PageSize int
}

// Default page parameters for user listings
const (
	DefaultPage     = 1
	DefaultPageSize = 1000
	// MaxPageSize caps PageQuery.PageSize; larger values are clamped
	MaxPageSize = DefaultPageSize
)
