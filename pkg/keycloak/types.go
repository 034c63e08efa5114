package keycloak

import (
	"net/url"
	"strconv"
)

// Attribute keys the console reads from user representations
const (
	// AttrOrganization is maintained by Keycloak for organization members
	AttrOrganization = "kc.org"
)

// UserRepresentation mirrors the admin API user resource. Attributes and
// boolean flags are serialized even when empty because an update replaces
// them wholesale.
type UserRepresentation struct {
	ID               string                     `json:"id,omitempty"`
	Username         string                     `json:"username,omitempty"`
	Email            string                     `json:"email,omitempty"`
	FirstName        string                     `json:"firstName,omitempty"`
	LastName         string                     `json:"lastName,omitempty"`
	Enabled          bool                       `json:"enabled"`
	EmailVerified    bool                       `json:"emailVerified"`
	Attributes       map[string][]string        `json:"attributes"`
	Credentials      []CredentialRepresentation `json:"credentials,omitempty"`
	RequiredActions  []string                   `json:"requiredActions,omitempty"`
	CreatedTimestamp int64                      `json:"createdTimestamp,omitempty"`
}

// Attribute returns the first value of a user attribute
func (u UserRepresentation) Attribute(key string) string {
	if values := u.Attributes[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// CredentialRepresentation is a credential attached on user creation
type CredentialRepresentation struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

// OrganizationRepresentation mirrors the admin API organization resource
type OrganizationRepresentation struct {
	ID          string               `json:"id,omitempty"`
	Name        string               `json:"name"`
	Alias       string               `json:"alias,omitempty"`
	Enabled     bool                 `json:"enabled"`
	Description string               `json:"description,omitempty"`
	Domains     []OrganizationDomain `json:"domains,omitempty"`
	Attributes  map[string][]string  `json:"attributes,omitempty"`
}

// OrganizationDomain is a domain owned by an organization
type OrganizationDomain struct {
	Name     string `json:"name"`
	Verified bool   `json:"verified"`
}

// UserQuery holds the search parameters of GET /users. Zero values are omitted.
type UserQuery struct {
	First   int
	Max     int
	Enabled *bool
	Exact   bool
	// Q is the attribute search expression, "key:value"
	Q        string
	Search   string
	Username string
	Email    string
}

func (q UserQuery) values() url.Values {
	v := url.Values{}
	if q.First > 0 {
		v.Set("first", strconv.Itoa(q.First))
	}
	if q.Max > 0 {
		v.Set("max", strconv.Itoa(q.Max))
	}
	if q.Enabled != nil {
		v.Set("enabled", strconv.FormatBool(*q.Enabled))
	}
	if q.Exact {
		v.Set("exact", "true")
	}
	if q.Q != "" {
		v.Set("q", q.Q)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Username != "" {
		v.Set("username", q.Username)
	}
	if q.Email != "" {
		v.Set("email", q.Email)
	}
	return v
}

// Bool returns a pointer to b, for optional query fields
func Bool(b bool) *bool {
	return &b
}
