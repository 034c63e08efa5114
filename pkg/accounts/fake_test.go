package accounts

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/memcrypt/console/pkg/email"
	"github.com/memcrypt/console/pkg/keycloak"
)

// fakeAdminAPI is an in-memory identity provider
type fakeAdminAPI struct {
	mu sync.Mutex

	orgs  map[string]keycloak.OrganizationRepresentation
	users map[string]keycloak.UserRepresentation
	order []string

	calls   map[string]int
	queries []keycloak.UserQuery
	updates []keycloak.UserRepresentation

	failOn map[string]error
	total  *int
}

func newFakeAdminAPI() *fakeAdminAPI {
	return &fakeAdminAPI{
		orgs:   map[string]keycloak.OrganizationRepresentation{},
		users:  map[string]keycloak.UserRepresentation{},
		calls:  map[string]int{},
		failOn: map[string]error{},
	}
}

func (f *fakeAdminAPI) record(op string) error {
	f.calls[op]++
	return f.failOn[op]
}

func (f *fakeAdminAPI) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeAdminAPI) addUser(u keycloak.UserRepresentation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
	f.order = append(f.order, u.ID)
}

func (f *fakeAdminAPI) addOrg(id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orgs[id] = keycloak.OrganizationRepresentation{ID: id, Name: name}
}

func (f *fakeAdminAPI) user(id string) keycloak.UserRepresentation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id]
}

func (f *fakeAdminAPI) CreateOrganization(ctx context.Context, org keycloak.OrganizationRepresentation) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateOrganization"); err != nil {
		return "", err
	}
	org.ID = fmt.Sprintf("org-%d", len(f.orgs)+1)
	f.orgs[org.ID] = org
	return org.ID, nil
}

func (f *fakeAdminAPI) GetOrganization(ctx context.Context, id string) (*keycloak.OrganizationRepresentation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetOrganization"); err != nil {
		return nil, err
	}
	org, ok := f.orgs[id]
	if !ok {
		return nil, &keycloak.APIError{Operation: "get_organization", StatusCode: 404}
	}
	return &org, nil
}

func (f *fakeAdminAPI) AddOrganizationMember(ctx context.Context, orgID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("AddOrganizationMember"); err != nil {
		return err
	}
	u, ok := f.users[userID]
	if !ok {
		return &keycloak.APIError{Operation: "add_organization_member", StatusCode: 404}
	}
	if u.Attributes == nil {
		u.Attributes = map[string][]string{}
	}
	u.Attributes[keycloak.AttrOrganization] = []string{orgID}
	f.users[userID] = u
	return nil
}

func (f *fakeAdminAPI) CreateUser(ctx context.Context, user keycloak.UserRepresentation) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateUser"); err != nil {
		return "", err
	}
	user.ID = fmt.Sprintf("user-%d", len(f.users)+1)
	f.users[user.ID] = user
	f.order = append(f.order, user.ID)
	return user.ID, nil
}

func (f *fakeAdminAPI) GetUser(ctx context.Context, id string) (*keycloak.UserRepresentation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetUser"); err != nil {
		return nil, err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, &keycloak.APIError{Operation: "get_user", StatusCode: 404}
	}
	return &u, nil
}

func (f *fakeAdminAPI) UpdateUser(ctx context.Context, id string, user keycloak.UserRepresentation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateUser"); err != nil {
		return err
	}
	if _, ok := f.users[id]; !ok {
		return &keycloak.APIError{Operation: "update_user", StatusCode: 404}
	}
	f.users[id] = user
	f.updates = append(f.updates, user)
	return nil
}

// FindUsers understands the "key:value" q syntax and the enabled filter
func (f *fakeAdminAPI) FindUsers(ctx context.Context, q keycloak.UserQuery) ([]keycloak.UserRepresentation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("FindUsers"); err != nil {
		return nil, err
	}
	f.queries = append(f.queries, q)

	ids := append([]string(nil), f.order...)
	sort.Strings(ids)

	var matched []keycloak.UserRepresentation
	for _, id := range ids {
		u := f.users[id]
		if q.Enabled != nil && u.Enabled != *q.Enabled {
			continue
		}
		if q.Q != "" {
			key, value, _ := strings.Cut(q.Q, ":")
			if u.Attribute(key) != value {
				continue
			}
		}
		matched = append(matched, u)
	}

	if q.First >= len(matched) {
		return []keycloak.UserRepresentation{}, nil
	}
	matched = matched[q.First:]
	if q.Max > 0 && len(matched) > q.Max {
		matched = matched[:q.Max]
	}
	return matched, nil
}

func (f *fakeAdminAPI) CountUsers(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CountUsers"); err != nil {
		return 0, err
	}
	if f.total != nil {
		return *f.total, nil
	}
	return len(f.users), nil
}

// recordingNotifier captures queued mail
type recordingNotifier struct {
	mu       sync.Mutex
	messages []email.Message
	err      error
}

func (n *recordingNotifier) Enqueue(ctx context.Context, msg email.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.messages = append(n.messages, msg)
	return nil
}

func (n *recordingNotifier) sent() []email.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]email.Message(nil), n.messages...)
}
