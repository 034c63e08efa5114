// Package keycloak is a small client for the Keycloak admin REST API.
//
// A Session holds the admin login (password grant against the admin realm)
// and re-authenticates once the login is older than the configured auth
// timeout. AdminClient issues organization and user calls against the
// managed application realm:
//
//	session := keycloak.NewSession(keycloak.SessionConfig{
//		BaseURL:  "http://keycloak:8080",
//		Realm:    "master",
//		Username: "admin",
//		Password: password,
//		ClientID: "admin-cli",
//		AppRealm: "memcrypt",
//	}, logger, metrics)
//	client := keycloak.NewAdminClient(session, metrics)
//	orgID, err := client.CreateOrganization(ctx, keycloak.OrganizationRepresentation{Name: "Acme"})
//
// Non-2xx responses are returned as *APIError; errors.Is(err, ErrNotFound)
// reports a 404.
package keycloak
