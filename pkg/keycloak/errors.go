package keycloak

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMissingConfig is returned when a required setting is empty at call time
	ErrMissingConfig = errors.New("keycloak: missing required configuration")
	// ErrNotFound matches admin API 404 responses via errors.Is
	ErrNotFound = errors.New("keycloak: resource not found")
	// ErrNoLocation is returned when a create call does not report the new id
	ErrNoLocation = errors.New("keycloak: created resource has no id")
)

// APIError is a non-2xx admin API response
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("keycloak %s: HTTP %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("keycloak %s: HTTP %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Is lets callers test errors.Is(err, ErrNotFound)
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}
