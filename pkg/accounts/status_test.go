package accounts

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memcrypt/console/pkg/keycloak"
)

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"pending", "approved", "rejected"} {
		status, err := ParseStatus(s)
		require.NoError(t, err)
		assert.Equal(t, s, status.String())
	}

	_, err := ParseStatus("Approved")
	assert.Error(t, err)
	_, err = ParseStatus("")
	assert.Error(t, err)
}

func TestStatusEnabled(t *testing.T) {
	assert.True(t, StatusApproved.Enabled())
	assert.False(t, StatusPending.Enabled())
	assert.False(t, StatusRejected.Enabled())
}

func TestStatusCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusRejected, StatusApproved, true},
		{StatusApproved, StatusRejected, true},
		{StatusApproved, StatusApproved, true},
		{StatusApproved, StatusPending, false},
		{StatusRejected, StatusPending, false},
		{StatusPending, StatusPending, false},
		{Status("archived"), StatusApproved, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s to %s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestUserStatus(t *testing.T) {
	assert.Equal(t, StatusPending, User{}.Status())
	assert.Equal(t, StatusApproved, User{Attributes: map[string][]string{AttrStatus: {"approved"}}}.Status())
}

func TestErrorHelpers(t *testing.T) {
	cause := &keycloak.APIError{Operation: "get_user", StatusCode: 404}
	err := fmt.Errorf("approve: %w", newError(KindNotFound, "User not found", cause))

	assert.True(t, IsDomainError(err))
	assert.True(t, IsNotFound(err))
	assert.True(t, errors.Is(err, keycloak.ErrNotFound))
	assert.Contains(t, err.Error(), "User not found")

	plain := errors.New("boom")
	assert.False(t, IsDomainError(plain))
	assert.False(t, IsNotFound(plain))

	v := validationError("Username is required")
	assert.Equal(t, "Username is required", v.Error())
	assert.False(t, IsNotFound(v))
	assert.Nil(t, v.Unwrap())
}
