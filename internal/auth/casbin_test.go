package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voip8pbx/ShieldHire-sub000/internal/db/models"
)

func TestAuthorize_RoleMatrix(t *testing.T) {
	enforcer, err := InitEnforcer()
	require.NoError(t, err)

	tests := []struct {
		role    models.Role
		obj     string
		action  string
		allowed bool
	}{
		{models.RoleUser, ObjectTypeAlert, AlertCreate, true},
		{models.RoleUser, ObjectTypeAlert, AlertRead, true},
		{models.RoleUser, ObjectTypeAlert, AlertAcknowledge, false},
		{models.RoleUser, ObjectTypeSession, SessionReadSelf, true},
		{models.RoleUser, ObjectTypeProfile, ProfileWrite, false},
		{models.RoleBouncer, ObjectTypeAlert, AlertCreate, true},
		{models.RoleBouncer, ObjectTypeAlert, AlertAcknowledge, false},
		{models.RoleGunman, ObjectTypeAlert, AlertRead, true},
		{models.RoleGunman, ObjectTypeSession, SessionReadSelf, true},
		{models.RoleAdmin, ObjectTypeAlert, AlertAcknowledge, true},
		{models.RoleAdmin, ObjectTypeProfile, ProfileWrite, true},
		{models.RoleAdmin, ObjectTypeSession, SessionReadSelf, true},
		{models.Role("UNKNOWN"), ObjectTypeAlert, AlertRead, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+tt.action, func(t *testing.T) {
			allowed, err := Authorize(enforcer, tt.role, tt.obj, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, allowed)
		})
	}
}

func TestPassword_HashAndCheck(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery", hash)

	assert.NoError(t, CheckPassword(hash, "correct horse battery"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong password"), ErrPasswordMismatch)
}

func TestPassword_TooShort(t *testing.T) {
	_, err := HashPassword("short")
	assert.Error(t, err)
}
