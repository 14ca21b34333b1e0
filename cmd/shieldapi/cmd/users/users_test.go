package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voip8pbx/ShieldHire-sub000/internal/db/models"
)

func TestParseAssignableRole(t *testing.T) {
	role, err := parseAssignableRole("admin")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)

	role, err = parseAssignableRole("USER")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, role)

	for _, staff := range []string{"BOUNCER", "GUNMAN"} {
		_, err := parseAssignableRole(staff)
		require.Error(t, err, staff)
		assert.Contains(t, err.Error(), "profiles set")
	}

	_, err = parseAssignableRole("AUDITOR")
	assert.ErrorContains(t, err, "invalid role")
}
