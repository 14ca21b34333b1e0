package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voip8pbx/ShieldHire-sub000/internal/db/models"
)

func profile(armed bool, state models.VerificationState) *models.StaffProfile {
	return &models.StaffProfile{PrincipalID: "p", IsArmedSpecialist: armed, VerificationState: state}
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name    string
		stored  models.Role
		profile *models.StaffProfile
		want    models.Role
	}{
		{"user without profile", models.RoleUser, nil, models.RoleUser},
		{"user unarmed profile", models.RoleUser, profile(false, models.VerificationPending), models.RoleBouncer},
		{"user armed profile", models.RoleUser, profile(true, models.VerificationApproved), models.RoleGunman},
		{"bouncer becomes armed", models.RoleBouncer, profile(true, models.VerificationApproved), models.RoleGunman},
		{"gunman loses armed flag", models.RoleGunman, profile(false, models.VerificationApproved), models.RoleBouncer},
		{"rejected profile still promotes", models.RoleUser, profile(false, models.VerificationRejected), models.RoleBouncer},
		{"bouncer without profile demoted", models.RoleBouncer, nil, models.RoleUser},
		{"gunman without profile demoted", models.RoleGunman, nil, models.RoleUser},
		{"admin with profile", models.RoleAdmin, profile(true, models.VerificationApproved), models.RoleAdmin},
		{"admin without profile", models.RoleAdmin, nil, models.RoleAdmin},
		{"unknown role untouched", models.Role("AUDITOR"), profile(true, models.VerificationApproved), models.Role("AUDITOR")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reconcile(tt.stored, tt.profile))
		})
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	roles := []models.Role{models.RoleUser, models.RoleBouncer, models.RoleGunman, models.RoleAdmin, "OTHER"}
	profiles := []*models.StaffProfile{
		nil,
		profile(false, models.VerificationPending),
		profile(true, models.VerificationPending),
		profile(false, models.VerificationApproved),
		profile(true, models.VerificationRejected),
	}
	for _, r := range roles {
		for _, p := range profiles {
			once := Reconcile(r, p)
			assert.Equal(t, once, Reconcile(once, p), "role=%s profile=%+v", r, p)
		}
	}
}
