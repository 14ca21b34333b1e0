package identity

import "github.com/voip8pbx/ShieldHire-sub000/internal/db/models"

// Reconcile derives the effective role from the stored role and the staff
// profile, if any. It is pure and idempotent:
// Reconcile(Reconcile(r, p), p) == Reconcile(r, p).
//
// ADMIN is never changed. Without a profile a staff role falls back to USER
// and any other role stands. With a profile, the role tracks the
// armed-specialist flag in both directions, whatever the profile's
// verification state.
func Reconcile(stored models.Role, profile *models.StaffProfile) models.Role {
	if stored == models.RoleAdmin {
		return stored
	}
	if profile == nil {
		if stored.IsStaff() {
			return models.RoleUser
		}
		return stored
	}

	switch stored {
	case models.RoleUser, models.RoleBouncer, models.RoleGunman:
		if profile.IsArmedSpecialist {
			return models.RoleGunman
		}
		return models.RoleBouncer
	default:
		return stored
	}
}
