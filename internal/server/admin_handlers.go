package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/voip8pbx/ShieldHire-sub000/internal/db/models"
	"github.com/voip8pbx/ShieldHire-sub000/internal/middleware"
	"github.com/voip8pbx/ShieldHire-sub000/internal/repository"
	"github.com/voip8pbx/ShieldHire-sub000/internal/services/identity"
)

// ProfileRequest is the body of PUT /api/admin/profiles/{principal_id}.
type ProfileRequest struct {
	IsArmedSpecialist bool                     `json:"is_armed_specialist"`
	VerificationState models.VerificationState `json:"verification_state" validate:"required,oneof=PENDING APPROVED REJECTED"`
}

// ProfileResponse reports the stored profile and the role it implies.
type ProfileResponse struct {
	PrincipalID       string                   `json:"principal_id"`
	IsArmedSpecialist bool                     `json:"is_armed_specialist"`
	VerificationState models.VerificationState `json:"verification_state"`
	Role              models.Role              `json:"role"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

// HandlePutProfile creates or replaces a staff profile and applies the
// resulting role right away rather than at the principal's next sign-in.
//
// Authorization: requires profile:write
func HandlePutProfile(principals repository.PrincipalRepository, profiles repository.ProfileRepository, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := middleware.LoggerFromContext(ctx, logger)

		var req ProfileRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		p, err := principals.GetByID(ctx, chi.URLParam(r, "principal_id"))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				middleware.WriteError(w, http.StatusNotFound, "principal not found")
				return
			}
			log.WithError(err).Error("profile: principal lookup failed")
			middleware.WriteError(w, http.StatusInternalServerError, "profile update failed")
			return
		}

		now := time.Now().UTC()
		profile := &models.StaffProfile{
			PrincipalID:       p.ID,
			IsArmedSpecialist: req.IsArmedSpecialist,
			VerificationState: req.VerificationState,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := profiles.Upsert(ctx, profile); err != nil {
			log.WithError(err).Error("profile: upsert failed")
			middleware.WriteError(w, http.StatusInternalServerError, "profile update failed")
			return
		}

		role := identity.Reconcile(p.Role, profile)
		if role != p.Role {
			if err := principals.UpdateRole(ctx, p.ID, role); err != nil {
				// The next sign-in reconciles again.
				log.WithError(err).WithField("principal_id", p.ID).Warn("profile stored but role update failed")
				role = p.Role
			}
		}

		log.WithFields(logrus.Fields{
			"principal_id": p.ID,
			"armed":        profile.IsArmedSpecialist,
			"role":         role,
		}).Info("staff profile updated")

		middleware.WriteJSON(w, http.StatusOK, ProfileResponse{
			PrincipalID:       p.ID,
			IsArmedSpecialist: profile.IsArmedSpecialist,
			VerificationState: profile.VerificationState,
			Role:              role,
			UpdatedAt:         profile.UpdatedAt,
		})
	}
}
