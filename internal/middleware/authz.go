package middleware

import (
	"net/http"

	"github.com/casbin/casbin/v2"
	"github.com/sirupsen/logrus"

	"github.com/voip8pbx/ShieldHire-sub000/internal/auth"
)

// RequirePermission returns a middleware that checks the bound principal's
// effective role against the Casbin policy for objType and action. It must
// run after the authentication middleware.
func RequirePermission(enforcer casbin.IEnforcer, log logrus.FieldLogger, objType, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.GetPrincipalFromContext(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}

			allowed, err := auth.Authorize(enforcer, principal.Role, objType, action)
			if err != nil {
				LoggerFromContext(r.Context(), log).WithError(err).Error("authorization error")
				WriteError(w, http.StatusInternalServerError, "authorization error")
				return
			}
			if !allowed {
				LoggerFromContext(r.Context(), log).WithFields(logrus.Fields{
					"principal_id": principal.Principal.ID,
					"role":         principal.Role,
					"action":       action,
				}).Info("permission denied")
				WriteError(w, http.StatusForbidden, "forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
