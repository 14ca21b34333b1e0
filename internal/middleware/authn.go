package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/voip8pbx/ShieldHire-sub000/internal/auth"
	"github.com/voip8pbx/ShieldHire-sub000/internal/services/identity"
)

// retryAfterSeconds is advertised when an identity provider is unreachable.
const retryAfterSeconds = 5

// Resolver binds a bearer credential to a principal.
type Resolver interface {
	Resolve(ctx context.Context, credential string) (*identity.BoundPrincipal, error)
}

// NewAuthnMiddleware resolves the bearer credential of every request and
// stores the bound principal in the request context. Requests without a
// usable credential are rejected; public routes must be mounted outside it.
func NewAuthnMiddleware(resolver Resolver, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential, ok := BearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="shieldhire"`)
				WriteError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			bound, err := resolver.Resolve(r.Context(), credential)
			if err != nil {
				LoggerFromContext(r.Context(), log).
					WithError(err).
					Debug("authentication failed")
				WriteAuthError(w, err)
				return
			}

			ctx := auth.SetPrincipalContext(r.Context(), bound)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the credential from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WriteAuthError translates a resolution error into a response. Upstream
// detail never reaches the client.
func WriteAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalidCredential):
		w.Header().Set("WWW-Authenticate", `Bearer realm="shieldhire", error="invalid_token"`)
		WriteError(w, http.StatusUnauthorized, "invalid credential")
	case errors.Is(err, identity.ErrProviderUnavailable):
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		WriteError(w, http.StatusServiceUnavailable, "identity provider unavailable, retry later")
	default:
		WriteError(w, http.StatusInternalServerError, "authentication error")
	}
}
