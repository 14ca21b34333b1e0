package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voip8pbx/ShieldHire-sub000/internal/auth"
	"github.com/voip8pbx/ShieldHire-sub000/internal/db/bunx"
	"github.com/voip8pbx/ShieldHire-sub000/internal/db/models"
	"github.com/voip8pbx/ShieldHire-sub000/internal/middleware"
	"github.com/voip8pbx/ShieldHire-sub000/internal/repository"
	"github.com/voip8pbx/ShieldHire-sub000/internal/services/identity"
)

// SessionIssuer mints the backend's own bearer tokens.
type SessionIssuer interface {
	Issue(bound *identity.BoundPrincipal) (identity.BearerToken, error)
}

// PrincipalBinder reconciles a principal loaded outside the verifier chain.
type PrincipalBinder interface {
	Bind(ctx context.Context, p *models.Principal, source identity.Source) *identity.BoundPrincipal
}

// AuthDependencies bundles the collaborators of the auth endpoints.
type AuthDependencies struct {
	Resolver   middleware.Resolver
	Binder     PrincipalBinder
	Sessions   SessionIssuer
	Principals repository.PrincipalRepository
	Logger     logrus.FieldLogger
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	DisplayName string `json:"display_name" validate:"max=100"`
}

// SessionResponse is returned by every endpoint that mints a token.
type SessionResponse struct {
	Token     string                 `json:"token"`
	ExpiresAt time.Time              `json:"expires_at"`
	Principal identity.PrincipalView `json:"principal"`
}

// WhoamiResponse is returned by GET /api/auth/whoami.
type WhoamiResponse struct {
	Principal identity.PrincipalView `json:"principal"`
	Source    identity.Source        `json:"source"`
}

// HandleLogin authenticates with email and password and issues a session
// token. Unknown email, missing password and wrong password all produce the
// same 401.
func HandleLogin(deps AuthDependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := middleware.LoggerFromContext(ctx, deps.Logger)

		var req LoginRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		p, err := deps.Principals.GetByEmail(ctx, identity.NormalizeEmail(req.Email))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				middleware.WriteError(w, http.StatusUnauthorized, "invalid credentials")
				return
			}
			log.WithError(err).Error("login: principal lookup failed")
			middleware.WriteError(w, http.StatusInternalServerError, "login failed")
			return
		}
		if !p.HasPassword() {
			middleware.WriteError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if err := auth.CheckPassword(*p.PasswordHash, req.Password); err != nil {
			if !errors.Is(err, auth.ErrPasswordMismatch) {
				log.WithError(err).Error("login: password check failed")
			}
			middleware.WriteError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		linkLocalSlot(ctx, deps, p, log)
		issueSession(w, deps, deps.Binder.Bind(ctx, p, identity.SourceLocal), http.StatusOK, log)
	}
}

// HandleRegister creates a password principal and signs it in.
func HandleRegister(deps AuthDependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := middleware.LoggerFromContext(ctx, deps.Logger)

		var req RegisterRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		email := identity.NormalizeEmail(req.Email)
		p := &models.Principal{
			ID:           bunx.NewUUIDv7(),
			Email:        email,
			DisplayName:  identity.DisplayNameOrLocalPart(req.DisplayName, email),
			Role:         models.RoleUser,
			PasswordHash: &hash,
		}
		p.SetSlot(models.SlotLocal, p.ID)

		if err := deps.Principals.InsertIfAbsent(ctx, p); err != nil {
			if errors.Is(err, repository.ErrEmailTaken) {
				middleware.WriteError(w, http.StatusConflict, "email already registered")
				return
			}
			log.WithError(err).Error("register: insert failed")
			middleware.WriteError(w, http.StatusInternalServerError, "registration failed")
			return
		}

		log.WithField("principal_id", p.ID).Info("registered password principal")
		issueSession(w, deps, deps.Binder.Bind(ctx, p, identity.SourceLocal), http.StatusCreated, log)
	}
}

// HandleExchange trades a federated or platform credential for a local
// session token, so later requests verify without a network call.
func HandleExchange(deps AuthDependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := middleware.LoggerFromContext(ctx, deps.Logger)

		credential, ok := middleware.BearerToken(r)
		if !ok {
			middleware.WriteError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		bound, err := deps.Resolver.Resolve(ctx, credential)
		if err != nil {
			middleware.WriteAuthError(w, err)
			return
		}
		if bound.Source == identity.SourceLocal {
			middleware.WriteError(w, http.StatusBadRequest, "credential is already a session token")
			return
		}

		issueSession(w, deps, bound, http.StatusOK, log)
	}
}

// HandleWhoAmI returns the principal bound to the current request.
func HandleWhoAmI() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bound, ok := auth.GetPrincipalFromContext(r.Context())
		if !ok {
			middleware.WriteError(w, http.StatusUnauthorized, "unauthenticated")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, WhoamiResponse{
			Principal: bound.View(),
			Source:    bound.Source,
		})
	}
}

func issueSession(w http.ResponseWriter, deps AuthDependencies, bound *identity.BoundPrincipal, status int, log logrus.FieldLogger) {
	tok, err := deps.Sessions.Issue(bound)
	if err != nil {
		log.WithError(err).Error("issue session token")
		middleware.WriteError(w, http.StatusInternalServerError, "could not issue session")
		return
	}
	middleware.WriteJSON(w, status, SessionResponse{
		Token:     tok.Token,
		ExpiresAt: tok.ExpiresAt,
		Principal: bound.View(),
	})
}

// linkLocalSlot records that a principal created through an external
// provider has also signed in with a password.
func linkLocalSlot(ctx context.Context, deps AuthDependencies, p *models.Principal, log logrus.FieldLogger) {
	if p.Slot(models.SlotLocal) != "" {
		return
	}
	filled, err := deps.Principals.SetLinkSlot(ctx, p.ID, models.SlotLocal, p.ID)
	if err != nil {
		log.WithError(err).WithField("principal_id", p.ID).Warn("local link slot backfill failed")
		return
	}
	if filled {
		p.SetSlot(models.SlotLocal, p.ID)
	}
}
