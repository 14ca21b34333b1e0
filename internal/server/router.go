package server

import (
	"net/http"

	"github.com/casbin/casbin/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/voip8pbx/ShieldHire-sub000/internal/auth"
	shieldmw "github.com/voip8pbx/ShieldHire-sub000/internal/middleware"
	"github.com/voip8pbx/ShieldHire-sub000/internal/repository"
	"github.com/voip8pbx/ShieldHire-sub000/internal/services/identity"
)

// RouterOptions controls the construction of the ShieldHire HTTP router.
// Route groups whose dependencies are nil are not mounted.
type RouterOptions struct {
	Auth        AuthDependencies
	Alerts      AlertService
	Profiles    repository.ProfileRepository
	Enforcer    casbin.IEnforcer
	Providers   []identity.Source
	Logger      logrus.FieldLogger
	Metrics     *shieldmw.HTTPMetrics
	CORSOptions *cors.Options

	// MetricsHandler serves GET /metrics when set.
	MetricsHandler http.Handler
	HealthHandler  http.HandlerFunc
	Middleware     []func(http.Handler) http.Handler
	ExtraRoutes    func(chi.Router)
}

// DefaultCORSOptions returns the shared development CORS policy.
func DefaultCORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://127.0.0.1:5173",
			"http://localhost:8081",
		},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{
			"Content-Type",
			"Authorization",
			"X-Request-Id",
		},
		ExposedHeaders: []string{
			"Retry-After",
			"WWW-Authenticate",
			"X-Request-Id",
		},
		AllowCredentials: false,
		MaxAge:           300,
	}
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// AuthConfigResponse tells clients which credential kinds the server accepts.
type AuthConfigResponse struct {
	Providers     []identity.Source `json:"providers"`
	PasswordLogin bool              `json:"password_login"`
	TokenExchange bool              `json:"token_exchange"`
}

// NewRouter assembles a chi.Router with shared middleware, CORS policy, and
// the ShieldHire handlers mounted.
func NewRouter(opts RouterOptions) chi.Router {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.Auth.Logger == nil {
		opts.Auth.Logger = logger
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(shieldmw.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	corsCfg := DefaultCORSOptions()
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	for _, mw := range opts.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	passwordLogin := opts.Auth.Principals != nil && opts.Auth.Binder != nil && opts.Auth.Sessions != nil
	tokenExchange := opts.Auth.Resolver != nil && opts.Auth.Sessions != nil

	if passwordLogin {
		r.Post("/auth/login", HandleLogin(opts.Auth))
		r.Post("/auth/register", HandleRegister(opts.Auth))
	}
	if tokenExchange {
		r.Post("/auth/exchange", HandleExchange(opts.Auth))
	}
	r.Get("/auth/config", func(w http.ResponseWriter, _ *http.Request) {
		providers := opts.Providers
		if providers == nil {
			providers = []identity.Source{}
		}
		shieldmw.WriteJSON(w, http.StatusOK, AuthConfigResponse{
			Providers:     providers,
			PasswordLogin: passwordLogin,
			TokenExchange: tokenExchange,
		})
	})

	if opts.Auth.Resolver != nil && opts.Enforcer != nil {
		r.Route("/api", func(api chi.Router) {
			api.Use(shieldmw.NewAuthnMiddleware(opts.Auth.Resolver, logger))

			api.With(shieldmw.RequirePermission(opts.Enforcer, logger, auth.ObjectTypeSession, auth.SessionReadSelf)).
				Get("/auth/whoami", HandleWhoAmI())

			if opts.Alerts != nil {
				api.With(shieldmw.RequirePermission(opts.Enforcer, logger, auth.ObjectTypeAlert, auth.AlertCreate)).
					Post("/alerts", HandleCreateAlert(opts.Alerts, logger))
				api.With(shieldmw.RequirePermission(opts.Enforcer, logger, auth.ObjectTypeAlert, auth.AlertRead)).
					Get("/alerts/{id}", HandleGetAlert(opts.Alerts, logger))
				api.With(shieldmw.RequirePermission(opts.Enforcer, logger, auth.ObjectTypeAlert, auth.AlertAcknowledge)).
					Post("/alerts/{id}/ack", HandleAcknowledgeAlert(opts.Alerts, logger))
			}

			if opts.Auth.Principals != nil && opts.Profiles != nil {
				api.With(shieldmw.RequirePermission(opts.Enforcer, logger, auth.ObjectTypeProfile, auth.ProfileWrite)).
					Put("/admin/profiles/{principal_id}", HandlePutProfile(opts.Auth.Principals, opts.Profiles, logger))
			}
		})
	} else {
		logger.Warn("resolver or enforcer not configured; /api routes are not mounted")
	}

	healthHandler := opts.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler
	}
	r.Get("/health", healthHandler)

	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	if opts.ExtraRoutes != nil {
		opts.ExtraRoutes(r)
	}

	return r
}
