package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/voip8pbx/ShieldHire-sub000/cmd/shieldapi/cmd/cmdutil"
	"github.com/voip8pbx/ShieldHire-sub000/internal/auth"
	"github.com/voip8pbx/ShieldHire-sub000/internal/config"
	"github.com/voip8pbx/ShieldHire-sub000/internal/middleware"
	"github.com/voip8pbx/ShieldHire-sub000/internal/server"
	"github.com/voip8pbx/ShieldHire-sub000/internal/services/alert"
	"github.com/voip8pbx/ShieldHire-sub000/internal/services/identity"
	"github.com/voip8pbx/ShieldHire-sub000/internal/telemetry"
)

var autoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ShieldHire API server",
	Long:  `Starts the HTTP server with the auth, alert, and admin endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		shutdownTelemetry, err := telemetry.Init(ctx, cfg.Observability, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(ctx); err != nil {
				logger.WithError(err).Warn("telemetry shutdown failed")
			}
		}()

		store, err := cmdutil.OpenStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		logger.Info("connected to database")

		if autoMigrate {
			if err := cmdutil.Migrate(ctx, store.DB, logger); err != nil {
				return err
			}
		}

		chain, err := buildChain(ctx, cfg, logger)
		if err != nil {
			return err
		}

		resolutionMetrics, err := telemetry.NewResolutionMetrics()
		if err != nil {
			return fmt.Errorf("failed to create resolution metrics: %w", err)
		}

		resolver := identity.NewResolver(identity.ResolverDependencies{
			Verifier:   chain,
			Principals: store.Principals,
			Profiles:   store.Profiles,
			Metrics:    resolutionMetrics,
			Logger:     logger,
		})

		publisher, closePublishers, err := buildPublishers(ctx, cfg.Alerts, logger)
		if err != nil {
			return err
		}
		defer closePublishers()

		enforcer, err := auth.InitEnforcer()
		if err != nil {
			return fmt.Errorf("configure casbin enforcer: %w", err)
		}

		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		var corsOpts *cors.Options
		if len(cfg.CORS.AllowedOrigins) > 0 {
			opts := server.DefaultCORSOptions()
			opts.AllowedOrigins = cfg.CORS.AllowedOrigins
			corsOpts = &opts
		}

		healthHandler := func(w http.ResponseWriter, r *http.Request) {
			status := http.StatusOK
			body := map[string]any{"status": "ok", "providers": chain.Sources()}
			if err := store.DB.PingContext(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
			}
			middleware.WriteJSON(w, status, body)
		}

		r := server.NewRouter(server.RouterOptions{
			Auth: server.AuthDependencies{
				Resolver:   resolver,
				Binder:     resolver,
				Sessions:   identity.NewSessionIssuer([]byte(cfg.Session.Secret), cfg.Session.Issuer, cfg.Session.TTL),
				Principals: store.Principals,
				Logger:     logger,
			},
			Alerts:         alert.NewService(store.Alerts, publisher, logger),
			Profiles:       store.Profiles,
			Enforcer:       enforcer,
			Providers:      chain.Sources(),
			Logger:         logger,
			Metrics:        middleware.NewHTTPMetrics(registry),
			MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			CORSOptions:    corsOpts,
			HealthHandler:  healthHandler,
		})

		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.WithFields(logrus.Fields{
				"addr":      cfg.ServerAddr,
				"providers": chain.Sources(),
			}).Info("starting server")
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.WithField("signal", sig.String()).Info("shutting down gracefully")

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				_ = srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}

			logger.Info("server stopped")
			return nil
		}
	},
}

// buildChain assembles the verifiers in fixed priority order: federated
// identity tokens, platform session tokens, then locally minted tokens.
func buildChain(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*identity.Chain, error) {
	var federated, platform identity.Verifier

	if fc := cfg.Federated; fc != nil {
		var backend identity.TokenVerifier
		switch fc.Mode {
		case config.FederatedModeFirebase:
			fb, err := identity.NewFirebaseTokenVerifier(ctx, fc.FirebaseProjectID, fc.FirebaseCredentialsFile)
			if err != nil {
				return nil, fmt.Errorf("configure firebase verifier: %w", err)
			}
			backend = fb
		case config.FederatedModeOIDC:
			oidc, err := identity.NewOIDCTokenVerifier(fc.Issuer, fc.Audience)
			if err != nil {
				return nil, fmt.Errorf("configure oidc verifier: %w", err)
			}
			backend = oidc
		}
		federated = identity.NewFederatedVerifier(fc.Issuer, backend)
		log.WithFields(logrus.Fields{"mode": fc.Mode, "issuer": fc.Issuer}).Info("federated provider enabled")
	}

	if pc := cfg.Platform; pc != nil {
		introspector := identity.NewZitadelIntrospector(pc.Issuer, pc.ClientID, pc.ClientSecret)
		platform = identity.NewPlatformVerifier(introspector, pc.TokenPrefix, pc.CacheSize, pc.CacheTTL)
		log.WithField("issuer", pc.Issuer).Info("platform provider enabled")
	}

	local := identity.NewLocalVerifier([]byte(cfg.Session.Secret), cfg.Session.Issuer)

	return identity.NewChain(cfg.Providers.Timeout, log, federated, platform, local), nil
}

// buildPublishers connects every configured alert channel. The returned
// close function releases their connections.
func buildPublishers(ctx context.Context, cfg config.AlertsConfig, log logrus.FieldLogger) (alert.Publisher, func(), error) {
	var (
		publishers []alert.Publisher
		closers    []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.RedisURL != "" {
		client, err := alert.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("connect alert redis: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })
		publishers = append(publishers, alert.NewRedisPublisher(client, cfg.RedisChannel))
	}

	if cfg.AMQPURL != "" {
		pub, err := alert.DialAMQP(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("connect alert broker: %w", err)
		}
		closers = append(closers, func() { _ = pub.Close() })
		publishers = append(publishers, pub)
	}

	if cfg.FCMProjectID != "" {
		pub, err := alert.NewFCMPublisher(ctx, cfg.FCMProjectID, cfg.FCMCredentialsFile, cfg.FCMTopic)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("configure push notifications: %w", err)
		}
		publishers = append(publishers, pub)
	}

	fanout := alert.NewFanout(log, publishers...)
	if fanout.Len() == 0 {
		log.Warn("no alert channels configured; alerts are stored only")
	}
	return fanout, closeAll, nil
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "Apply pending database migrations before serving")
	rootCmd.AddCommand(serveCmd)
}
