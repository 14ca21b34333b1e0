package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/voip8pbx/ShieldHire-sub000/internal/auth"
)

type loggerContextKey struct{}

// RequestLogger logs one line per request and stores a request-scoped entry
// carrying request_id in the context. It must run after chi's RequestID.
func RequestLogger(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			entry := logger.WithField("request_id", chimiddleware.GetReqID(r.Context()))
			ctx := context.WithValue(r.Context(), loggerContextKey{}, entry)

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			// chi fills the shared route context while routing, so the
			// pattern is only known after the handler returns.
			routePath := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					routePath = pattern
				}
			}

			fields := entry.WithFields(logrus.Fields{
				"method":      r.Method,
				"path":        routePath,
				"status":      status,
				"duration_ms": time.Since(start).Milliseconds(),
				"bytes_out":   ww.BytesWritten(),
				"ip":          r.RemoteAddr,
			})
			if ua := r.UserAgent(); ua != "" {
				fields = fields.WithField("user_agent", ua)
			}

			switch {
			case status >= http.StatusInternalServerError:
				fields.Error("http_request")
			case status >= http.StatusBadRequest:
				fields.Warn("http_request")
			default:
				fields.Info("http_request")
			}
		})
	}
}

// LoggerFromContext returns the request-scoped entry, enriched with the
// principal id when one is bound, or fallback outside a request.
func LoggerFromContext(ctx context.Context, fallback logrus.FieldLogger) logrus.FieldLogger {
	l, ok := ctx.Value(loggerContextKey{}).(logrus.FieldLogger)
	if !ok {
		l = fallback
	}
	if p, ok := auth.GetPrincipalFromContext(ctx); ok {
		l = l.WithField("principal_id", p.Principal.ID)
	}
	return l
}
