package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/voip8pbx/ShieldHire-sub000/internal/auth"
	"github.com/voip8pbx/ShieldHire-sub000/internal/db/models"
	"github.com/voip8pbx/ShieldHire-sub000/internal/middleware"
	"github.com/voip8pbx/ShieldHire-sub000/internal/services/alert"
	"github.com/voip8pbx/ShieldHire-sub000/internal/services/identity"
)

// AlertService is the alert behaviour the HTTP layer depends on.
type AlertService interface {
	Create(ctx context.Context, actor *identity.BoundPrincipal, in alert.CreateInput) (*models.Alert, error)
	Get(ctx context.Context, id string) (*models.Alert, error)
	Acknowledge(ctx context.Context, id string, actor *identity.BoundPrincipal) (*models.Alert, bool, error)
}

// CreateAlertRequest is the body of POST /api/alerts.
type CreateAlertRequest struct {
	Message   string   `json:"message" validate:"required,max=1000"`
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,min=-90,max=90"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,min=-180,max=180"`
}

// AlertResponse is the wire form of an alert.
type AlertResponse struct {
	ID             string            `json:"id"`
	PrincipalID    string            `json:"principal_id"`
	Message        string            `json:"message"`
	Latitude       *float64          `json:"latitude,omitempty"`
	Longitude      *float64          `json:"longitude,omitempty"`
	State          models.AlertState `json:"state"`
	CreatedAt      time.Time         `json:"created_at"`
	AcknowledgedAt *time.Time        `json:"acknowledged_at,omitempty"`
	AcknowledgedBy *string           `json:"acknowledged_by,omitempty"`
}

// AcknowledgeResponse reports whether this request changed the alert.
type AcknowledgeResponse struct {
	Alert        AlertResponse `json:"alert"`
	Transitioned bool          `json:"transitioned"`
}

func alertResponse(a *models.Alert) AlertResponse {
	return AlertResponse{
		ID:             a.ID,
		PrincipalID:    a.PrincipalID,
		Message:        a.Message,
		Latitude:       a.Latitude,
		Longitude:      a.Longitude,
		State:          a.State,
		CreatedAt:      a.CreatedAt,
		AcknowledgedAt: a.AcknowledgedAt,
		AcknowledgedBy: a.AcknowledgedBy,
	}
}

// HandleCreateAlert raises an alert on behalf of the bound principal.
func HandleCreateAlert(alerts AlertService, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		bound, ok := auth.GetPrincipalFromContext(ctx)
		if !ok {
			middleware.WriteError(w, http.StatusUnauthorized, "unauthenticated")
			return
		}

		var req CreateAlertRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		a, err := alerts.Create(ctx, bound, alert.CreateInput{
			Message:   req.Message,
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
		})
		if err != nil {
			writeAlertError(w, err, middleware.LoggerFromContext(ctx, logger))
			return
		}
		middleware.WriteJSON(w, http.StatusCreated, alertResponse(a))
	}
}

// HandleGetAlert returns one alert. Principals without the admin role only
// see alerts they raised; other alerts are reported as missing.
func HandleGetAlert(alerts AlertService, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		bound, ok := auth.GetPrincipalFromContext(ctx)
		if !ok {
			middleware.WriteError(w, http.StatusUnauthorized, "unauthenticated")
			return
		}

		a, err := alerts.Get(ctx, chi.URLParam(r, "id"))
		if err != nil {
			writeAlertError(w, err, middleware.LoggerFromContext(ctx, logger))
			return
		}
		if bound.Role != models.RoleAdmin && a.PrincipalID != bound.Principal.ID {
			middleware.WriteError(w, http.StatusNotFound, "alert not found")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, alertResponse(a))
	}
}

// HandleAcknowledgeAlert moves an alert to ACKNOWLEDGED.
func HandleAcknowledgeAlert(alerts AlertService, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		bound, ok := auth.GetPrincipalFromContext(ctx)
		if !ok {
			middleware.WriteError(w, http.StatusUnauthorized, "unauthenticated")
			return
		}

		a, transitioned, err := alerts.Acknowledge(ctx, chi.URLParam(r, "id"), bound)
		if err != nil {
			writeAlertError(w, err, middleware.LoggerFromContext(ctx, logger))
			return
		}
		middleware.WriteJSON(w, http.StatusOK, AcknowledgeResponse{
			Alert:        alertResponse(a),
			Transitioned: transitioned,
		})
	}
}

func writeAlertError(w http.ResponseWriter, err error, log logrus.FieldLogger) {
	switch {
	case errors.Is(err, alert.ErrAlertNotFound):
		middleware.WriteError(w, http.StatusNotFound, "alert not found")
	case errors.Is(err, alert.ErrInvalidAlert):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		log.WithError(err).Error("alert request failed")
		middleware.WriteError(w, http.StatusInternalServerError, "alert request failed")
	}
}
