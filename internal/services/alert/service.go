package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/voip8pbx/ShieldHire-sub000/internal/db/bunx"
	"github.com/voip8pbx/ShieldHire-sub000/internal/db/models"
	"github.com/voip8pbx/ShieldHire-sub000/internal/repository"
	"github.com/voip8pbx/ShieldHire-sub000/internal/services/identity"
	"github.com/voip8pbx/ShieldHire-sub000/internal/telemetry"
)

const tracerName = "shieldapi/services/alert"

// publishTimeout bounds a broadcast. It is detached from the request so a
// client hanging up does not cancel delivery.
const publishTimeout = 5 * time.Second

// maxMessageLength caps free-text alert messages.
const maxMessageLength = 1000

var (
	// ErrAlertNotFound is returned for an unknown alert id.
	ErrAlertNotFound = errors.New("alert not found")

	// ErrInvalidAlert is returned when alert input fails validation.
	ErrInvalidAlert = errors.New("invalid alert")
)

// CreateInput is what a principal supplies when raising an alert.
type CreateInput struct {
	Message   string
	Latitude  *float64
	Longitude *float64
}

// Service implements alert creation and acknowledgement.
type Service struct {
	alerts    repository.AlertRepository
	publisher Publisher
	log       logrus.FieldLogger
	now       func() time.Time
	newID     func() string
}

// NewService creates an alert service. A nil publisher disables broadcast.
func NewService(alerts repository.AlertRepository, publisher Publisher, log logrus.FieldLogger) *Service {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &Service{
		alerts:    alerts,
		publisher: publisher,
		log:       log,
		now:       time.Now,
		newID:     bunx.NewUUIDv7,
	}
}

// Create stores an alert tagged with the bound principal and broadcasts it.
func (s *Service) Create(ctx context.Context, actor *identity.BoundPrincipal, in CreateInput) (*models.Alert, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "alert.Create",
		attribute.String(telemetry.AttrPrincipalID, actor.Principal.ID),
	)
	defer span.End()

	if err := validate(in); err != nil {
		return nil, err
	}

	a := &models.Alert{
		ID:          s.newID(),
		PrincipalID: actor.Principal.ID,
		Message:     strings.TrimSpace(in.Message),
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		State:       models.AlertOpen,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.alerts.Create(ctx, a); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("store alert: %w", err)
	}
	span.SetAttributes(attribute.String(telemetry.AttrAlertID, a.ID))

	s.log.WithFields(logrus.Fields{
		"alert_id":     a.ID,
		"principal_id": a.PrincipalID,
	}).Warn("emergency alert raised")

	s.broadcast(ctx, newEvent(EventCreated, a, a.CreatedAt))
	return a, nil
}

// Get returns an alert by id.
func (s *Service) Get(ctx context.Context, id string) (*models.Alert, error) {
	a, err := s.alerts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
		}
		return nil, err
	}
	return a, nil
}

// Acknowledge moves the alert to ACKNOWLEDGED. Repeated calls are harmless;
// transitioned reports whether this call performed the transition, and
// only that call broadcasts it.
func (s *Service) Acknowledge(ctx context.Context, id string, actor *identity.BoundPrincipal) (a *models.Alert, transitioned bool, err error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "alert.Acknowledge",
		attribute.String(telemetry.AttrAlertID, id),
		attribute.String(telemetry.AttrPrincipalID, actor.Principal.ID),
	)
	defer span.End()

	transitioned, err = s.alerts.Acknowledge(ctx, id, actor.Principal.ID, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
		}
		telemetry.RecordError(span, err)
		return nil, false, fmt.Errorf("acknowledge alert: %w", err)
	}

	a, err = s.Get(ctx, id)
	if err != nil {
		return nil, transitioned, err
	}

	if transitioned {
		s.log.WithFields(logrus.Fields{
			"alert_id":        id,
			"acknowledged_by": actor.Principal.ID,
		}).Info("alert acknowledged")
		s.broadcast(ctx, newEvent(EventAcknowledged, a, s.now()))
	}
	return a, transitioned, nil
}

func (s *Service) broadcast(ctx context.Context, ev Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"alert_id": ev.AlertID,
			"event":    ev.Type,
		}).Warn("alert stored but not broadcast on every channel")
	}
}

func validate(in CreateInput) error {
	msg := strings.TrimSpace(in.Message)
	switch {
	case msg == "":
		return fmt.Errorf("%w: message is required", ErrInvalidAlert)
	case len(msg) > maxMessageLength:
		return fmt.Errorf("%w: message exceeds %d characters", ErrInvalidAlert, maxMessageLength)
	case (in.Latitude == nil) != (in.Longitude == nil):
		return fmt.Errorf("%w: latitude and longitude must be given together", ErrInvalidAlert)
	case in.Latitude != nil && (*in.Latitude < -90 || *in.Latitude > 90):
		return fmt.Errorf("%w: latitude out of range", ErrInvalidAlert)
	case in.Longitude != nil && (*in.Longitude < -180 || *in.Longitude > 180):
		return fmt.Errorf("%w: longitude out of range", ErrInvalidAlert)
	}
	return nil
}
