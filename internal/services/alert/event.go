package alert

import (
	"time"

	"github.com/voip8pbx/ShieldHire-sub000/internal/db/models"
)

// EventType names what happened to an alert.
type EventType string

const (
	EventCreated      EventType = "alert.created"
	EventAcknowledged EventType = "alert.acknowledged"
)

// Event is the payload broadcast to real-time channels.
type Event struct {
	Type           EventType         `json:"type"`
	AlertID        string            `json:"alert_id"`
	PrincipalID    string            `json:"principal_id"`
	Message        string            `json:"message"`
	Latitude       *float64          `json:"latitude,omitempty"`
	Longitude      *float64          `json:"longitude,omitempty"`
	State          models.AlertState `json:"state"`
	AcknowledgedBy string            `json:"acknowledged_by,omitempty"`
	OccurredAt     time.Time         `json:"occurred_at"`
}

func newEvent(t EventType, a *models.Alert, at time.Time) Event {
	ev := Event{
		Type:        t,
		AlertID:     a.ID,
		PrincipalID: a.PrincipalID,
		Message:     a.Message,
		Latitude:    a.Latitude,
		Longitude:   a.Longitude,
		State:       a.State,
		OccurredAt:  at.UTC(),
	}
	if a.AcknowledgedBy != nil {
		ev.AcknowledgedBy = *a.AcknowledgedBy
	}
	return ev
}
