package models

import (
	"time"

	"github.com/uptrace/bun"
)

// AlertState is the lifecycle of an emergency alert.
type AlertState string

const (
	AlertOpen         AlertState = "OPEN"
	AlertAcknowledged AlertState = "ACKNOWLEDGED"
)

// Alert is an emergency raised by an authenticated principal.
type Alert struct {
	bun.BaseModel `bun:"table:alerts,alias:a"`

	ID             string     `bun:"id,pk,type:varchar(36)"`
	PrincipalID    string     `bun:"principal_id,notnull,type:varchar(36)"`
	Message        string     `bun:"message,notnull"`
	Latitude       *float64   `bun:"latitude"`
	Longitude      *float64   `bun:"longitude"`
	State          AlertState `bun:"state,notnull"`
	CreatedAt      time.Time  `bun:"created_at,notnull"`
	AcknowledgedAt *time.Time `bun:"acknowledged_at"`
	AcknowledgedBy *string    `bun:"acknowledged_by,type:varchar(36)"`
}
