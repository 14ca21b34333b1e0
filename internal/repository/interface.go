package repository

import (
	"context"
	"time"

	"github.com/voip8pbx/ShieldHire-sub000/internal/db/models"
)

// PrincipalRepository is the only access path to principal rows.
// Emails passed in must already be normalized to lower case.
type PrincipalRepository interface {
	GetByID(ctx context.Context, id string) (*models.Principal, error)
	GetByEmail(ctx context.Context, email string) (*models.Principal, error)

	// InsertIfAbsent inserts p unless a principal with the same email exists,
	// in which case it returns ErrEmailTaken and leaves the table unchanged.
	InsertIfAbsent(ctx context.Context, p *models.Principal) error

	// SetLinkSlot fills an empty link slot. It reports whether this call
	// filled it; an already-filled slot is left untouched.
	SetLinkSlot(ctx context.Context, id string, slot models.LinkSlot, subject string) (bool, error)

	UpdateRole(ctx context.Context, id string, role models.Role) error
	SetPasswordHash(ctx context.Context, id string, hash string) error
}

// ProfileRepository is the only access path to staff profile rows.
type ProfileRepository interface {
	// FindByPrincipalID returns the profile for a principal, or nil when the
	// principal has none.
	FindByPrincipalID(ctx context.Context, principalID string) (*models.StaffProfile, error)

	// Upsert creates or replaces the profile for p.PrincipalID.
	Upsert(ctx context.Context, p *models.StaffProfile) error
}

// AlertRepository persists emergency alerts.
type AlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetByID(ctx context.Context, id string) (*models.Alert, error)

	// Acknowledge moves an OPEN alert to ACKNOWLEDGED. It reports whether
	// this call performed the transition; acknowledging an already
	// acknowledged alert is not an error.
	Acknowledge(ctx context.Context, id, by string, at time.Time) (bool, error)
}
