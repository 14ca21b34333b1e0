package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Role is the denormalized access role stored on a principal.
type Role string

const (
	RoleUser    Role = "USER"
	RoleBouncer Role = "BOUNCER"
	RoleGunman  Role = "GUNMAN"
	RoleAdmin   Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleBouncer, RoleGunman, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether r is a security-work role.
func (r Role) IsStaff() bool {
	return r == RoleBouncer || r == RoleGunman
}

// ParseRole converts user input into a Role.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

// VerificationState tracks the staff vetting workflow.
type VerificationState string

const (
	VerificationPending  VerificationState = "PENDING"
	VerificationApproved VerificationState = "APPROVED"
	VerificationRejected VerificationState = "REJECTED"
)

// Valid reports whether s is one of the known verification states.
func (s VerificationState) Valid() bool {
	switch s {
	case VerificationPending, VerificationApproved, VerificationRejected:
		return true
	}
	return false
}

// Principal is the durable application identity. Email is stored lower-cased
// and is the only key correlating identities across providers.
//
// Each external source owns one nullable link slot holding that source's
// subject identifier. Slots are filled once and never rewritten.
type Principal struct {
	bun.BaseModel `bun:"table:principals,alias:p"`

	ID               string    `bun:"id,pk,type:varchar(36)"`
	Email            string    `bun:"email,notnull,unique"`
	DisplayName      string    `bun:"display_name,notnull"`
	Role             Role      `bun:"role,notnull"`
	FederatedSubject *string   `bun:"federated_subject"`
	PlatformSubject  *string   `bun:"platform_subject"`
	LocalSubject     *string   `bun:"local_subject"`
	PasswordHash     *string   `bun:"password_hash"`
	CreatedAt        time.Time `bun:"created_at,notnull"`
	UpdatedAt        time.Time `bun:"updated_at,notnull"`
}

// HasPassword reports whether the principal can use the password login path.
func (p *Principal) HasPassword() bool {
	return p != nil && p.PasswordHash != nil && *p.PasswordHash != ""
}

// StaffProfile carries the specialized attributes of security personnel.
// At most one row exists per principal; its existence makes the principal staff.
type StaffProfile struct {
	bun.BaseModel `bun:"table:staff_profiles,alias:sp"`

	PrincipalID       string            `bun:"principal_id,pk,type:varchar(36)"`
	IsArmedSpecialist bool              `bun:"is_armed_specialist,notnull"`
	VerificationState VerificationState `bun:"verification_state,notnull"`
	CreatedAt         time.Time         `bun:"created_at,notnull"`
	UpdatedAt         time.Time         `bun:"updated_at,notnull"`
}

// LinkSlot names the principals column holding one provider's subject.
type LinkSlot string

const (
	SlotFederated LinkSlot = "federated_subject"
	SlotPlatform  LinkSlot = "platform_subject"
	SlotLocal     LinkSlot = "local_subject"
)

// Valid reports whether s names a real link column.
func (s LinkSlot) Valid() bool {
	switch s {
	case SlotFederated, SlotPlatform, SlotLocal:
		return true
	}
	return false
}

// Slot returns the subject stored in the given link slot, or "" when empty.
func (p *Principal) Slot(s LinkSlot) string {
	var v *string
	switch s {
	case SlotFederated:
		v = p.FederatedSubject
	case SlotPlatform:
		v = p.PlatformSubject
	case SlotLocal:
		v = p.LocalSubject
	}
	if v == nil {
		return ""
	}
	return *v
}

// SetSlot stores subject in the given link slot.
func (p *Principal) SetSlot(s LinkSlot, subject string) {
	v := subject
	switch s {
	case SlotFederated:
		p.FederatedSubject = &v
	case SlotPlatform:
		p.PlatformSubject = &v
	case SlotLocal:
		p.LocalSubject = &v
	}
}
