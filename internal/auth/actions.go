package auth

// Object types for Casbin policies.
const (
	ObjectTypeAlert   = "alert"
	ObjectTypeProfile = "profile"
	ObjectTypeSession = "session"
)

// Alert actions
const (
	// AlertCreate allows raising an emergency alert.
	AlertCreate = "alert:create"

	// AlertRead allows reading an alert by id.
	AlertRead = "alert:read"

	// AlertAcknowledge allows moving an alert from OPEN to ACKNOWLEDGED.
	AlertAcknowledge = "alert:acknowledge"
)

// Profile actions
const (
	// ProfileWrite allows creating or changing a staff profile.
	ProfileWrite = "profile:write"
)

// Session actions
const (
	// SessionReadSelf allows a principal to read its own bound identity.
	SessionReadSelf = "session:read-self"
)

// AllWildcard grants every action on the object.
const AllWildcard = "*"
