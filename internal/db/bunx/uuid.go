package bunx

import "github.com/google/uuid"

// NewUUIDv7 generates a time-ordered UUIDv7 string for primary keys.
//
// Ids are generated in the application rather than by the database so that
// principal and alert rows get the same key format on PostgreSQL and SQLite,
// and so that a conditional insert knows its candidate id before the row
// exists. Panics only if the entropy source fails.
func NewUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}
