package repository

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")

	// ErrEmailTaken is returned by a conditional insert that lost the race
	// for a unique email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidLinkSlot is returned for a link slot that names no column.
	ErrInvalidLinkSlot = errors.New("invalid link slot")
)
