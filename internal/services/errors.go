// Package services defines the business logic for booking sessions, time
// slots, and owner profiles. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import (
	"errors"
	"fmt"
)

// Session-related errors.
var (
	// ErrSessionNotFound indicates that the requested session does not exist
	// or is not accessible to the current user.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidTitle is returned when a session title is blank after
	// normalization.
	ErrInvalidTitle = errors.New("title is required")
)

// Slot-related errors.
var (
	// ErrSlotNotFound indicates that the requested slot does not exist, is not
	// owned by the caller, or does not belong to the addressed session.
	ErrSlotNotFound = errors.New("slot not found")

	// ErrConflict is returned when a concurrent writer changed the slot (or
	// claimed the resource) first.
	ErrConflict = errors.New("conflict")

	// ErrSlotAlreadyBooked is returned when a booking targets a slot that is
	// already taken. It matches ErrConflict under errors.Is.
	ErrSlotAlreadyBooked = fmt.Errorf("%w: slot already booked", ErrConflict)

	// ErrGuestNameRequired is returned when an anonymous caller books without
	// giving a name.
	ErrGuestNameRequired = errors.New("guest name is required")
)

// Profile-related errors.
var (
	// ErrInvalidTelegramID is returned when a telegram id is not a numeric
	// chat id.
	ErrInvalidTelegramID = errors.New("telegram id must be numeric")
)
