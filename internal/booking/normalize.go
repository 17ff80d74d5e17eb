// Package booking holds the slot booking state machine: the pure rules that
// turn a caller-supplied TimeSlot mutation into a consistent state before it
// is written. Nothing here touches the database; the repository and service
// layers call Normalize on every save.
package booking

import (
	"errors"
	"strings"
	"time"

	"github.com/tbourn/go-booking-backend/internal/domain"
)

var (
	// ErrInvalidRange is returned when a slot's end time is not after its start time.
	ErrInvalidRange = errors.New("end time must be later than start time")

	// ErrMissingBookerIdentity is returned when a slot is marked booked but
	// carries neither a registered booker nor a non-blank guest name.
	ErrMissingBookerIdentity = errors.New("booked slot must have a booker or guest name")
)

// IsValidation reports whether err is one of the validation failures
// produced by Normalize.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidRange) || errors.Is(err, ErrMissingBookerIdentity)
}

// Normalize validates slot and derives its booking state in place.
//
// Rules:
//   - EndTime must be strictly after StartTime (ErrInvalidRange).
//   - GuestName is trimmed; blank names and blank BookedBy ids become nil.
//   - A slot the caller marked booked with no identity is rejected
//     (ErrMissingBookerIdentity).
//   - IsBooked = BookedBy present OR GuestName present.
//   - BookedAt is stamped with now on the first transition to booked and is
//     left alone while the slot stays booked; it is cleared when free.
func Normalize(slot *domain.TimeSlot, now time.Time) error {
	if !slot.EndTime.After(slot.StartTime) {
		return ErrInvalidRange
	}

	slot.BookedBy = trimmed(slot.BookedBy, false)
	slot.GuestName = trimmed(slot.GuestName, true)

	hasIdentity := slot.BookedBy != nil || slot.GuestName != nil
	if slot.IsBooked && !hasIdentity {
		return ErrMissingBookerIdentity
	}

	slot.IsBooked = hasIdentity
	if slot.IsBooked {
		if slot.BookedAt == nil {
			t := now.UTC()
			slot.BookedAt = &t
		}
	} else {
		slot.BookedAt = nil
	}
	return nil
}

// Clear removes every booking field from slot so the next Normalize derives
// a free slot.
func Clear(slot *domain.TimeSlot) {
	slot.BookedBy = nil
	slot.GuestName = nil
	slot.IsBooked = false
	slot.BookedAt = nil
}

// trimmed returns nil for nil or blank input. When keepTrim is set the
// trimmed value replaces the original.
func trimmed(p *string, keepTrim bool) *string {
	if p == nil {
		return nil
	}
	t := strings.TrimSpace(*p)
	if t == "" {
		return nil
	}
	if keepTrim {
		return &t
	}
	return p
}
