package booking

import (
	"time"

	"github.com/tbourn/go-booking-backend/internal/domain"
)

// State is the booking-relevant snapshot of a slot, captured before and after
// a write so observers can see what changed.
type State struct {
	IsBooked  bool
	BookedBy  *string
	GuestName *string
	BookedAt  *time.Time
}

// StateOf captures the booking state of slot. Pointer fields are copied so
// later mutation of slot does not leak into the snapshot.
func StateOf(slot domain.TimeSlot) State {
	return State{
		IsBooked:  slot.IsBooked,
		BookedBy:  clone(slot.BookedBy),
		GuestName: clone(slot.GuestName),
		BookedAt:  cloneTime(slot.BookedAt),
	}
}

// Transition names the change in IsBooked between two states.
type Transition int

const (
	// TransitionNone means IsBooked did not change.
	TransitionNone Transition = iota
	// TransitionBooked is free -> booked.
	TransitionBooked
	// TransitionCanceled is booked -> free.
	TransitionCanceled
)

// String implements fmt.Stringer.
func (t Transition) String() string {
	switch t {
	case TransitionBooked:
		return "booked"
	case TransitionCanceled:
		return "canceled"
	default:
		return "none"
	}
}

// Classify reports the transition from old to new.
func Classify(old, new State) Transition {
	switch {
	case !old.IsBooked && new.IsBooked:
		return TransitionBooked
	case old.IsBooked && !new.IsBooked:
		return TransitionCanceled
	default:
		return TransitionNone
	}
}

func clone(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
